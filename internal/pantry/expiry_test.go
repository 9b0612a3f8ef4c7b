package pantry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayRange_StartsAtLocalMidnight(t *testing.T) {
	from, to := DayRange(7)

	now := time.Now()
	assert.Equal(t, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), from)
	assert.Equal(t, now.Location(), from.Location())
	assert.Equal(t, from.AddDate(0, 0, 7), to)
}

func TestDayRange_ZeroDaysIsToday(t *testing.T) {
	from, to := DayRange(0)
	assert.True(t, from.Equal(to))
}
