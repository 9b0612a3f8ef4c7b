package pantry

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is one physical stock row in a household's pantry.
type Item struct {
	ID           int64           `db:"id" json:"id"`
	HouseholdID  int64           `db:"household_id" json:"household_id"`
	IngredientID int64           `db:"ingredient_id" json:"ingredient_id"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	UnitID       int64           `db:"unit_id" json:"unit_id"`
	ExpiryDate   *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	Location     *string         `db:"location" json:"location,omitempty"`
}

// Key is the duplicate-identity tuple: two rows sharing a Key represent the
// same physical stock and must be merged. A composite type rather than a
// joined string, so field values containing separator characters cannot
// collide.
type Key struct {
	HouseholdID  int64
	IngredientID int64
	UnitID       int64
	Expiry       string // date-only, empty when no expiry
	Location     string
}

// KeyOf derives the identity tuple for an item.
func KeyOf(it Item) Key {
	k := Key{
		HouseholdID:  it.HouseholdID,
		IngredientID: it.IngredientID,
		UnitID:       it.UnitID,
	}
	if it.ExpiryDate != nil {
		k.Expiry = it.ExpiryDate.Format("2006-01-02")
	}
	if it.Location != nil {
		k.Location = *it.Location
	}
	return k
}

// DayRange returns the expiry window [start of today, start of today+days].
// Bounds come from the wall-clock date in local time, not the UTC epoch, so
// the window edge does not drift in non-UTC deployments.
func DayRange(days int) (time.Time, time.Time) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 0, days)
}

// ConsumeResult reports the outcome of a decrement. When the row was
// exhausted it is deleted and Item is nil.
type ConsumeResult struct {
	Deleted bool  `json:"deleted"`
	Item    *Item `json:"item,omitempty"`
}

// MergeResult summarizes one MergeDuplicates run.
type MergeResult struct {
	Merged  int `json:"merged"`
	Deleted int `json:"deleted"`
}

// UpdateParams carries a partial update to a pantry row; nil fields are left
// untouched.
type UpdateParams struct {
	Quantity   *decimal.Decimal
	UnitID     *int64
	ExpiryDate *time.Time
	Location   *string
}
