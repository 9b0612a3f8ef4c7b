// Package notify posts best-effort meal-plan-change events to an external
// workflow endpoint. Deliveries that fail are logged and dropped; the
// shopping list converges on the next successful regeneration.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// Event is the outbound payload for a meal-plan mutation.
type Event struct {
	WeekID      int64  `json:"week_id"`
	HouseholdID int64  `json:"household_id"`
	Timestamp   string `json:"timestamp"`
}

// Notifier fires meal-plan-updated events at a configured webhook URL.
type Notifier struct {
	url    string
	client *http.Client
	log    *zap.Logger
	now    func() time.Time
}

// NewNotifier creates a notifier. An empty URL disables delivery; events are
// skipped with a warning.
func NewNotifier(url string, log *zap.Logger) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
		log:    log,
		now:    time.Now,
	}
}

// MealPlanUpdated posts the event. It never returns an error: delivery is
// fire-and-forget, bounded by the client timeout, and detached from whatever
// request triggered it.
func (n *Notifier) MealPlanUpdated(weekID, householdID int64) {
	if n.url == "" {
		n.log.Warn("sync webhook URL not configured, skipping trigger",
			zap.Int64("week_id", weekID))
		return
	}

	body, err := json.Marshal(Event{
		WeekID:      weekID,
		HouseholdID: householdID,
		Timestamp:   n.now().Format(time.RFC3339),
	})
	if err != nil {
		n.log.Error("failed to encode sync event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Error("failed to build sync request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Error("meal plan sync trigger failed",
			zap.Int64("week_id", weekID),
			zap.Int64("household_id", householdID),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.log.Warn("meal plan sync trigger rejected",
			zap.Int64("week_id", weekID),
			zap.Int("status", resp.StatusCode))
		return
	}

	n.log.Info("meal plan sync trigger delivered",
		zap.Int64("week_id", weekID),
		zap.Int64("household_id", householdID))
}
