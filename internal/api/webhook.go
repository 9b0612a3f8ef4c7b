package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantrysync/internal/storage"
)

type webhookRequest struct {
	WeekID int64  `json:"week_id" binding:"required"`
	Secret string `json:"secret"`
}

// MealPlanUpdatedWebhook is the inbound half of the synchronization loop.
// The external workflow posts the week id it was told about; the shopping
// list tied to that week, if any, is regenerated from scratch. Regeneration
// recomputes everything, so duplicate deliveries of the same event are safe.
func (h *Handler) MealPlanUpdatedWebhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.WebhookSecret != "" {
		provided := c.GetHeader("X-Webhook-Secret")
		if provided == "" {
			provided = req.Secret
		}
		if provided != h.WebhookSecret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	week, err := h.MealPlans.WeekByID(ctx, req.WeekID)
	if err != nil {
		respondError(c, err)
		return
	}

	list, err := h.Shopping.GetByWeek(ctx, week.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// No list is tied to this week yet; nothing to regenerate.
		c.JSON(http.StatusOK, gin.H{
			"message":          "no shopping list for week",
			"week_id":          week.ID,
			"shopping_list_id": nil,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.Shopping.RegenerateItems(ctx, list.ID, week.HouseholdID, week.ID); err != nil {
		respondError(c, err)
		return
	}

	h.Log.Info("shopping list regenerated from webhook",
		zap.Int64("week_id", week.ID),
		zap.Int64("shopping_list_id", list.ID))

	c.JSON(http.StatusOK, gin.H{
		"message":          "shopping list updated",
		"week_id":          week.ID,
		"shopping_list_id": list.ID,
	})
}
