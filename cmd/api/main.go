package main

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantrysync/internal/api"
	"pantrysync/internal/catalog"
	"pantrysync/internal/config"
	"pantrysync/internal/mealplan"
	"pantrysync/internal/notify"
	"pantrysync/internal/pantry"
	"pantrysync/internal/shopping"
	"pantrysync/internal/storage"
)

func main() {
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to create logger: %w", err))
	}
	defer log.Sync()

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	handler := api.NewHandler(
		pantry.NewStore(db),
		mealplan.NewStore(db),
		shopping.NewStore(db),
		catalog.NewStore(db),
		notify.NewNotifier(cfg.SyncWebhookURL, log),
		cfg.WebhookSecret,
		log,
	)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Household-ID", "X-Webhook-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/pantry", handler.GetPantry)
	r.POST("/pantry", handler.CreatePantryItem)
	r.GET("/pantry/expiring", handler.GetExpiringPantry)
	r.POST("/pantry/merge-duplicates", handler.MergeDuplicatePantryItems)
	r.POST("/pantry/:id/update", handler.UpdatePantryItem)
	r.POST("/pantry/:id/expiry", handler.SetPantryItemExpiry)
	r.POST("/pantry/:id/delete", handler.DeletePantryItem)
	r.POST("/pantry/:id/consume", handler.ConsumePantryItem)

	r.GET("/meal-plans", handler.GetWeeklyPlan)
	r.POST("/meal-plans", handler.CreateWeeklyPlan)
	r.POST("/meal-plans/:weekId/meals", handler.AddMeal)
	r.POST("/meal-plans/:weekId/meals/:mealId/delete", handler.RemoveMeal)

	r.GET("/shopping-lists", handler.GetShoppingLists)
	r.POST("/shopping-lists", handler.CreateShoppingList)
	r.POST("/shopping-lists/generate", handler.GenerateShoppingList)
	r.GET("/shopping-lists/:id", handler.GetShoppingList)
	r.POST("/shopping-lists/:id/update", handler.UpdateShoppingList)
	r.POST("/shopping-lists/:id/delete", handler.DeleteShoppingList)
	r.POST("/shopping-lists/:id/regenerate", handler.RegenerateShoppingList)
	r.POST("/shopping-lists/:id/items", handler.AddShoppingListItem)
	r.POST("/shopping-lists/:id/items/:itemId/update", handler.UpdateShoppingListItem)
	r.POST("/shopping-lists/:id/items/:itemId/delete", handler.DeleteShoppingListItem)

	r.GET("/units", handler.GetUnits)
	r.POST("/units", handler.CreateUnit)
	r.GET("/units/lookup", handler.LookupUnit)
	r.GET("/ingredients", handler.GetIngredients)
	r.POST("/ingredients", handler.CreateIngredient)
	r.GET("/ingredients/:id", handler.GetIngredient)

	r.POST("/webhooks/meal-plan-updated", handler.MealPlanUpdatedWebhook)

	log.Info("starting server", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
