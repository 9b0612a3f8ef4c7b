package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pantrysync/internal/catalog"
	"pantrysync/internal/mealplan"
	"pantrysync/internal/pantry"
	"pantrysync/internal/shopping"
	"pantrysync/internal/storage"
)

const dbTimeout = 5 * time.Second

// PantryStore defines the pantry ledger operations the handlers need.
type PantryStore interface {
	List(ctx context.Context, householdID int64) ([]pantry.Item, error)
	AddOrMerge(ctx context.Context, householdID, ingredientID, unitID int64, quantity decimal.Decimal, expiry *time.Time, location *string) (*pantry.Item, error)
	Update(ctx context.Context, id, householdID int64, params pantry.UpdateParams) (*pantry.Item, error)
	Delete(ctx context.Context, id, householdID int64) error
	Decrement(ctx context.Context, id, householdID int64, amount decimal.Decimal) (*pantry.ConsumeResult, error)
	ExpiringWithin(ctx context.Context, householdID int64, days int) ([]pantry.Item, error)
	MergeDuplicates(ctx context.Context, householdID int64) (*pantry.MergeResult, error)
}

// MealPlanStore defines the weekly-plan operations the handlers need.
type MealPlanStore interface {
	GetOrCreateWeek(ctx context.Context, householdID int64, startDate time.Time) (*mealplan.Week, error)
	WeekByStart(ctx context.Context, householdID int64, startDate time.Time) (*mealplan.Week, error)
	WeekByID(ctx context.Context, weekID int64) (*mealplan.Week, error)
	UpsertMeal(ctx context.Context, weekID, householdID int64, day int, slot string, recipeID int64) (*mealplan.Meal, error)
	RemoveMeal(ctx context.Context, weekID, householdID, mealID int64) error
}

// ShoppingStore defines the shopping-list operations the handlers need.
type ShoppingStore interface {
	GetAll(ctx context.Context, householdID int64) ([]shopping.List, error)
	Get(ctx context.Context, id, householdID int64) (*shopping.List, error)
	GetByWeek(ctx context.Context, weekID int64) (*shopping.List, error)
	Create(ctx context.Context, householdID int64, title string, weekID *int64) (*shopping.List, error)
	Update(ctx context.Context, id, householdID int64, title *string, isCompleted *bool) (*shopping.List, error)
	Delete(ctx context.Context, id, householdID int64) error
	AddItem(ctx context.Context, listID, householdID, ingredientID int64, quantity decimal.Decimal, unitID int64) (*shopping.Item, error)
	UpdateItem(ctx context.Context, listID, householdID, itemID int64, quantity *decimal.Decimal, bought *bool) (*shopping.Item, error)
	DeleteItem(ctx context.Context, listID, householdID, itemID int64) error
	GenerateFromMealPlan(ctx context.Context, householdID, weekID int64, title string) (*shopping.List, error)
	RegenerateItems(ctx context.Context, listID, householdID, weekID int64) (*shopping.List, error)
}

// CatalogStore defines the unit/ingredient reference operations.
type CatalogStore interface {
	ListUnits(ctx context.Context) ([]catalog.Unit, error)
	CreateUnit(ctx context.Context, name string, abbreviation *string) (*catalog.Unit, error)
	FindUnit(ctx context.Context, key string) (*catalog.Unit, error)
	ListIngredients(ctx context.Context, householdID int64, search string) ([]catalog.Ingredient, error)
	GetIngredient(ctx context.Context, id, householdID int64) (*catalog.Ingredient, error)
	CreateIngredient(ctx context.Context, householdID int64, name string, unitID *int64, calories, protein, carbs, fat decimal.Decimal) (*catalog.Ingredient, error)
}

// Notifier fires the outbound sync trigger after a meal-plan mutation.
type Notifier interface {
	MealPlanUpdated(weekID, householdID int64)
}

// Handler handles HTTP requests.
type Handler struct {
	Pantry        PantryStore
	MealPlans     MealPlanStore
	Shopping      ShoppingStore
	Catalog       CatalogStore
	Notifier      Notifier
	WebhookSecret string
	Log           *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(pantryStore PantryStore, mealPlanStore MealPlanStore, shoppingStore ShoppingStore, catalogStore CatalogStore, notifier Notifier, webhookSecret string, log *zap.Logger) *Handler {
	return &Handler{
		Pantry:        pantryStore,
		MealPlans:     mealPlanStore,
		Shopping:      shoppingStore,
		Catalog:       catalogStore,
		Notifier:      notifier,
		WebhookSecret: webhookSecret,
		Log:           log,
	}
}

// householdID reads the household scope from the X-Household-ID header. The
// external directory authenticates callers; this service only scopes by the
// id it is handed.
func householdID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader("X-Household-ID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid X-Household-ID header"})
		return 0, false
	}
	return id, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps store errors to HTTP statuses. Anything outside the
// caller's household surfaces as a plain 404.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func reqContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), dbTimeout)
}

// --- Pantry ---

type createPantryItemRequest struct {
	IngredientID int64           `json:"ingredient_id" binding:"required"`
	UnitID       int64           `json:"unit_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	ExpiryDate   *string         `json:"expiry_date"`
	Location     *string         `json:"location"`
}

// GetPantry returns the household's pantry rows.
func (h *Handler) GetPantry(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	items, err := h.Pantry.List(ctx, hid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreatePantryItem adds stock, merging onto an existing row when the identity
// tuple matches.
func (h *Handler) CreatePantryItem(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	var req createPantryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
		return
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expiry_date"})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	item, err := h.Pantry.AddOrMerge(ctx, hid, req.IngredientID, req.UnitID, req.Quantity, expiry, req.Location)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type updatePantryItemRequest struct {
	Quantity   *decimal.Decimal `json:"quantity"`
	UnitID     *int64           `json:"unit_id"`
	ExpiryDate *string          `json:"expiry_date"`
	Location   *string          `json:"location"`
}

// UpdatePantryItem applies a partial edit to one pantry row.
func (h *Handler) UpdatePantryItem(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updatePantryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity != nil && req.Quantity.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
		return
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expiry_date"})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	item, err := h.Pantry.Update(ctx, id, hid, pantry.UpdateParams{
		Quantity:   req.Quantity,
		UnitID:     req.UnitID,
		ExpiryDate: expiry,
		Location:   req.Location,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeletePantryItem removes a pantry row.
func (h *Handler) DeletePantryItem(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Pantry.Delete(ctx, id, hid); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type setExpiryRequest struct {
	ExpiryDate string `json:"expiry_date" binding:"required"`
}

// SetPantryItemExpiry sets just the expiry date of a pantry row.
func (h *Handler) SetPantryItemExpiry(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	expiry, err := parseDate(&req.ExpiryDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expiry_date"})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	item, err := h.Pantry.Update(ctx, id, hid, pantry.UpdateParams{ExpiryDate: expiry})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type consumeRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// ConsumePantryItem decrements stock; exhausting a row deletes it.
func (h *Handler) ConsumePantryItem(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	result, err := h.Pantry.Decrement(ctx, id, hid, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetExpiringPantry returns rows expiring within ?days (default 7).
func (h *Handler) GetExpiringPantry(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	days := 7
	if v := c.Query("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
		days = parsed
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	items, err := h.Pantry.ExpiringWithin(ctx, hid, days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// MergeDuplicatePantryItems collapses duplicate pantry rows.
func (h *Handler) MergeDuplicatePantryItems(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	result, err := h.Pantry.MergeDuplicates(ctx, hid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- Meal plans ---

// GetWeeklyPlan returns the plan for the week of ?start_date (default: the
// current week).
func (h *Handler) GetWeeklyPlan(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	start := time.Now()
	if v := c.Query("start_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
			return
		}
		start = parsed
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	week, err := h.MealPlans.WeekByStart(ctx, hid, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

type createWeekRequest struct {
	StartDate string `json:"start_date" binding:"required"`
}

// CreateWeeklyPlan creates (or returns) the household's week for a date.
func (h *Handler) CreateWeeklyPlan(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	var req createWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date"})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	week, err := h.MealPlans.GetOrCreateWeek(ctx, hid, start)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

type addMealRequest struct {
	Day      int    `json:"day" binding:"gte=0,lte=6"`
	Slot     string `json:"slot" binding:"required,oneof=breakfast lunch dinner snack"`
	RecipeID int64  `json:"recipe_id" binding:"required"`
}

// AddMeal assigns a recipe to a day/slot cell and fires the sync trigger.
func (h *Handler) AddMeal(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	weekID, ok := pathID(c, "weekId")
	if !ok {
		return
	}
	var req addMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	meal, err := h.MealPlans.UpsertMeal(ctx, weekID, hid, req.Day, req.Slot, req.RecipeID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.Notifier.MealPlanUpdated(weekID, hid)
	c.JSON(http.StatusOK, meal)
}

// RemoveMeal deletes a meal and fires the sync trigger.
func (h *Handler) RemoveMeal(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	weekID, ok := pathID(c, "weekId")
	if !ok {
		return
	}
	mealID, ok := pathID(c, "mealId")
	if !ok {
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.MealPlans.RemoveMeal(ctx, weekID, hid, mealID); err != nil {
		respondError(c, err)
		return
	}

	h.Notifier.MealPlanUpdated(weekID, hid)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// --- Shopping lists ---

// GetShoppingLists returns all of the household's lists.
func (h *Handler) GetShoppingLists(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	lists, err := h.Shopping.GetAll(ctx, hid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}

// GetShoppingList returns one list with its items.
func (h *Handler) GetShoppingList(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.Shopping.Get(ctx, id, hid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type createListRequest struct {
	Title  string `json:"title" binding:"required"`
	WeekID *int64 `json:"week_id"`
}

// CreateShoppingList inserts an empty list.
func (h *Handler) CreateShoppingList(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	var req createListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.Shopping.Create(ctx, hid, req.Title, req.WeekID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type updateListRequest struct {
	Title       *string `json:"title"`
	IsCompleted *bool   `json:"is_completed"`
}

// UpdateShoppingList edits a list's title or completion flag.
func (h *Handler) UpdateShoppingList(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.Shopping.Update(ctx, id, hid, req.Title, req.IsCompleted)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteShoppingList removes a list.
func (h *Handler) DeleteShoppingList(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Shopping.Delete(ctx, id, hid); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type generateListRequest struct {
	WeekID int64  `json:"week_id" binding:"required"`
	Title  string `json:"title"`
}

// GenerateShoppingList creates a list holding the week's shortfall against
// the pantry.
func (h *Handler) GenerateShoppingList(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	var req generateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.Shopping.GenerateFromMealPlan(ctx, hid, req.WeekID, req.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type regenerateListRequest struct {
	WeekID int64 `json:"week_id" binding:"required"`
}

// RegenerateShoppingList recomputes a list's items from the current meal
// plan and pantry state.
func (h *Handler) RegenerateShoppingList(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req regenerateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.Shopping.RegenerateItems(ctx, id, hid, req.WeekID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type addItemRequest struct {
	IngredientID int64           `json:"ingredient_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	UnitID       int64           `json:"unit_id" binding:"required"`
}

// AddShoppingListItem appends a manual line to a list. Manual edits never
// re-trigger aggregation.
func (h *Handler) AddShoppingListItem(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	item, err := h.Shopping.AddItem(ctx, id, hid, req.IngredientID, req.Quantity, req.UnitID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type updateItemRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Bought   *bool            `json:"bought"`
}

// UpdateShoppingListItem edits a line's quantity or bought flag.
func (h *Handler) UpdateShoppingListItem(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity != nil && req.Quantity.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must not be negative"})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	item, err := h.Shopping.UpdateItem(ctx, id, hid, itemID, req.Quantity, req.Bought)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteShoppingListItem removes a line from a list.
func (h *Handler) DeleteShoppingListItem(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Shopping.DeleteItem(ctx, id, hid, itemID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// --- Catalog ---

// GetUnits lists all measurement units.
func (h *Handler) GetUnits(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	units, err := h.Catalog.ListUnits(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, units)
}

type createUnitRequest struct {
	Name         string  `json:"name" binding:"required"`
	Abbreviation *string `json:"abbreviation"`
}

// CreateUnit inserts a measurement unit.
func (h *Handler) CreateUnit(c *gin.Context) {
	var req createUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	unit, err := h.Catalog.CreateUnit(ctx, req.Name, req.Abbreviation)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// LookupUnit resolves ?q against unit names and abbreviations,
// case-insensitively.
func (h *Handler) LookupUnit(c *gin.Context) {
	key := c.Query("q")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q"})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	unit, err := h.Catalog.FindUnit(ctx, key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// GetIngredients lists the household's ingredients, optionally filtered by
// ?search.
func (h *Handler) GetIngredients(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	ingredients, err := h.Catalog.ListIngredients(ctx, hid, c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

// GetIngredient returns one ingredient.
func (h *Handler) GetIngredient(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := reqContext(c)
	defer cancel()

	ingredient, err := h.Catalog.GetIngredient(ctx, id, hid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

type createIngredientRequest struct {
	Name     string          `json:"name" binding:"required"`
	UnitID   *int64          `json:"unit_id"`
	Calories decimal.Decimal `json:"calories"`
	Protein  decimal.Decimal `json:"protein"`
	Carbs    decimal.Decimal `json:"carbs"`
	Fat      decimal.Decimal `json:"fat"`
}

// CreateIngredient inserts a household-scoped ingredient.
func (h *Handler) CreateIngredient(c *gin.Context) {
	hid, ok := householdID(c)
	if !ok {
		return
	}
	var req createIngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	ingredient, err := h.Catalog.CreateIngredient(ctx, hid, req.Name, req.UnitID, req.Calories, req.Protein, req.Carbs, req.Fat)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}

func parseDate(v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
