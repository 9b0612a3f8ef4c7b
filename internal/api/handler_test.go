package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pantrysync/internal/catalog"
	"pantrysync/internal/mealplan"
	"pantrysync/internal/pantry"
	"pantrysync/internal/shopping"
	"pantrysync/internal/storage"
)

// mockPantryStore keeps inventory in memory with the same merge/consume
// semantics as the SQL store.
type mockPantryStore struct {
	items  map[int64]pantry.Item
	nextID int64
}

func newMockPantryStore() *mockPantryStore {
	return &mockPantryStore{items: make(map[int64]pantry.Item), nextID: 1}
}

func (m *mockPantryStore) put(it pantry.Item) pantry.Item {
	it.ID = m.nextID
	m.nextID++
	m.items[it.ID] = it
	return it
}

func (m *mockPantryStore) List(ctx context.Context, householdID int64) ([]pantry.Item, error) {
	out := []pantry.Item{}
	for _, it := range m.items {
		if it.HouseholdID == householdID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockPantryStore) AddOrMerge(ctx context.Context, householdID, ingredientID, unitID int64, quantity decimal.Decimal, expiry *time.Time, location *string) (*pantry.Item, error) {
	candidate := pantry.Item{
		HouseholdID:  householdID,
		IngredientID: ingredientID,
		UnitID:       unitID,
		Quantity:     quantity,
		ExpiryDate:   expiry,
		Location:     location,
	}
	key := pantry.KeyOf(candidate)
	for id, it := range m.items {
		if pantry.KeyOf(it) == key {
			it.Quantity = it.Quantity.Add(quantity)
			m.items[id] = it
			return &it, nil
		}
	}
	it := m.put(candidate)
	return &it, nil
}

func (m *mockPantryStore) Update(ctx context.Context, id, householdID int64, params pantry.UpdateParams) (*pantry.Item, error) {
	it, ok := m.items[id]
	if !ok || it.HouseholdID != householdID {
		return nil, storage.ErrNotFound
	}
	if params.Quantity != nil {
		it.Quantity = *params.Quantity
	}
	if params.UnitID != nil {
		it.UnitID = *params.UnitID
	}
	if params.ExpiryDate != nil {
		it.ExpiryDate = params.ExpiryDate
	}
	if params.Location != nil {
		it.Location = params.Location
	}
	// An edit that lands on another row's identity tuple merges into it.
	key := pantry.KeyOf(it)
	for otherID, other := range m.items {
		if otherID != id && pantry.KeyOf(other) == key {
			other.Quantity = other.Quantity.Add(it.Quantity)
			m.items[otherID] = other
			delete(m.items, id)
			return &other, nil
		}
	}
	m.items[id] = it
	return &it, nil
}

func (m *mockPantryStore) Delete(ctx context.Context, id, householdID int64) error {
	it, ok := m.items[id]
	if !ok || it.HouseholdID != householdID {
		return storage.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockPantryStore) Decrement(ctx context.Context, id, householdID int64, amount decimal.Decimal) (*pantry.ConsumeResult, error) {
	it, ok := m.items[id]
	if !ok || it.HouseholdID != householdID {
		return nil, storage.ErrNotFound
	}
	it.Quantity = it.Quantity.Sub(amount)
	if it.Quantity.Sign() <= 0 {
		delete(m.items, id)
		return &pantry.ConsumeResult{Deleted: true}, nil
	}
	m.items[id] = it
	return &pantry.ConsumeResult{Deleted: false, Item: &it}, nil
}

func (m *mockPantryStore) ExpiringWithin(ctx context.Context, householdID int64, days int) ([]pantry.Item, error) {
	from, to := pantry.DayRange(days)
	out := []pantry.Item{}
	for _, it := range m.items {
		if it.HouseholdID != householdID || it.ExpiryDate == nil || it.Quantity.Sign() <= 0 {
			continue
		}
		if !it.ExpiryDate.Before(from) && !it.ExpiryDate.After(to) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(*out[j].ExpiryDate) })
	return out, nil
}

func (m *mockPantryStore) MergeDuplicates(ctx context.Context, householdID int64) (*pantry.MergeResult, error) {
	rows, _ := m.List(ctx, householdID)
	plan := pantry.PlanMerge(rows)
	for id, quantity := range plan.Updates {
		it := m.items[id]
		it.Quantity = quantity
		m.items[id] = it
	}
	for _, id := range plan.Deletes {
		delete(m.items, id)
	}
	return &pantry.MergeResult{Merged: plan.Groups, Deleted: len(plan.Deletes)}, nil
}

// mockMealPlanStore holds weeks and meals keyed the same way the schema is.
type mockMealPlanStore struct {
	weeks  map[int64]mealplan.Week
	meals  map[int64]mealplan.Meal
	nextID int64
}

func newMockMealPlanStore() *mockMealPlanStore {
	return &mockMealPlanStore{
		weeks:  make(map[int64]mealplan.Week),
		meals:  make(map[int64]mealplan.Meal),
		nextID: 1,
	}
}

func (m *mockMealPlanStore) addWeek(id, householdID int64) {
	m.weeks[id] = mealplan.Week{ID: id, HouseholdID: householdID}
}

func (m *mockMealPlanStore) GetOrCreateWeek(ctx context.Context, householdID int64, startDate time.Time) (*mealplan.Week, error) {
	start := mealplan.WeekStart(startDate)
	for _, w := range m.weeks {
		if w.HouseholdID == householdID && w.StartDate.Equal(start) {
			return &w, nil
		}
	}
	w := mealplan.Week{ID: m.nextID, HouseholdID: householdID, StartDate: start, EndDate: start.AddDate(0, 0, 6)}
	m.nextID++
	m.weeks[w.ID] = w
	return &w, nil
}

func (m *mockMealPlanStore) WeekByStart(ctx context.Context, householdID int64, startDate time.Time) (*mealplan.Week, error) {
	start := mealplan.WeekStart(startDate)
	for _, w := range m.weeks {
		if w.HouseholdID == householdID && w.StartDate.Equal(start) {
			return &w, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockMealPlanStore) WeekByID(ctx context.Context, weekID int64) (*mealplan.Week, error) {
	w, ok := m.weeks[weekID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &w, nil
}

func (m *mockMealPlanStore) UpsertMeal(ctx context.Context, weekID, householdID int64, day int, slot string, recipeID int64) (*mealplan.Meal, error) {
	w, ok := m.weeks[weekID]
	if !ok || w.HouseholdID != householdID {
		return nil, storage.ErrNotFound
	}
	for id, meal := range m.meals {
		if meal.WeekID == weekID && meal.Day == day && meal.Slot == slot {
			meal.RecipeID = recipeID
			m.meals[id] = meal
			return &meal, nil
		}
	}
	meal := mealplan.Meal{ID: m.nextID, WeekID: weekID, Day: day, Slot: slot, RecipeID: recipeID}
	m.nextID++
	m.meals[meal.ID] = meal
	return &meal, nil
}

func (m *mockMealPlanStore) RemoveMeal(ctx context.Context, weekID, householdID, mealID int64) error {
	w, ok := m.weeks[weekID]
	if !ok || w.HouseholdID != householdID {
		return storage.ErrNotFound
	}
	meal, ok := m.meals[mealID]
	if !ok || meal.WeekID != weekID {
		return storage.ErrNotFound
	}
	delete(m.meals, mealID)
	return nil
}

// mockShoppingStore regenerates items through the real aggregator so the
// webhook flow is exercised end to end.
type mockShoppingStore struct {
	lists          map[int64]shopping.List
	nextID         int64
	weekHouseholds map[int64]int64
	demand         map[int64][]shopping.DemandRow // week id -> pivot rows
	supply         []shopping.SupplyRow
	regenerated    []int64 // list ids, in call order
}

func newMockShoppingStore() *mockShoppingStore {
	return &mockShoppingStore{
		lists:          make(map[int64]shopping.List),
		nextID:         1,
		weekHouseholds: make(map[int64]int64),
		demand:         make(map[int64][]shopping.DemandRow),
	}
}

func (m *mockShoppingStore) GetAll(ctx context.Context, householdID int64) ([]shopping.List, error) {
	out := []shopping.List{}
	for _, l := range m.lists {
		if l.HouseholdID == householdID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockShoppingStore) Get(ctx context.Context, id, householdID int64) (*shopping.List, error) {
	l, ok := m.lists[id]
	if !ok || l.HouseholdID != householdID {
		return nil, storage.ErrNotFound
	}
	return &l, nil
}

func (m *mockShoppingStore) GetByWeek(ctx context.Context, weekID int64) (*shopping.List, error) {
	for _, l := range m.lists {
		if l.WeekID != nil && *l.WeekID == weekID {
			return &l, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockShoppingStore) Create(ctx context.Context, householdID int64, title string, weekID *int64) (*shopping.List, error) {
	l := shopping.List{ID: m.nextID, HouseholdID: householdID, Title: title, WeekID: weekID, Items: []shopping.Item{}}
	m.nextID++
	m.lists[l.ID] = l
	return &l, nil
}

func (m *mockShoppingStore) Update(ctx context.Context, id, householdID int64, title *string, isCompleted *bool) (*shopping.List, error) {
	l, ok := m.lists[id]
	if !ok || l.HouseholdID != householdID {
		return nil, storage.ErrNotFound
	}
	if title != nil {
		l.Title = *title
	}
	if isCompleted != nil {
		l.IsCompleted = *isCompleted
	}
	m.lists[id] = l
	return &l, nil
}

func (m *mockShoppingStore) Delete(ctx context.Context, id, householdID int64) error {
	l, ok := m.lists[id]
	if !ok || l.HouseholdID != householdID {
		return storage.ErrNotFound
	}
	delete(m.lists, id)
	return nil
}

func (m *mockShoppingStore) AddItem(ctx context.Context, listID, householdID, ingredientID int64, quantity decimal.Decimal, unitID int64) (*shopping.Item, error) {
	l, ok := m.lists[listID]
	if !ok || l.HouseholdID != householdID {
		return nil, storage.ErrNotFound
	}
	it := shopping.Item{ID: m.nextID, ShoppingListID: listID, IngredientID: ingredientID, Quantity: quantity, UnitID: unitID}
	m.nextID++
	l.Items = append(l.Items, it)
	m.lists[listID] = l
	return &it, nil
}

func (m *mockShoppingStore) UpdateItem(ctx context.Context, listID, householdID, itemID int64, quantity *decimal.Decimal, bought *bool) (*shopping.Item, error) {
	l, ok := m.lists[listID]
	if !ok || l.HouseholdID != householdID {
		return nil, storage.ErrNotFound
	}
	for i, it := range l.Items {
		if it.ID == itemID {
			if quantity != nil {
				it.Quantity = *quantity
			}
			if bought != nil {
				it.Bought = *bought
			}
			l.Items[i] = it
			m.lists[listID] = l
			return &it, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockShoppingStore) DeleteItem(ctx context.Context, listID, householdID, itemID int64) error {
	l, ok := m.lists[listID]
	if !ok || l.HouseholdID != householdID {
		return storage.ErrNotFound
	}
	for i, it := range l.Items {
		if it.ID == itemID {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			m.lists[listID] = l
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *mockShoppingStore) GenerateFromMealPlan(ctx context.Context, householdID, weekID int64, title string) (*shopping.List, error) {
	owner, ok := m.weekHouseholds[weekID]
	if !ok || owner != householdID {
		return nil, storage.ErrNotFound
	}
	if title == "" {
		title = "Shopping List"
	}
	wid := weekID
	l := shopping.List{ID: m.nextID, HouseholdID: householdID, Title: title, WeekID: &wid}
	m.nextID++
	l.Items = m.buildItems(l.ID, weekID)
	m.lists[l.ID] = l
	return &l, nil
}

func (m *mockShoppingStore) RegenerateItems(ctx context.Context, listID, householdID, weekID int64) (*shopping.List, error) {
	l, ok := m.lists[listID]
	if !ok || l.HouseholdID != householdID {
		return nil, storage.ErrNotFound
	}
	owner, ok := m.weekHouseholds[weekID]
	if !ok || owner != householdID {
		return nil, storage.ErrNotFound
	}
	l.Items = m.buildItems(listID, weekID)
	m.lists[listID] = l
	m.regenerated = append(m.regenerated, listID)
	return &l, nil
}

func (m *mockShoppingStore) buildItems(listID, weekID int64) []shopping.Item {
	items := []shopping.Item{}
	for _, sf := range shopping.ComputeShortfalls(m.demand[weekID], m.supply) {
		items = append(items, shopping.Item{
			ID:             m.nextID,
			ShoppingListID: listID,
			IngredientID:   sf.IngredientID,
			Quantity:       sf.Quantity,
			UnitID:         sf.UnitID,
		})
		m.nextID++
	}
	return items
}

// mockCatalogStore serves fixed reference data.
type mockCatalogStore struct {
	units       []catalog.Unit
	ingredients []catalog.Ingredient
}

func (m *mockCatalogStore) ListUnits(ctx context.Context) ([]catalog.Unit, error) {
	return m.units, nil
}

func (m *mockCatalogStore) CreateUnit(ctx context.Context, name string, abbreviation *string) (*catalog.Unit, error) {
	u := catalog.Unit{ID: int64(len(m.units) + 1), Name: name, Abbreviation: abbreviation}
	m.units = append(m.units, u)
	return &u, nil
}

func (m *mockCatalogStore) FindUnit(ctx context.Context, key string) (*catalog.Unit, error) {
	for _, u := range m.units {
		if strings.EqualFold(u.Name, key) || (u.Abbreviation != nil && strings.EqualFold(*u.Abbreviation, key)) {
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockCatalogStore) ListIngredients(ctx context.Context, householdID int64, search string) ([]catalog.Ingredient, error) {
	out := []catalog.Ingredient{}
	for _, ing := range m.ingredients {
		if ing.HouseholdID == householdID {
			out = append(out, ing)
		}
	}
	return out, nil
}

func (m *mockCatalogStore) GetIngredient(ctx context.Context, id, householdID int64) (*catalog.Ingredient, error) {
	for _, ing := range m.ingredients {
		if ing.ID == id && ing.HouseholdID == householdID {
			return &ing, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockCatalogStore) CreateIngredient(ctx context.Context, householdID int64, name string, unitID *int64, calories, protein, carbs, fat decimal.Decimal) (*catalog.Ingredient, error) {
	ing := catalog.Ingredient{ID: int64(len(m.ingredients) + 1), HouseholdID: householdID, Name: name, UnitID: unitID}
	m.ingredients = append(m.ingredients, ing)
	return &ing, nil
}

type syncEvent struct {
	weekID      int64
	householdID int64
}

type mockNotifier struct {
	events []syncEvent
}

func (m *mockNotifier) MealPlanUpdated(weekID, householdID int64) {
	m.events = append(m.events, syncEvent{weekID, householdID})
}

type fixture struct {
	router   *gin.Engine
	pantry   *mockPantryStore
	plans    *mockMealPlanStore
	shopping *mockShoppingStore
	notifier *mockNotifier
}

func newFixture(webhookSecret string) *fixture {
	gin.SetMode(gin.TestMode)

	f := &fixture{
		pantry:   newMockPantryStore(),
		plans:    newMockMealPlanStore(),
		shopping: newMockShoppingStore(),
		notifier: &mockNotifier{},
	}
	g := "g"
	h := NewHandler(f.pantry, f.plans, f.shopping,
		&mockCatalogStore{units: []catalog.Unit{{ID: 1, Name: "gram", Abbreviation: &g}}},
		f.notifier, webhookSecret, zap.NewNop())

	r := gin.New()
	r.GET("/pantry", h.GetPantry)
	r.POST("/pantry", h.CreatePantryItem)
	r.GET("/pantry/expiring", h.GetExpiringPantry)
	r.POST("/pantry/merge-duplicates", h.MergeDuplicatePantryItems)
	r.POST("/pantry/:id/update", h.UpdatePantryItem)
	r.POST("/pantry/:id/expiry", h.SetPantryItemExpiry)
	r.POST("/pantry/:id/consume", h.ConsumePantryItem)
	r.POST("/meal-plans/:weekId/meals", h.AddMeal)
	r.POST("/meal-plans/:weekId/meals/:mealId/delete", h.RemoveMeal)
	r.POST("/shopping-lists/generate", h.GenerateShoppingList)
	r.POST("/shopping-lists/:id/regenerate", h.RegenerateShoppingList)
	r.POST("/webhooks/meal-plan-updated", h.MealPlanUpdatedWebhook)
	r.GET("/units/lookup", h.LookupUnit)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, householdID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if householdID != "" {
		req.Header.Set("X-Household-ID", householdID)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestConsume_ExhaustingRowDeletesIt(t *testing.T) {
	f := newFixture("")
	f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 5, UnitID: 2, Quantity: decimal.NewFromInt(3)})

	rr := f.do(t, http.MethodPost, "/pantry/1/consume", "1", gin.H{"quantity": 5})

	require.Equal(t, http.StatusOK, rr.Code)
	var result pantry.ConsumeResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.True(t, result.Deleted)
	assert.Nil(t, result.Item)

	rr = f.do(t, http.MethodGet, "/pantry", "1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var items []pantry.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	assert.Empty(t, items)
}

func TestConsume_PartialKeepsRow(t *testing.T) {
	f := newFixture("")
	it := f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 5, UnitID: 2, Quantity: decimal.NewFromInt(10)})

	rr := f.do(t, http.MethodPost, "/pantry/1/consume", "1", gin.H{"quantity": 4})

	require.Equal(t, http.StatusOK, rr.Code)
	var result pantry.ConsumeResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.False(t, result.Deleted)
	require.NotNil(t, result.Item)
	assert.True(t, result.Item.Quantity.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, it.ID, result.Item.ID)
}

func TestConsume_OtherHouseholdGetsNotFound(t *testing.T) {
	f := newFixture("")
	f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 5, UnitID: 2, Quantity: decimal.NewFromInt(3)})

	rr := f.do(t, http.MethodPost, "/pantry/1/consume", "2", gin.H{"quantity": 1})

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestConsume_NegativeQuantityRejected(t *testing.T) {
	f := newFixture("")
	f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 5, UnitID: 2, Quantity: decimal.NewFromInt(3)})

	rr := f.do(t, http.MethodPost, "/pantry/1/consume", "1", gin.H{"quantity": -1})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreatePantryItem_MergesOnIdentityTuple(t *testing.T) {
	f := newFixture("")

	body := gin.H{"ingredient_id": 7, "unit_id": 3, "quantity": 2}
	rr := f.do(t, http.MethodPost, "/pantry", "1", body)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, http.MethodPost, "/pantry", "1", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var merged pantry.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &merged))
	assert.True(t, merged.Quantity.Equal(decimal.NewFromInt(4)))

	items, _ := f.pantry.List(context.Background(), 1)
	assert.Len(t, items, 1)
}

func TestUpdatePantryItem_MovingOntoOccupiedTupleMerges(t *testing.T) {
	f := newFixture("")
	fridge, shelf := "fridge", "shelf"
	kept := f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 7, UnitID: 3, Quantity: decimal.NewFromInt(2), Location: &fridge})
	moved := f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 7, UnitID: 3, Quantity: decimal.NewFromInt(3), Location: &shelf})

	rr := f.do(t, http.MethodPost, "/pantry/"+strconv.FormatInt(moved.ID, 10)+"/update", "1",
		gin.H{"location": "fridge"})

	require.Equal(t, http.StatusOK, rr.Code)
	var result pantry.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, kept.ID, result.ID)
	assert.True(t, result.Quantity.Equal(decimal.NewFromInt(5)))

	items, _ := f.pantry.List(context.Background(), 1)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].ID)
}

func TestSetPantryItemExpiry(t *testing.T) {
	f := newFixture("")
	it := f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 7, UnitID: 3, Quantity: decimal.NewFromInt(2)})

	rr := f.do(t, http.MethodPost, "/pantry/"+strconv.FormatInt(it.ID, 10)+"/expiry", "1",
		gin.H{"expiry_date": "2026-09-15"})

	require.Equal(t, http.StatusOK, rr.Code)
	var result pantry.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.NotNil(t, result.ExpiryDate)
	assert.Equal(t, "2026-09-15", result.ExpiryDate.Format("2006-01-02"))

	rr = f.do(t, http.MethodPost, "/pantry/"+strconv.FormatInt(it.ID, 10)+"/expiry", "1",
		gin.H{"expiry_date": "not-a-date"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetExpiringPantry_WindowBoundaries(t *testing.T) {
	f := newFixture("")
	today, lastDay := pantry.DayRange(7)
	yesterday := today.AddDate(0, 0, -1)
	beyond := lastDay.AddDate(0, 0, 1)

	inWindowToday := f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 1, UnitID: 1, Quantity: decimal.NewFromInt(1), ExpiryDate: &today})
	inWindowEdge := f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 2, UnitID: 1, Quantity: decimal.NewFromInt(1), ExpiryDate: &lastDay})
	f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 3, UnitID: 1, Quantity: decimal.NewFromInt(1), ExpiryDate: &yesterday})
	f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 4, UnitID: 1, Quantity: decimal.NewFromInt(1), ExpiryDate: &beyond})
	f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 5, UnitID: 1, Quantity: decimal.Zero, ExpiryDate: &today})
	f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 6, UnitID: 1, Quantity: decimal.NewFromInt(1)})

	rr := f.do(t, http.MethodGet, "/pantry/expiring", "1", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var items []pantry.Item
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 2)
	// Soonest first: today's expiry before the edge of the window.
	assert.Equal(t, inWindowToday.ID, items[0].ID)
	assert.Equal(t, inWindowEdge.ID, items[1].ID)
}

func TestGetExpiringPantry_InvalidDays(t *testing.T) {
	f := newFixture("")

	rr := f.do(t, http.MethodGet, "/pantry/expiring?days=soon", "1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodGet, "/pantry/expiring?days=-1", "1", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMergeDuplicates_CollapsesAndIsIdempotent(t *testing.T) {
	f := newFixture("")
	// Two tomato rows, same unit, no expiry, no location.
	f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 7, UnitID: 3, Quantity: decimal.NewFromInt(2)})
	f.pantry.put(pantry.Item{HouseholdID: 1, IngredientID: 7, UnitID: 3, Quantity: decimal.NewFromInt(2)})

	rr := f.do(t, http.MethodPost, "/pantry/merge-duplicates", "1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var result pantry.MergeResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Deleted)

	items, _ := f.pantry.List(context.Background(), 1)
	require.Len(t, items, 1)
	assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(4)))

	rr = f.do(t, http.MethodPost, "/pantry/merge-duplicates", "1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 0, result.Deleted)
}

func TestAddMeal_FiresSyncTrigger(t *testing.T) {
	f := newFixture("")
	f.plans.addWeek(42, 1)

	rr := f.do(t, http.MethodPost, "/meal-plans/42/meals", "1",
		gin.H{"day": 0, "slot": "dinner", "recipe_id": 9})

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, syncEvent{42, 1}, f.notifier.events[0])
}

func TestAddMeal_InvalidSlotRejectedWithoutTrigger(t *testing.T) {
	f := newFixture("")
	f.plans.addWeek(42, 1)

	rr := f.do(t, http.MethodPost, "/meal-plans/42/meals", "1",
		gin.H{"day": 0, "slot": "brunch", "recipe_id": 9})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, f.notifier.events)
}

func TestAddMeal_OccupiedSlotOverwrites(t *testing.T) {
	f := newFixture("")
	f.plans.addWeek(42, 1)

	rr := f.do(t, http.MethodPost, "/meal-plans/42/meals", "1",
		gin.H{"day": 2, "slot": "lunch", "recipe_id": 9})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(t, http.MethodPost, "/meal-plans/42/meals", "1",
		gin.H{"day": 2, "slot": "lunch", "recipe_id": 11})
	require.Equal(t, http.StatusOK, rr.Code)

	count := 0
	var kept mealplan.Meal
	for _, meal := range f.plans.meals {
		if meal.WeekID == 42 && meal.Day == 2 && meal.Slot == "lunch" {
			count++
			kept = meal
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(11), kept.RecipeID)
}

func TestGenerateShoppingList_WeekOutsideHousehold(t *testing.T) {
	f := newFixture("")
	f.shopping.weekHouseholds[42] = 2 // belongs to another household

	rr := f.do(t, http.MethodPost, "/shopping-lists/generate", "1", gin.H{"week_id": 42})

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGenerateShoppingList_InsertsShortfallItems(t *testing.T) {
	f := newFixture("")
	f.shopping.weekHouseholds[42] = 1
	f.shopping.demand[42] = []shopping.DemandRow{{IngredientID: 1, UnitID: 10, Quantity: decimal.NewFromInt(500)}}
	f.shopping.supply = []shopping.SupplyRow{{IngredientID: 1, Quantity: decimal.NewFromInt(200)}}

	rr := f.do(t, http.MethodPost, "/shopping-lists/generate", "1", gin.H{"week_id": 42})

	require.Equal(t, http.StatusOK, rr.Code)
	var list shopping.List
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(1), list.Items[0].IngredientID)
	assert.Equal(t, int64(10), list.Items[0].UnitID)
	assert.True(t, list.Items[0].Quantity.Equal(decimal.NewFromInt(300)))
}

func TestRegenerate_Idempotent(t *testing.T) {
	f := newFixture("")
	f.shopping.weekHouseholds[42] = 1
	f.shopping.demand[42] = []shopping.DemandRow{
		{IngredientID: 1, UnitID: 10, Quantity: decimal.NewFromInt(500)},
		{IngredientID: 2, UnitID: 10, Quantity: decimal.NewFromInt(30)},
	}
	f.shopping.supply = []shopping.SupplyRow{{IngredientID: 1, Quantity: decimal.NewFromInt(200)}}
	wid := int64(42)
	f.shopping.lists[5] = shopping.List{ID: 5, HouseholdID: 1, WeekID: &wid, Title: "week 42"}
	f.shopping.nextID = 6

	type tuple struct {
		ingredient int64
		unit       int64
		quantity   string
	}
	extract := func(rr *httptest.ResponseRecorder) []tuple {
		var list shopping.List
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
		out := []tuple{}
		for _, it := range list.Items {
			out = append(out, tuple{it.IngredientID, it.UnitID, it.Quantity.String()})
		}
		return out
	}

	rr := f.do(t, http.MethodPost, "/shopping-lists/5/regenerate", "1", gin.H{"week_id": 42})
	require.Equal(t, http.StatusOK, rr.Code)
	first := extract(rr)

	rr = f.do(t, http.MethodPost, "/shopping-lists/5/regenerate", "1", gin.H{"week_id": 42})
	require.Equal(t, http.StatusOK, rr.Code)
	second := extract(rr)

	assert.Equal(t, first, second)
}

func TestWebhook_InvalidSecret(t *testing.T) {
	f := newFixture("s3cret")
	f.plans.addWeek(42, 1)

	rr := f.do(t, http.MethodPost, "/webhooks/meal-plan-updated", "", gin.H{"week_id": 42, "secret": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhook_SecretInHeader(t *testing.T) {
	f := newFixture("s3cret")
	f.plans.addWeek(42, 1)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(gin.H{"week_id": 42}))
	req := httptest.NewRequest(http.MethodPost, "/webhooks/meal-plan-updated", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", "s3cret")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestWebhook_UnknownWeek(t *testing.T) {
	f := newFixture("")

	rr := f.do(t, http.MethodPost, "/webhooks/meal-plan-updated", "", gin.H{"week_id": 99})

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWebhook_WeekWithoutListIsNoOp(t *testing.T) {
	f := newFixture("")
	f.plans.addWeek(42, 1)

	rr := f.do(t, http.MethodPost, "/webhooks/meal-plan-updated", "", gin.H{"week_id": 42})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, f.shopping.regenerated)
}

func TestMealRemovalThenWebhookRegeneratesList(t *testing.T) {
	f := newFixture("")
	f.plans.addWeek(42, 1)
	f.shopping.weekHouseholds[42] = 1

	// One dinner needing 500g of flour, pantry holding 200g.
	meal, err := f.plans.UpsertMeal(context.Background(), 42, 1, 4, "dinner", 9)
	require.NoError(t, err)
	f.plans.nextID = 100
	f.shopping.demand[42] = []shopping.DemandRow{{IngredientID: 1, UnitID: 10, Quantity: decimal.NewFromInt(500)}}
	f.shopping.supply = []shopping.SupplyRow{{IngredientID: 1, Quantity: decimal.NewFromInt(200)}}

	wid := int64(42)
	f.shopping.lists[5] = shopping.List{ID: 5, HouseholdID: 1, WeekID: &wid, Title: "week 42",
		Items: []shopping.Item{{ID: 1, ShoppingListID: 5, IngredientID: 1, Quantity: decimal.NewFromInt(300), UnitID: 10}}}
	f.shopping.nextID = 6

	// Removing the meal fires the outbound trigger...
	rr := f.do(t, http.MethodPost, "/meal-plans/42/meals/"+strconv.FormatInt(meal.ID, 10)+"/delete", "1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, syncEvent{42, 1}, f.notifier.events[0])

	// ...and the meal's demand is gone when the webhook comes back.
	f.shopping.demand[42] = nil

	rr = f.do(t, http.MethodPost, "/webhooks/meal-plan-updated", "", gin.H{"week_id": 42})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		WeekID         int64  `json:"week_id"`
		ShoppingListID *int64 `json:"shopping_list_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.WeekID)
	require.NotNil(t, resp.ShoppingListID)
	assert.Equal(t, int64(5), *resp.ShoppingListID)

	assert.Equal(t, []int64{5}, f.shopping.regenerated)
	assert.Empty(t, f.shopping.lists[5].Items)
}

func TestLookupUnit_CaseInsensitive(t *testing.T) {
	f := newFixture("")

	rr := f.do(t, http.MethodGet, "/units/lookup?q=G", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var unit catalog.Unit
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &unit))
	assert.Equal(t, "gram", unit.Name)

	rr = f.do(t, http.MethodGet, "/units/lookup?q=bushel", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMissingHouseholdHeader(t *testing.T) {
	f := newFixture("")

	rr := f.do(t, http.MethodGet, "/pantry", "", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
