package shopping

import "github.com/shopspring/decimal"

// List is a shopping list, optionally tied to a meal-plan week.
type List struct {
	ID          int64  `db:"id" json:"id"`
	HouseholdID int64  `db:"household_id" json:"household_id"`
	WeekID      *int64 `db:"week_id" json:"week_id,omitempty"`
	Title       string `db:"title" json:"title"`
	IsCompleted bool   `db:"is_completed" json:"is_completed"`
	Items       []Item `json:"items"`
}

// Item is one line on a shopping list.
type Item struct {
	ID             int64           `db:"id" json:"id"`
	ShoppingListID int64           `db:"shopping_list_id" json:"shopping_list_id"`
	IngredientID   int64           `db:"ingredient_id" json:"ingredient_id"`
	Quantity       decimal.Decimal `db:"quantity" json:"quantity"`
	UnitID         int64           `db:"unit_id" json:"unit_id"`
	Bought         bool            `db:"bought" json:"bought"`
}

// DemandRow is one recipe-ingredient pivot occurrence in a week's meals.
// A recipe planned in two slots yields its pivot rows twice.
type DemandRow struct {
	IngredientID int64           `db:"ingredient_id"`
	UnitID       int64           `db:"unit_id"`
	Quantity     decimal.Decimal `db:"quantity"`
}

// SupplyRow is one pantry row's contribution to availability.
type SupplyRow struct {
	IngredientID int64           `db:"ingredient_id"`
	Quantity     decimal.Decimal `db:"quantity"`
}

// Shortfall is the positive gap between a week's demand and the pantry's
// supply for one (ingredient, unit) pair.
type Shortfall struct {
	IngredientID int64
	UnitID       int64
	Quantity     decimal.Decimal
}
