package catalog

import "github.com/shopspring/decimal"

// Unit is a global measurement reference value. It is not household-scoped.
type Unit struct {
	ID           int64   `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Abbreviation *string `db:"abbreviation" json:"abbreviation,omitempty"`
}

// Ingredient is a household-scoped identity with optional nutrition figures
// per 100g or per unit.
type Ingredient struct {
	ID          int64           `db:"id" json:"id"`
	HouseholdID int64           `db:"household_id" json:"household_id"`
	Name        string          `db:"name" json:"name"`
	UnitID      *int64          `db:"unit_id" json:"unit_id,omitempty"`
	Calories    decimal.Decimal `db:"calories" json:"calories"`
	Protein     decimal.Decimal `db:"protein" json:"protein"`
	Carbs       decimal.Decimal `db:"carbs" json:"carbs"`
	Fat         decimal.Decimal `db:"fat" json:"fat"`
}
