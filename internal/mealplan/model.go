package mealplan

import "time"

// Meal slots. One meal per (week, day, slot).
const (
	SlotBreakfast = "breakfast"
	SlotLunch     = "lunch"
	SlotDinner    = "dinner"
	SlotSnack     = "snack"
)

// Week is one calendar week of a household's plan. StartDate is always the
// Monday of its week.
type Week struct {
	ID          int64     `db:"id" json:"id"`
	HouseholdID int64     `db:"household_id" json:"household_id"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	Meals       []Meal    `json:"meals,omitempty"`
}

// Meal assigns a recipe to one day/slot cell of a week.
type Meal struct {
	ID       int64  `db:"id" json:"id"`
	WeekID   int64  `db:"week_id" json:"week_id"`
	Day      int    `db:"day" json:"day"`
	Slot     string `db:"slot" json:"slot"`
	RecipeID int64  `db:"recipe_id" json:"recipe_id"`
}

// WeekStart normalizes a date to the Monday of its calendar week.
func WeekStart(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return t.AddDate(0, 0, -offset)
}
