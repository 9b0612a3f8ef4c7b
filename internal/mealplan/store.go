package mealplan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"pantrysync/internal/storage"
)

// Store persists weeks and meal assignments.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a meal-plan store on an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetOrCreateWeek returns the household's week containing startDate, creating
// it when missing. The date is normalized to its Monday, so there is exactly
// one row per household per calendar week.
func (s *Store) GetOrCreateWeek(ctx context.Context, householdID int64, startDate time.Time) (*Week, error) {
	start := WeekStart(startDate)
	end := start.AddDate(0, 0, 6)

	var w Week
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO weeks (household_id, start_date, end_date) VALUES ($1, $2, $3)
		 ON CONFLICT (household_id, start_date) DO UPDATE SET end_date = EXCLUDED.end_date
		 RETURNING id, household_id, start_date, end_date`,
		householdID, start, end).StructScan(&w)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create week: %w", err)
	}

	if w.Meals, err = s.mealsForWeek(ctx, w.ID); err != nil {
		return nil, err
	}
	return &w, nil
}

// WeekByStart returns the household's week starting at the Monday of
// startDate, with its meals.
func (s *Store) WeekByStart(ctx context.Context, householdID int64, startDate time.Time) (*Week, error) {
	var w Week
	err := s.db.QueryRowxContext(ctx,
		"SELECT id, household_id, start_date, end_date FROM weeks WHERE household_id = $1 AND start_date = $2",
		householdID, WeekStart(startDate)).StructScan(&w)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get week: %w", err)
	}

	if w.Meals, err = s.mealsForWeek(ctx, w.ID); err != nil {
		return nil, err
	}
	return &w, nil
}

// WeekByID returns a week by id without household scoping; the caller decides
// whether to check ownership. Used by the inbound webhook, which receives
// only a week id.
func (s *Store) WeekByID(ctx context.Context, weekID int64) (*Week, error) {
	var w Week
	err := s.db.QueryRowxContext(ctx,
		"SELECT id, household_id, start_date, end_date FROM weeks WHERE id = $1", weekID).StructScan(&w)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get week: %w", err)
	}
	return &w, nil
}

// UpsertMeal assigns a recipe to a day/slot cell of the household's week.
// Assigning an occupied slot replaces its recipe rather than adding a second
// meal.
func (s *Store) UpsertMeal(ctx context.Context, weekID, householdID int64, day int, slot string, recipeID int64) (*Meal, error) {
	if err := s.checkWeek(ctx, weekID, householdID); err != nil {
		return nil, err
	}

	var m Meal
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO meals (week_id, day, slot, recipe_id) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (week_id, day, slot) DO UPDATE SET recipe_id = EXCLUDED.recipe_id
		 RETURNING id, week_id, day, slot, recipe_id`,
		weekID, day, slot, recipeID).StructScan(&m)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert meal: %w", err)
	}
	return &m, nil
}

// RemoveMeal deletes a meal from the household's week.
func (s *Store) RemoveMeal(ctx context.Context, weekID, householdID, mealID int64) error {
	if err := s.checkWeek(ctx, weekID, householdID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM meals WHERE id = $1 AND week_id = $2", mealID, weekID)
	if err != nil {
		return fmt.Errorf("failed to remove meal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) checkWeek(ctx context.Context, weekID, householdID int64) error {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM weeks WHERE id = $1 AND household_id = $2", weekID, householdID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check week: %w", err)
	}
	return nil
}

func (s *Store) mealsForWeek(ctx context.Context, weekID int64) ([]Meal, error) {
	meals := []Meal{}
	err := s.db.SelectContext(ctx, &meals,
		"SELECT id, week_id, day, slot, recipe_id FROM meals WHERE week_id = $1 ORDER BY day, slot", weekID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	return meals, nil
}
