package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pantrysync/internal/storage"
)

// Store persists units and ingredients.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a catalog store on an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ListUnits returns all units ordered by name.
func (s *Store) ListUnits(ctx context.Context) ([]Unit, error) {
	units := []Unit{}
	err := s.db.SelectContext(ctx, &units,
		"SELECT id, name, abbreviation FROM units ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	return units, nil
}

// CreateUnit inserts a unit.
func (s *Store) CreateUnit(ctx context.Context, name string, abbreviation *string) (*Unit, error) {
	var u Unit
	err := s.db.QueryRowxContext(ctx,
		"INSERT INTO units (name, abbreviation) VALUES ($1, $2) RETURNING id, name, abbreviation",
		name, abbreviation).StructScan(&u)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}
	return &u, nil
}

// FindUnit looks a unit up by name or abbreviation. The match is
// case-insensitive on both keys; ingredient name matching is not.
func (s *Store) FindUnit(ctx context.Context, key string) (*Unit, error) {
	var u Unit
	err := s.db.QueryRowxContext(ctx,
		"SELECT id, name, abbreviation FROM units WHERE LOWER(name) = LOWER($1) OR LOWER(abbreviation) = LOWER($1)",
		key).StructScan(&u)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find unit: %w", err)
	}
	return &u, nil
}

// ListIngredients returns a household's ingredients, optionally filtered by a
// substring search on the name, ordered by name.
func (s *Store) ListIngredients(ctx context.Context, householdID int64, search string) ([]Ingredient, error) {
	ingredients := []Ingredient{}
	query := "SELECT id, household_id, name, unit_id, calories, protein, carbs, fat FROM ingredients WHERE household_id = $1"
	args := []interface{}{householdID}
	if search != "" {
		query += " AND name LIKE '%' || $2 || '%'"
		args = append(args, search)
	}
	query += " ORDER BY name"

	if err := s.db.SelectContext(ctx, &ingredients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	return ingredients, nil
}

// GetIngredient returns one ingredient scoped to a household.
func (s *Store) GetIngredient(ctx context.Context, id, householdID int64) (*Ingredient, error) {
	var ing Ingredient
	err := s.db.QueryRowxContext(ctx,
		"SELECT id, household_id, name, unit_id, calories, protein, carbs, fat FROM ingredients WHERE id = $1 AND household_id = $2",
		id, householdID).StructScan(&ing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	return &ing, nil
}

// CreateIngredient inserts an ingredient for a household. The name must be
// unique within the household; the comparison is an exact match.
func (s *Store) CreateIngredient(ctx context.Context, householdID int64, name string, unitID *int64, calories, protein, carbs, fat decimal.Decimal) (*Ingredient, error) {
	var ing Ingredient
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO ingredients (household_id, name, unit_id, calories, protein, carbs, fat)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, household_id, name, unit_id, calories, protein, carbs, fat`,
		householdID, name, unitID, calories, protein, carbs, fat).StructScan(&ing)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingredient: %w", err)
	}
	return &ing, nil
}
