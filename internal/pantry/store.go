package pantry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"pantrysync/internal/storage"
)

const itemColumns = "id, household_id, ingredient_id, quantity, unit_id, expiry_date, location"

// Store persists pantry inventory rows.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a pantry store on an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// List returns all of a household's pantry rows.
func (s *Store) List(ctx context.Context, householdID int64) ([]Item, error) {
	items := []Item{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT "+itemColumns+" FROM inventory WHERE household_id = $1 ORDER BY id", householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return items, nil
}

// AddOrMerge inserts a pantry row, or adds the quantity onto the existing row
// sharing the same identity tuple. The upsert is a single atomic statement
// against the identity unique index, so concurrent calls for the same tuple
// cannot lose an update.
func (s *Store) AddOrMerge(ctx context.Context, householdID, ingredientID, unitID int64, quantity decimal.Decimal, expiry *time.Time, location *string) (*Item, error) {
	var it Item
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO inventory (household_id, ingredient_id, unit_id, quantity, expiry_date, location)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (household_id, ingredient_id, unit_id,
			COALESCE(expiry_date, '0001-01-01'::date), COALESCE(location, ''))
		 DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity
		 RETURNING `+itemColumns,
		householdID, ingredientID, unitID, quantity, expiry, location).StructScan(&it)
	if err != nil {
		return nil, fmt.Errorf("failed to add inventory: %w", err)
	}
	return &it, nil
}

// Update applies a partial edit to a pantry row scoped to a household. An
// edit that moves the row onto another row's identity tuple would violate the
// identity index, so the row is merged into the occupant instead: quantities
// sum, the edited row is deleted, and the surviving row is returned.
func (s *Store) Update(ctx context.Context, id, householdID int64, params UpdateParams) (*Item, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin update: %w", err)
	}
	defer tx.Rollback()

	var it Item
	err = tx.QueryRowxContext(ctx,
		"SELECT "+itemColumns+" FROM inventory WHERE id = $1 AND household_id = $2 FOR UPDATE",
		id, householdID).StructScan(&it)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory row: %w", err)
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

	var survivor Item
	err = tx.QueryRowxContext(ctx,
		`SELECT `+itemColumns+` FROM inventory
		 WHERE household_id = $1 AND ingredient_id = $2 AND unit_id = $3
		   AND COALESCE(expiry_date, '0001-01-01'::date) = COALESCE($4::date, '0001-01-01'::date)
		   AND COALESCE(location, '') = COALESCE($5::text, '')
		   AND id <> $6
		 FOR UPDATE`,
		it.HouseholdID, it.IngredientID, it.UnitID, it.ExpiryDate, it.Location, it.ID).StructScan(&survivor)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			"UPDATE inventory SET quantity = $1, unit_id = $2, expiry_date = $3, location = $4 WHERE id = $5",
			it.Quantity, it.UnitID, it.ExpiryDate, it.Location, it.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update inventory row: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to check identity tuple: %w", err)
	default:
		survivor.Quantity = survivor.Quantity.Add(it.Quantity)
		if _, err := tx.ExecContext(ctx,
			"UPDATE inventory SET quantity = $1 WHERE id = $2", survivor.Quantity, survivor.ID); err != nil {
			return nil, fmt.Errorf("failed to merge into existing row: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM inventory WHERE id = $1", it.ID); err != nil {
			return nil, fmt.Errorf("failed to delete merged row: %w", err)
		}
		it = survivor
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return &it, nil
}

// Delete removes a pantry row scoped to a household.
func (s *Store) Delete(ctx context.Context, id, householdID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM inventory WHERE id = $1 AND household_id = $2", id, householdID)
	if err != nil {
		return fmt.Errorf("failed to delete inventory row: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Decrement subtracts amount from a row's quantity. A quantity driven to zero
// or below deletes the row instead of keeping it empty.
func (s *Store) Decrement(ctx context.Context, id, householdID int64, amount decimal.Decimal) (*ConsumeResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin consume: %w", err)
	}
	defer tx.Rollback()

	var it Item
	err = tx.QueryRowxContext(ctx,
		"SELECT "+itemColumns+" FROM inventory WHERE id = $1 AND household_id = $2 FOR UPDATE",
		id, householdID).StructScan(&it)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory row: %w", err)
	}

	it.Quantity = it.Quantity.Sub(amount)
	if it.Quantity.Sign() <= 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM inventory WHERE id = $1", it.ID); err != nil {
			return nil, fmt.Errorf("failed to delete exhausted row: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit consume: %w", err)
		}
		return &ConsumeResult{Deleted: true}, nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE inventory SET quantity = $1 WHERE id = $2", it.Quantity, it.ID); err != nil {
		return nil, fmt.Errorf("failed to update quantity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit consume: %w", err)
	}
	return &ConsumeResult{Deleted: false, Item: &it}, nil
}

// ExpiringWithin returns rows whose expiry date falls between today and
// today+days, soonest first. Rows without stock are skipped.
func (s *Store) ExpiringWithin(ctx context.Context, householdID int64, days int) ([]Item, error) {
	from, to := DayRange(days)

	items := []Item{}
	err := s.db.SelectContext(ctx, &items,
		`SELECT `+itemColumns+` FROM inventory
		 WHERE household_id = $1 AND expiry_date IS NOT NULL
		   AND expiry_date >= $2 AND expiry_date <= $3 AND quantity > 0
		 ORDER BY expiry_date ASC`,
		householdID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring inventory: %w", err)
	}
	return items, nil
}

// MergeDuplicates collapses every group of rows sharing an identity tuple
// into the group's oldest row. The household's rows are locked for the
// duration so a concurrent AddOrMerge cannot slip a duplicate past the scan;
// the operation is idempotent either way.
func (s *Store) MergeDuplicates(ctx context.Context, householdID int64) (*MergeResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin merge: %w", err)
	}
	defer tx.Rollback()

	items := []Item{}
	err = tx.SelectContext(ctx, &items,
		"SELECT "+itemColumns+" FROM inventory WHERE household_id = $1 ORDER BY id FOR UPDATE",
		householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory for merge: %w", err)
	}

	plan := PlanMerge(items)
	for id, quantity := range plan.Updates {
		if _, err := tx.ExecContext(ctx, "UPDATE inventory SET quantity = $1 WHERE id = $2", quantity, id); err != nil {
			return nil, fmt.Errorf("failed to merge quantities: %w", err)
		}
	}
	if len(plan.Deletes) > 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM inventory WHERE id = ANY($1)", pq.Array(plan.Deletes)); err != nil {
			return nil, fmt.Errorf("failed to delete duplicates: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit merge: %w", err)
	}
	return &MergeResult{Merged: plan.Groups, Deleted: len(plan.Deletes)}, nil
}
