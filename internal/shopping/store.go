package shopping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pantrysync/internal/storage"
)

const (
	listColumns = "id, household_id, week_id, title, is_completed"
	itemColumns = "id, shopping_list_id, ingredient_id, quantity, unit_id, bought"

	demandQuery = `SELECT ri.ingredient_id, ri.unit_id, ri.quantity
		FROM meals m
		JOIN recipe_ingredients ri ON ri.recipe_id = m.recipe_id
		WHERE m.week_id = $1`

	supplyQuery = `SELECT ingredient_id, quantity FROM inventory WHERE household_id = $1`
)

// Store persists shopping lists and regenerates their items from the meal
// plan and pantry state.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a shopping-list store on an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// GetAll returns a household's lists with their items.
func (s *Store) GetAll(ctx context.Context, householdID int64) ([]List, error) {
	lists := []List{}
	err := s.db.SelectContext(ctx, &lists,
		"SELECT "+listColumns+" FROM shopping_lists WHERE household_id = $1 ORDER BY id", householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shopping lists: %w", err)
	}
	for i := range lists {
		if lists[i].Items, err = s.loadItems(ctx, s.db, lists[i].ID); err != nil {
			return nil, err
		}
	}
	return lists, nil
}

// Get returns one list with its items, scoped to a household.
func (s *Store) Get(ctx context.Context, id, householdID int64) (*List, error) {
	var l List
	err := s.db.QueryRowxContext(ctx,
		"SELECT "+listColumns+" FROM shopping_lists WHERE id = $1 AND household_id = $2",
		id, householdID).StructScan(&l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shopping list: %w", err)
	}
	if l.Items, err = s.loadItems(ctx, s.db, l.ID); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByWeek returns the list tied to a week, if any.
func (s *Store) GetByWeek(ctx context.Context, weekID int64) (*List, error) {
	var l List
	err := s.db.QueryRowxContext(ctx,
		"SELECT "+listColumns+" FROM shopping_lists WHERE week_id = $1 ORDER BY id LIMIT 1",
		weekID).StructScan(&l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shopping list for week: %w", err)
	}
	if l.Items, err = s.loadItems(ctx, s.db, l.ID); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts an empty list.
func (s *Store) Create(ctx context.Context, householdID int64, title string, weekID *int64) (*List, error) {
	var l List
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO shopping_lists (household_id, title, week_id) VALUES ($1, $2, $3)
		 RETURNING `+listColumns,
		householdID, title, weekID).StructScan(&l)
	if err != nil {
		return nil, fmt.Errorf("failed to create shopping list: %w", err)
	}
	l.Items = []Item{}
	return &l, nil
}

// Update edits a list's title or completion flag.
func (s *Store) Update(ctx context.Context, id, householdID int64, title *string, isCompleted *bool) (*List, error) {
	var l List
	err := s.db.QueryRowxContext(ctx,
		`UPDATE shopping_lists
		 SET title = COALESCE($3, title), is_completed = COALESCE($4, is_completed)
		 WHERE id = $1 AND household_id = $2
		 RETURNING `+listColumns,
		id, householdID, title, isCompleted).StructScan(&l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update shopping list: %w", err)
	}
	if l.Items, err = s.loadItems(ctx, s.db, l.ID); err != nil {
		return nil, err
	}
	return &l, nil
}

// Delete removes a list and, through the schema, its items.
func (s *Store) Delete(ctx context.Context, id, householdID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM shopping_lists WHERE id = $1 AND household_id = $2", id, householdID)
	if err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AddItem appends a manual line to a list. Manual edits never re-trigger
// aggregation.
func (s *Store) AddItem(ctx context.Context, listID, householdID, ingredientID int64, quantity decimal.Decimal, unitID int64) (*Item, error) {
	if err := s.checkList(ctx, listID, householdID); err != nil {
		return nil, err
	}

	var it Item
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO shopping_list_items (shopping_list_id, ingredient_id, quantity, unit_id)
		 VALUES ($1, $2, $3, $4) RETURNING `+itemColumns,
		listID, ingredientID, quantity, unitID).StructScan(&it)
	if err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}
	return &it, nil
}

// UpdateItem edits a line's quantity or bought flag.
func (s *Store) UpdateItem(ctx context.Context, listID, householdID, itemID int64, quantity *decimal.Decimal, bought *bool) (*Item, error) {
	if err := s.checkList(ctx, listID, householdID); err != nil {
		return nil, err
	}

	var it Item
	err := s.db.QueryRowxContext(ctx,
		`UPDATE shopping_list_items
		 SET quantity = COALESCE($3, quantity), bought = COALESCE($4, bought)
		 WHERE id = $1 AND shopping_list_id = $2
		 RETURNING `+itemColumns,
		itemID, listID, quantity, bought).StructScan(&it)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	return &it, nil
}

// DeleteItem removes a line from a list.
func (s *Store) DeleteItem(ctx context.Context, listID, householdID, itemID int64) error {
	if err := s.checkList(ctx, listID, householdID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM shopping_list_items WHERE id = $1 AND shopping_list_id = $2", itemID, listID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GenerateFromMealPlan creates a new list for a week and fills it with the
// week's shortfall against the pantry. An empty title defaults to one naming
// the week's start date.
func (s *Store) GenerateFromMealPlan(ctx context.Context, householdID, weekID int64, title string) (*List, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin generate: %w", err)
	}
	defer tx.Rollback()

	var start time.Time
	err = tx.QueryRowContext(ctx,
		"SELECT start_date FROM weeks WHERE id = $1 AND household_id = $2", weekID, householdID).Scan(&start)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check week: %w", err)
	}

	if title == "" {
		title = "Shopping List - " + start.Format("2006-01-02")
	}

	var l List
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO shopping_lists (household_id, title, week_id) VALUES ($1, $2, $3)
		 RETURNING `+listColumns,
		householdID, title, weekID).StructScan(&l)
	if err != nil {
		return nil, fmt.Errorf("failed to create shopping list: %w", err)
	}

	if err := s.insertShortfalls(ctx, tx, l.ID, householdID, weekID); err != nil {
		return nil, err
	}
	if l.Items, err = s.loadItems(ctx, tx, l.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit generate: %w", err)
	}
	return &l, nil
}

// RegenerateItems replaces a list's items with the week's current shortfall.
// Delete and reinsert run in one transaction, so a concurrent reader never
// sees the list half-empty, and duplicate delivery of the same trigger is
// harmless.
func (s *Store) RegenerateItems(ctx context.Context, listID, householdID, weekID int64) (*List, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin regenerate: %w", err)
	}
	defer tx.Rollback()

	var l List
	err = tx.QueryRowxContext(ctx,
		"SELECT "+listColumns+" FROM shopping_lists WHERE id = $1 AND household_id = $2 FOR UPDATE",
		listID, householdID).StructScan(&l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shopping list: %w", err)
	}

	var weekHousehold int64
	err = tx.QueryRowContext(ctx,
		"SELECT household_id FROM weeks WHERE id = $1", weekID).Scan(&weekHousehold)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && weekHousehold != householdID) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check week: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM shopping_list_items WHERE shopping_list_id = $1", listID); err != nil {
		return nil, fmt.Errorf("failed to clear items: %w", err)
	}

	if err := s.insertShortfalls(ctx, tx, listID, householdID, weekID); err != nil {
		return nil, err
	}
	if l.Items, err = s.loadItems(ctx, tx, listID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit regenerate: %w", err)
	}
	return &l, nil
}

func (s *Store) insertShortfalls(ctx context.Context, tx *sqlx.Tx, listID, householdID, weekID int64) error {
	demand := []DemandRow{}
	if err := tx.SelectContext(ctx, &demand, demandQuery, weekID); err != nil {
		return fmt.Errorf("failed to load demand: %w", err)
	}
	supply := []SupplyRow{}
	if err := tx.SelectContext(ctx, &supply, supplyQuery, householdID); err != nil {
		return fmt.Errorf("failed to load supply: %w", err)
	}

	for _, sf := range ComputeShortfalls(demand, supply) {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO shopping_list_items (shopping_list_id, ingredient_id, quantity, unit_id) VALUES ($1, $2, $3, $4)",
			listID, sf.IngredientID, sf.Quantity, sf.UnitID)
		if err != nil {
			return fmt.Errorf("failed to insert shortfall item: %w", err)
		}
	}
	return nil
}

func (s *Store) checkList(ctx context.Context, listID, householdID int64) error {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM shopping_lists WHERE id = $1 AND household_id = $2", listID, householdID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check shopping list: %w", err)
	}
	return nil
}

func (s *Store) loadItems(ctx context.Context, q sqlx.QueryerContext, listID int64) ([]Item, error) {
	items := []Item{}
	err := sqlx.SelectContext(ctx, q, &items,
		"SELECT "+itemColumns+" FROM shopping_list_items WHERE shopping_list_id = $1 ORDER BY id", listID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	return items, nil
}
