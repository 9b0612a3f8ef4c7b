package storage

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when an entity does not exist or belongs to a
// different household. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// schema is applied on startup. Units are global reference data; everything
// else hangs off a household id supplied by the external directory.
//
// The unique index on inventory coalesces the nullable expiry/location columns
// so that rows sharing the duplicate-identity tuple conflict on insert and can
// be merged atomically with ON CONFLICT DO UPDATE.
const schema = `
CREATE TABLE IF NOT EXISTS units (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	abbreviation TEXT
);

CREATE TABLE IF NOT EXISTS ingredients (
	id BIGSERIAL PRIMARY KEY,
	household_id BIGINT NOT NULL,
	name TEXT NOT NULL,
	unit_id BIGINT REFERENCES units(id) ON DELETE SET NULL,
	calories NUMERIC(8,2) NOT NULL DEFAULT 0,
	protein NUMERIC(8,2) NOT NULL DEFAULT 0,
	carbs NUMERIC(8,2) NOT NULL DEFAULT 0,
	fat NUMERIC(8,2) NOT NULL DEFAULT 0,
	UNIQUE (household_id, name)
);
CREATE INDEX IF NOT EXISTS idx_ingredients_household ON ingredients (household_id);

CREATE TABLE IF NOT EXISTS inventory (
	id BIGSERIAL PRIMARY KEY,
	household_id BIGINT NOT NULL,
	ingredient_id BIGINT NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
	quantity NUMERIC(10,2) NOT NULL,
	unit_id BIGINT NOT NULL REFERENCES units(id),
	expiry_date DATE,
	location TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_inventory_identity
	ON inventory (household_id, ingredient_id, unit_id,
		COALESCE(expiry_date, '0001-01-01'::date), COALESCE(location, ''));
CREATE INDEX IF NOT EXISTS idx_inventory_expiry ON inventory (expiry_date);
CREATE INDEX IF NOT EXISTS idx_inventory_household ON inventory (household_id);

CREATE TABLE IF NOT EXISTS weeks (
	id BIGSERIAL PRIMARY KEY,
	household_id BIGINT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	UNIQUE (household_id, start_date)
);

CREATE TABLE IF NOT EXISTS recipes (
	id BIGSERIAL PRIMARY KEY,
	household_id BIGINT NOT NULL,
	title TEXT NOT NULL,
	instructions TEXT,
	tags TEXT[],
	servings INT,
	prep_time INT,
	cook_time INT
);

CREATE TABLE IF NOT EXISTS recipe_ingredients (
	recipe_id BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	ingredient_id BIGINT NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
	quantity NUMERIC(10,2) NOT NULL,
	unit_id BIGINT NOT NULL REFERENCES units(id),
	PRIMARY KEY (recipe_id, ingredient_id)
);

CREATE TABLE IF NOT EXISTS meals (
	id BIGSERIAL PRIMARY KEY,
	week_id BIGINT NOT NULL REFERENCES weeks(id) ON DELETE CASCADE,
	day INT NOT NULL,
	slot TEXT NOT NULL DEFAULT 'dinner',
	recipe_id BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	UNIQUE (week_id, day, slot)
);

CREATE TABLE IF NOT EXISTS shopping_lists (
	id BIGSERIAL PRIMARY KEY,
	household_id BIGINT NOT NULL,
	week_id BIGINT REFERENCES weeks(id) ON DELETE SET NULL,
	title TEXT NOT NULL,
	is_completed BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_shopping_lists_week ON shopping_lists (week_id);

CREATE TABLE IF NOT EXISTS shopping_list_items (
	id BIGSERIAL PRIMARY KEY,
	shopping_list_id BIGINT NOT NULL REFERENCES shopping_lists(id) ON DELETE CASCADE,
	ingredient_id BIGINT NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
	quantity NUMERIC(10,2) NOT NULL,
	unit_id BIGINT NOT NULL REFERENCES units(id),
	bought BOOLEAN NOT NULL DEFAULT FALSE
);
`

// Open connects to Postgres and bootstraps the schema.
func Open(dataSourceName string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}
