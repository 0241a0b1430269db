// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside the Go binary and keeps
// everything in a single file. The nutrient database (Canadian Nutrient File
// layout) is a few megabytes of read-mostly data, which suits it well, and
// ":memory:" gives every test its own throwaway database.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code: no C compiler needed, works everywhere Go works.
//
// TABLES:
//
//	food_groups       id, name
//	foods             id, description, food_group_id (nullable)
//	nutrients         id (CNF NutrientID), name, unit
//	nutrient_amounts  food_id, nutrient_id, value (per 100 g)
//	users             local profiles and GitHub accounts
//	meals             logged and swapped meals
//
// The food tables are only read by the core; the Create*/Set* helpers in
// food.go exist for seeding and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/nutriswap/internal/apperror"
	"github.com/sakif/nutriswap/internal/nutrient"

	// BLANK IMPORT:
	// The sqlite package's init() registers a database/sql driver named "sqlite".
	// After this import, sql.Open("sqlite", ...) knows how to talk to SQLite.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface in internal/repository.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/nutriswap.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection; a pool of several would
	// hand different requests different (empty) databases.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Ping verifies the connection actually works.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode lets readers continue while a meal is being written.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Meals reference users and
	// their predecessor meals; amounts reference foods and nutrients.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return unavailable("pinging database", err)
	}
	return nil
}

// migrate runs all database migrations.
//
// CREATE TABLE IF NOT EXISTS is safe to run on every start. Columns added
// after the first release go through addColumnIfNotExists.
func (db *DB) migrate() error {
	// Nutrient database: read-only for the application.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS food_groups (
			id   INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS foods (
			id            INTEGER PRIMARY KEY,
			description   TEXT NOT NULL,
			food_group_id INTEGER REFERENCES food_groups(id)
		);
		CREATE INDEX IF NOT EXISTS idx_foods_description ON foods(description COLLATE NOCASE);
		CREATE INDEX IF NOT EXISTS idx_foods_group ON foods(food_group_id);

		CREATE TABLE IF NOT EXISTS nutrients (
			id   INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			unit TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS nutrient_amounts (
			food_id     INTEGER NOT NULL REFERENCES foods(id),
			nutrient_id INTEGER NOT NULL REFERENCES nutrients(id),
			value       REAL NOT NULL CHECK (value >= 0),
			PRIMARY KEY (food_id, nutrient_id)
		);
		CREATE INDEX IF NOT EXISTS idx_nutrient_amounts_rank ON nutrient_amounts(nutrient_id, value);
	`)
	if err != nil {
		return fmt.Errorf("creating nutrient tables: %w", err)
	}

	// Users. github_id is NULL for local profiles; UNIQUE still holds for the
	// GitHub accounts because SQLite treats NULLs as distinct.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			github_id  INTEGER UNIQUE,
			login      TEXT NOT NULL UNIQUE COLLATE NOCASE,
			email      TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Local profiles: bcrypt hash, empty for GitHub accounts.
	if err := db.addColumnIfNotExists("users", "password_hash",
		"TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding password_hash to users: %w", err)
	}

	// Meals. meal_date is the calendar day as YYYY-MM-DD so range filters
	// compare as plain strings.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS meals (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL REFERENCES users(id),
			meal_date        TEXT NOT NULL,
			meal_type        TEXT NOT NULL,
			ingredients      TEXT NOT NULL,
			total_calories   REAL NOT NULL DEFAULT 0,
			is_swapped       INTEGER NOT NULL DEFAULT 0,
			original_meal_id TEXT REFERENCES meals(id),
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_meals_user_date ON meals(user_id, meal_date);
		CREATE INDEX IF NOT EXISTS idx_meals_original ON meals(original_meal_id);
	`)
	if err != nil {
		return fmt.Errorf("creating meals table: %w", err)
	}

	// Known nutrients are always present so amounts can reference them.
	for _, d := range nutrient.Definitions() {
		if _, err := db.conn.Exec(
			`INSERT OR IGNORE INTO nutrients (id, name, unit) VALUES (?, ?, ?)`,
			int(d.ID), d.Name, d.Unit,
		); err != nil {
			return fmt.Errorf("seeding nutrient %d: %w", d.ID, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent, so they can run on every start.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// unavailable tags a driver error as apperror.ErrUnavailable, keeping the
// driver error in the chain.
func unavailable(op string, err error) error {
	return apperror.Unavailable(op, fmt.Errorf("sqlite: %s: %w", op, err))
}
