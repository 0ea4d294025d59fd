// Package obsdb is the sqlite-backed time-series store for daily footfall
// observations. Observations are append-only: the generator and the loader
// write them once, feature engineering and prediction only read.
package obsdb

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection for the observation store.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the observation database at path and
// ensures the baseline schema exists. Use ":memory:" for an ephemeral store
// in tests.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open observation db: %w", err)
	}

	db := &DB{conn}
	if err := db.ensureSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// OpenDB opens the observation database without touching the schema. Used by
// the migrate subcommand, where golang-migrate manages the schema itself.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open observation db: %w", err)
	}
	return &DB{conn}, nil
}

// ensureSchema creates the baseline tables when the database is fresh.
// Versioned changes beyond the baseline are applied with MigrateUp.
func (db *DB) ensureSchema() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS observations (
			pincode      TEXT NOT NULL,
			date         TEXT NOT NULL,
			footfall     DOUBLE NOT NULL,
			district     TEXT NOT NULL,
			state        TEXT NOT NULL,
			center_type  TEXT NOT NULL,
			created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (pincode, date)
		);
		CREATE INDEX IF NOT EXISTS idx_observations_date ON observations(date);

		CREATE TABLE IF NOT EXISTS pipeline_runs (
			run_id       TEXT PRIMARY KEY,
			stage        TEXT NOT NULL,
			detail       TEXT,
			started_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			finished_at  TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
