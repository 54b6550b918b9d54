package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Schema is the schema holding all healing-report tables.
const Schema = "self_healing"

// Tables lists every table in truncation order.
var Tables = []string{
	Schema + ".healing_events",
}

// RunMigrations creates the database schema
func (db *DB) RunMigrations(ctx context.Context) error {
	log := zap.S().Named("database")
	log.Info("Running database migrations...")

	schema := `
	CREATE SCHEMA IF NOT EXISTS self_healing;

	-- One row per resolution outcome reported by a test run
	CREATE TABLE IF NOT EXISTS self_healing.healing_events (
		id TEXT PRIMARY KEY,
		locator TEXT NOT NULL,
		strategy TEXT NOT NULL DEFAULT '',
		found BOOLEAN NOT NULL,
		pass INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		test_name TEXT NOT NULL DEFAULT '',
		recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_healing_events_locator ON self_healing.healing_events(locator, recorded_at DESC);
	CREATE INDEX IF NOT EXISTS idx_healing_events_found ON self_healing.healing_events(found);
	`

	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations completed successfully")
	return nil
}

// Truncate removes all rows while keeping the schema.
func (db *DB) Truncate(ctx context.Context) error {
	for _, table := range Tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}
