// Package helpers provides narrowly-scoped utilities for E2E testing.
//
// The db helper provides direct PostgreSQL access for test setup and verification.
package helpers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBHelper provides direct PostgreSQL query capabilities for E2E tests.
//
// Use this helper to verify which healing events reached the database
// and to clean up after a test.
type DBHelper struct {
	pool *pgxpool.Pool
}

// NewDBHelper creates a new database helper wrapping the given connection pool.
//
// Callers are responsible for closing the pool when tests are complete.
func NewDBHelper(pool *pgxpool.Pool) *DBHelper {
	return &DBHelper{pool: pool}
}

// CountEvents returns how many healing events were stored for locator.
// An empty locator counts every event.
func (h *DBHelper) CountEvents(ctx context.Context, locator string) (int, error) {
	var n int
	err := h.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM self_healing.healing_events WHERE ($1 = '' OR locator = $1)",
		locator).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count healing events: %w", err)
	}
	return n, nil
}

// DeleteByPrefix removes the events whose locator starts with prefix and
// returns how many were deleted.
func (h *DBHelper) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	tag, err := h.pool.Exec(ctx,
		`DELETE FROM self_healing.healing_events WHERE locator LIKE $1 ESCAPE '\'`,
		likePrefix(prefix))
	if err != nil {
		return 0, fmt.Errorf("failed to delete healing events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// likePrefix builds a LIKE pattern matching prefix literally. Test names
// carry underscores, which LIKE would otherwise treat as wildcards.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
