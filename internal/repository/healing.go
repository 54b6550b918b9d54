package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gti/selfheal-e2e/internal/models"
)

type HealingRepository struct {
	pool *pgxpool.Pool
}

func NewHealingRepository(pool *pgxpool.Pool) *HealingRepository {
	return &HealingRepository{pool: pool}
}

// Insert stores a healing event
func (r *HealingRepository) Insert(ctx context.Context, e *models.HealingEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO self_healing.healing_events
		 (id, locator, strategy, found, pass, attempts, duration_ms, test_name, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Locator, e.Strategy, e.Found, e.Pass, e.Attempts, e.DurationMS, e.TestName, e.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to insert healing event: %w", err)
	}
	return nil
}

// List returns the most recent events, optionally filtered by locator
func (r *HealingRepository) List(ctx context.Context, locator string, limit int) ([]models.HealingEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, locator, strategy, found, pass, attempts, duration_ms, test_name, recorded_at
		 FROM self_healing.healing_events
		 WHERE ($1 = '' OR locator = $1)
		 ORDER BY recorded_at DESC, id
		 LIMIT $2`, locator, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list healing events: %w", err)
	}
	defer rows.Close()

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.HealingEvent, error) {
		var e models.HealingEvent
		err := row.Scan(&e.ID, &e.Locator, &e.Strategy, &e.Found, &e.Pass, &e.Attempts, &e.DurationMS, &e.TestName, &e.RecordedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan healing event: %w", err)
	}
	return events, nil
}

// Summary counts successful heals per locator and strategy, most used first
func (r *HealingRepository) Summary(ctx context.Context) ([]models.StrategySummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT locator, strategy, COUNT(*)
		 FROM self_healing.healing_events
		 WHERE found
		 GROUP BY locator, strategy
		 ORDER BY locator, COUNT(*) DESC, strategy`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize healing events: %w", err)
	}
	defer rows.Close()

	var summary []models.StrategySummary
	for rows.Next() {
		var s models.StrategySummary
		if err := rows.Scan(&s.Locator, &s.Strategy, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summary = append(summary, s)
	}
	return summary, rows.Err()
}

// Unresolved returns locators with at least one not-found event
func (r *HealingRepository) Unresolved(ctx context.Context) ([]models.UnresolvedLocator, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT locator, COUNT(*), MAX(recorded_at)
		 FROM self_healing.healing_events
		 WHERE NOT found
		 GROUP BY locator
		 ORDER BY MAX(recorded_at) DESC, locator`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved locators: %w", err)
	}
	defer rows.Close()

	var unresolved []models.UnresolvedLocator
	for rows.Next() {
		var u models.UnresolvedLocator
		if err := rows.Scan(&u.Locator, &u.Failures, &u.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan unresolved locator: %w", err)
		}
		unresolved = append(unresolved, u)
	}
	return unresolved, rows.Err()
}
