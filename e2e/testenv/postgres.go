// Package testenv provides ephemeral test infrastructure using testcontainers.
package testenv

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gti/selfheal-e2e/internal/database"
)

// PostgresContainer is a throwaway database holding the healing_events
// schema, migrated by the same code the report service runs at startup.
type PostgresContainer struct {
	*database.DB

	Container *postgres.PostgresContainer

	// ConnectionString is handed to the service subprocess.
	ConnectionString string
}

// PostgresConfig holds configuration for the PostgreSQL container.
// Empty fields fall back to DefaultPostgresConfig.
type PostgresConfig struct {
	Image    string
	Database string
	Username string
	Password string
}

// DefaultPostgresConfig returns default PostgreSQL container configuration.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Image:    "postgres:16-alpine",
		Database: "self_healing_test",
		Username: "test_user",
		Password: "test_pass",
	}
}

func (c PostgresConfig) withDefaults() PostgresConfig {
	def := DefaultPostgresConfig()
	if c.Image == "" {
		c.Image = def.Image
	}
	if c.Database == "" {
		c.Database = def.Database
	}
	if c.Username == "" {
		c.Username = def.Username
	}
	if c.Password == "" {
		c.Password = def.Password
	}
	return c
}

// StartPostgres starts a container and applies the self_healing migrations.
// The returned cleanup closes the pool and terminates the container.
func StartPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresContainer, func(), error) {
	cfg = cfg.withDefaults()

	// Postgres logs readiness twice: once for the init run, once for the real start.
	container, err := postgres.Run(ctx,
		cfg.Image,
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	pg := &PostgresContainer{Container: container}
	cleanup := func() {
		if pg.DB != nil {
			pg.DB.Close()
		}
		_ = container.Terminate(context.Background())
	}

	if err := pg.connect(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return pg, cleanup, nil
}

func (pg *PostgresContainer) connect(ctx context.Context) error {
	connStr, err := pg.Container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("failed to get connection string: %w", err)
	}
	pg.ConnectionString = connStr

	pg.DB, err = database.New(connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pg.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
