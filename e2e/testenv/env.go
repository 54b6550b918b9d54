// Package testenv provides ephemeral test infrastructure using testcontainers.
//
// This package manages the complete E2E test environment including:
//   - Ephemeral PostgreSQL container via testcontainers-go
//   - Healing report service subprocess
//   - Fixture site the browser tests resolve elements on
//   - Test isolation and cleanup utilities
//
// Example usage:
//
//	func TestMain(m *testing.M) {
//	    env, err := testenv.Setup(context.Background(), testenv.DefaultConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer env.Teardown()
//
//	    os.Exit(m.Run())
//	}
package testenv

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gti/selfheal-e2e/e2e/fixture"
	"github.com/gti/selfheal-e2e/e2e/helpers"
	"github.com/gti/selfheal-e2e/internal/database"
)

// TestEnv holds all resources for E2E testing.
type TestEnv struct {
	// Postgres is the ephemeral PostgreSQL container.
	Postgres *PostgresContainer

	// Service is the running report service.
	Service *Service

	// Instrumented is set instead of a plain service when coverage is enabled.
	Instrumented *InstrumentedService

	// Fixture serves the pages browser tests run against.
	Fixture *fixture.Server

	// DB provides database helper for tests.
	DB *helpers.DBHelper

	// API provides HTTP client for tests (pre-configured with API key).
	API *helpers.APIClient

	// Pool provides direct database access.
	Pool *pgxpool.Pool

	// Config holds the environment configuration.
	Config EnvConfig

	// mu protects browser lazy initialization.
	mu sync.Mutex

	browser *helpers.Browser

	// cleanupFuncs holds cleanup functions in reverse order.
	cleanupFuncs []func()
}

// EnvConfig holds configuration for the test environment.
type EnvConfig struct {
	// Postgres holds PostgreSQL container configuration.
	Postgres PostgresConfig

	// Service holds service configuration.
	Service ServiceConfig

	// SkipService skips starting the service (for DB-only tests).
	SkipService bool

	// ExternalDatabaseURL is an optional external database URL to use instead of testcontainers.
	// If set, testcontainers will be skipped. Useful for CI environments without Docker.
	ExternalDatabaseURL string

	// CoverageDir, when set, runs a coverage-instrumented service that
	// writes its coverage data there on shutdown.
	CoverageDir string
}

// DefaultConfig returns the default test environment configuration.
func DefaultConfig() EnvConfig {
	return EnvConfig{
		Postgres:            DefaultPostgresConfig(),
		Service:             DefaultServiceConfig(),
		SkipService:         false,
		ExternalDatabaseURL: os.Getenv("TEST_DATABASE_URL"),
		CoverageDir:         os.Getenv("E2E_COVERAGE_DIR"),
	}
}

// Setup initializes the complete E2E test environment.
//
// This function:
//  1. Starts an ephemeral PostgreSQL container (or uses external database if provided)
//  2. Runs database migrations
//  3. Starts the report service connected to the database
//  4. Starts the fixture site
//  5. Initializes test helpers (DB, API)
func Setup(ctx context.Context, cfg EnvConfig) (*TestEnv, error) {
	env := &TestEnv{
		Config:       cfg,
		cleanupFuncs: make([]func(), 0),
	}

	var pool *pgxpool.Pool
	var dbURL string

	if cfg.ExternalDatabaseURL != "" {
		db, err := database.New(cfg.ExternalDatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to external database: %w", err)
		}

		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations on external database: %w", err)
		}

		pool = db.Pool
		dbURL = cfg.ExternalDatabaseURL
		env.addCleanup(db.Close)
	} else {
		pg, pgCleanup, err := StartPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to start postgres: %w", err)
		}
		env.addCleanup(pgCleanup)
		env.Postgres = pg
		pool = pg.Pool
		dbURL = pg.ConnectionString
	}

	env.Pool = pool
	env.DB = helpers.NewDBHelper(pool)

	site := fixture.New()
	env.addCleanup(site.Close)
	env.Fixture = site

	if !cfg.SkipService {
		svcCfg := cfg.Service
		svcCfg.DatabaseURL = dbURL

		if err := env.startService(ctx, svcCfg); err != nil {
			env.Teardown()
			return nil, err
		}

		env.API = helpers.NewAPIClient(env.Service.URL)
		env.API.SetHeader("x-api-key", svcCfg.APIKey)
	}

	return env, nil
}

func (env *TestEnv) startService(ctx context.Context, svcCfg ServiceConfig) error {
	if env.Config.CoverageDir == "" {
		svc, cleanup, err := StartService(ctx, svcCfg)
		if err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}
		env.addCleanup(cleanup)
		env.Service = svc
		return nil
	}

	icfg := DefaultInstrumentedConfig()
	icfg.ServiceConfig = svcCfg
	icfg.CoverageDir = env.Config.CoverageDir

	svc, cleanup, err := StartInstrumentedService(ctx, icfg)
	if err != nil {
		return fmt.Errorf("failed to start instrumented service: %w", err)
	}
	env.addCleanup(func() {
		cleanup()
		if err := svc.ConvertCoverageData(svc.ProfilePath()); err != nil {
			zap.S().Warnw("e2e coverage not converted", "error", err)
			return
		}
		zap.S().Infow("e2e coverage written", "profile", svc.ProfilePath())
	})
	env.Instrumented = svc
	env.Service = svc.Service
	return nil
}

// Teardown releases all test resources in reverse order.
//
// The browser is closed first, then the service is stopped, the fixture
// site shut down and the PostgreSQL container terminated.
func (env *TestEnv) Teardown() {
	env.mu.Lock()
	if env.browser != nil {
		_ = env.browser.Close()
	}
	env.mu.Unlock()

	for i := len(env.cleanupFuncs) - 1; i >= 0; i-- {
		env.cleanupFuncs[i]()
	}
}

// CleanupTestData removes all healing events.
func (env *TestEnv) CleanupTestData(ctx context.Context) error {
	db := &database.DB{Pool: env.Pool}
	return db.Truncate(ctx)
}

// Browser returns the browser helper, initializing it lazily.
//
// The browser is shared across tests and closed during Teardown. Tests
// that change its resolve options or reporter must restore them.
func (env *TestEnv) Browser() (*helpers.Browser, error) {
	env.mu.Lock()
	defer env.mu.Unlock()

	if env.browser != nil {
		return env.browser, nil
	}

	browser, err := helpers.NewBrowser()
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	env.browser = browser
	return browser, nil
}

// ServiceURL returns the base URL of the running service.
func (env *TestEnv) ServiceURL() string {
	if env.Service == nil {
		return ""
	}
	return env.Service.URL
}

// NewIsolatedEnv creates a new test environment for parallel test isolation.
//
// Each isolated environment shares the same PostgreSQL container but gets
// its own API client. Tests should prefix their locators with UniqueID.
func (env *TestEnv) NewIsolatedEnv(testName string) *IsolatedEnv {
	api := helpers.NewAPIClient(env.ServiceURL())
	api.SetHeader("x-api-key", env.Config.Service.APIKey)

	return &IsolatedEnv{
		TestName: testName,
		DB:       env.DB,
		API:      api,
		Pool:     env.Pool,
	}
}

// IsolatedEnv provides test isolation for parallel tests.
type IsolatedEnv struct {
	// TestName identifies this test for unique data prefixes.
	TestName string

	// DB provides database access.
	DB *helpers.DBHelper

	// API provides HTTP client (separate instance per test).
	API *helpers.APIClient

	// Pool provides direct database access.
	Pool *pgxpool.Pool
}

// UniqueID creates a test-specific unique locator name.
//
//	locator := iso.UniqueID("submit")
//	// Returns something like "TestParallel_submit"
func (iso *IsolatedEnv) UniqueID(base string) string {
	return fmt.Sprintf("%s_%s", iso.TestName, base)
}

// Cleanup removes every event recorded under this test's locator prefix.
func (iso *IsolatedEnv) Cleanup(ctx context.Context) error {
	_, err := iso.DB.DeleteByPrefix(ctx, iso.TestName+"_")
	return err
}

// addCleanup adds a cleanup function to be called during Teardown.
func (env *TestEnv) addCleanup(fn func()) {
	env.cleanupFuncs = append(env.cleanupFuncs, fn)
}
