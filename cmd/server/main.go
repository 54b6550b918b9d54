// @title Self-Healing Report API
// @version 1.0
// @description Collects self-healing locator outcomes reported by browser test runs
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for protected endpoints

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/gti/selfheal-e2e/docs"
	"github.com/gti/selfheal-e2e/internal/config"
	"github.com/gti/selfheal-e2e/internal/database"
	"github.com/gti/selfheal-e2e/internal/handler"
	"github.com/gti/selfheal-e2e/internal/logging"
	"github.com/gti/selfheal-e2e/internal/repository"
	"github.com/gti/selfheal-e2e/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar().Named("server")

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	// Run migrations
	ctx := context.Background()
	if err := db.RunMigrations(ctx); err != nil {
		sugar.Fatalw("failed to run migrations", "error", err)
	}

	healingRepo := repository.NewHealingRepository(db.Pool)
	healingService := service.NewHealingService(healingRepo)
	healingHandler := handler.NewHealingHandler(healingService)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			fields := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				sugar.Warnw("request failed", append(fields, "error", v.Error)...)
				return nil
			}
			sugar.Debugw("request", fields...)
			return nil
		},
	}))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())

	handler.RegisterRoutes(e, healingHandler, cfg.APIKey)

	// Swagger API documentation
	e.GET("/api/doc/*", echoSwagger.WrapHandler)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Port
		sugar.Infow("starting server", "addr", addr, "api_key_required", cfg.APIKey != "")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("server shutdown error", "error", err)
		return
	}

	sugar.Info("server stopped")
}
