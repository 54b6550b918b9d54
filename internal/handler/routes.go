package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/gti/selfheal-e2e/internal/middleware"
)

// RegisterRoutes wires the healing-report API onto e.
func RegisterRoutes(e *echo.Echo, h *HealingHandler, apiKey string) {
	e.GET("/health", Health)

	// Public API routes
	e.GET("/api/healings", h.ListHealings)
	e.GET("/api/healings/summary", h.GetSummary)
	e.GET("/api/healings/unresolved", h.GetUnresolved)

	// Protected API routes (require x-api-key)
	apiProtected := e.Group("/api")
	apiProtected.Use(middleware.APIKeyAuth(apiKey))
	apiProtected.POST("/healings", h.RecordHealing)
}
