package handler

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/gti/selfheal-e2e/internal/models"
	"github.com/gti/selfheal-e2e/internal/service"
)

type HealingHandler struct {
	healingService *service.HealingService
	validate       *validator.Validate
}

func NewHealingHandler(healingService *service.HealingService) *HealingHandler {
	return &HealingHandler{
		healingService: healingService,
		validate:       validator.New(),
	}
}

// RecordHealing stores a resolution outcome reported by a test run
// @Summary Record a healing event
// @Description Store which strategy resolved a locator (or that none did)
// @Tags Healings
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param event body models.RecordHealingRequest true "Resolution outcome"
// @Success 201 {object} models.HealingEvent "Recorded event"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/healings [post]
func (h *HealingHandler) RecordHealing(c echo.Context) error {
	var req models.RecordHealingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	event, err := h.healingService.Record(c.Request().Context(), &req)
	if err != nil {
		zap.S().Named("healing_handler").Errorw("failed to record healing event", "locator", req.Locator, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusCreated, event)
}

// ListHealings returns recent healing events
// @Summary List healing events
// @Description Returns the newest healing events, optionally for a single locator
// @Tags Healings
// @Produce json
// @Param locator query string false "Only events for this locator"
// @Param limit query int false "Maximum number of events (default 50, max 500)"
// @Success 200 {array} models.HealingEvent "Healing events"
// @Failure 400 {object} map[string]string "Invalid limit"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/healings [get]
func (h *HealingHandler) ListHealings(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
		}
		limit = n
	}

	events, err := h.healingService.Recent(c.Request().Context(), c.QueryParam("locator"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, events)
}

// GetSummary returns how often each strategy healed each locator
// @Summary Strategy summary
// @Description Counts successful resolutions per locator and strategy
// @Tags Healings
// @Produce json
// @Success 200 {array} models.StrategySummary "Summary rows"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/healings/summary [get]
func (h *HealingHandler) GetSummary(c echo.Context) error {
	summary, err := h.healingService.Summary(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, summary)
}

// GetUnresolved returns locators that exhausted every strategy
// @Summary Unresolved locators
// @Description Locators with at least one not-found outcome, most recent first
// @Tags Healings
// @Produce json
// @Success 200 {array} models.UnresolvedLocator "Unresolved locators"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/healings/unresolved [get]
func (h *HealingHandler) GetUnresolved(c echo.Context) error {
	unresolved, err := h.healingService.Unresolved(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, unresolved)
}

// Health reports liveness
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string "ok"
// @Router /health [get]
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
