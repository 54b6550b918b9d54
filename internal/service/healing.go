package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gti/selfheal-e2e/internal/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// HealingStore persists healing events. Implemented by repository.HealingRepository.
type HealingStore interface {
	Insert(ctx context.Context, e *models.HealingEvent) error
	List(ctx context.Context, locator string, limit int) ([]models.HealingEvent, error)
	Summary(ctx context.Context) ([]models.StrategySummary, error)
	Unresolved(ctx context.Context) ([]models.UnresolvedLocator, error)
}

type HealingService struct {
	store HealingStore
	now   func() time.Time
	newID func() string
}

func NewHealingService(store HealingStore) *HealingService {
	return &HealingService{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Record stores a resolution outcome reported by a test run
func (s *HealingService) Record(ctx context.Context, req *models.RecordHealingRequest) (*models.HealingEvent, error) {
	event := &models.HealingEvent{
		ID:         s.newID(),
		Locator:    req.Locator,
		Strategy:   req.Strategy,
		Found:      req.Found,
		Pass:       req.Pass,
		Attempts:   req.Attempts,
		DurationMS: req.DurationMS,
		TestName:   req.TestName,
		RecordedAt: s.now().UTC(),
	}

	// A not-found outcome has no winning strategy or pass
	if !event.Found {
		event.Strategy = ""
		event.Pass = 0
	}

	if err := s.store.Insert(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record healing event: %w", err)
	}
	return event, nil
}

// Recent returns the newest events; limit is clamped to [1, MaxListLimit]
func (s *HealingService) Recent(ctx context.Context, locator string, limit int) ([]models.HealingEvent, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	events, err := s.store.List(ctx, locator, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.HealingEvent{}
	}
	return events, nil
}

// Summary returns per-strategy heal counts
func (s *HealingService) Summary(ctx context.Context) ([]models.StrategySummary, error) {
	summary, err := s.store.Summary(ctx)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		summary = []models.StrategySummary{}
	}
	return summary, nil
}

// Unresolved returns locators that failed to resolve at least once
func (s *HealingService) Unresolved(ctx context.Context) ([]models.UnresolvedLocator, error) {
	unresolved, err := s.store.Unresolved(ctx)
	if err != nil {
		return nil, err
	}
	if unresolved == nil {
		unresolved = []models.UnresolvedLocator{}
	}
	return unresolved, nil
}
