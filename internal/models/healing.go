package models

import (
	"time"
)

// HealingEvent records one self-healing resolution outcome
type HealingEvent struct {
	ID         string    `json:"id"`
	Locator    string    `json:"locator"`            // Logical element name, e.g. "todo-input"
	Strategy   string    `json:"strategy,omitempty"` // Winning strategy; empty when not found
	Found      bool      `json:"found"`
	Pass       int       `json:"pass"`     // 1-based pass that succeeded, 0 when not found
	Attempts   int       `json:"attempts"` // Total attempts across all passes
	DurationMS int64     `json:"duration_ms"`
	TestName   string    `json:"test_name,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StrategySummary counts how often a strategy healed a locator
type StrategySummary struct {
	Locator  string `json:"locator"`
	Strategy string `json:"strategy"`
	Count    int    `json:"count"`
}

// UnresolvedLocator is a locator that exhausted every strategy at least once
type UnresolvedLocator struct {
	Locator  string    `json:"locator"`
	Failures int       `json:"failures"`
	LastSeen time.Time `json:"last_seen"`
}

// RecordHealingRequest is the request body for POST /api/healings
type RecordHealingRequest struct {
	Locator    string `json:"locator" validate:"required,max=200"`
	Strategy   string `json:"strategy" validate:"required_if=Found true,max=200"`
	Found      bool   `json:"found"`
	Pass       int    `json:"pass" validate:"required_if=Found true,gte=0"`
	Attempts   int    `json:"attempts" validate:"required,gte=1"`
	DurationMS int64  `json:"duration_ms" validate:"gte=0"`
	TestName   string `json:"test_name" validate:"max=500"`
}
