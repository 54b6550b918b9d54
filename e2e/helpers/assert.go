// Package helpers provides narrowly-scoped utilities for E2E testing.
package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gti/selfheal-e2e/internal/healing"
)

// Assert provides assertion capabilities for E2E tests.
//
// This is a thin wrapper around testify/assert plus a few checks over
// healing.Summary. All assertions log failures but do not stop test
// execution.
//
//	a := NewAssert(t)
//	a.Resolved(res.Summary(), "aria-label")
//	a.Equal(201, resp.StatusCode)
type Assert struct {
	t *testing.T
}

// NewAssert creates a new assertion helper for the given test.
func NewAssert(t *testing.T) *Assert {
	return &Assert{t: t}
}

// Equal asserts that expected and actual are equal.
func (a *Assert) Equal(expected, actual any, msgAndArgs ...any) bool {
	return assert.Equal(a.t, expected, actual, msgAndArgs...)
}

// NoError asserts that err is nil.
func (a *Assert) NoError(err error, msgAndArgs ...any) bool {
	return assert.NoError(a.t, err, msgAndArgs...)
}

// ErrorIs asserts that err wraps target.
func (a *Assert) ErrorIs(err, target error, msgAndArgs ...any) bool {
	return assert.ErrorIs(a.t, err, target, msgAndArgs...)
}

// Contains asserts that the string s contains the substring.
func (a *Assert) Contains(s, contains string, msgAndArgs ...any) bool {
	return assert.Contains(a.t, s, contains, msgAndArgs...)
}

// Len asserts that the specified object has the expected length.
func (a *Assert) Len(object any, length int, msgAndArgs ...any) bool {
	return assert.Len(a.t, object, length, msgAndArgs...)
}

// Resolved asserts that summary found an element with the named strategy.
//
//	a.Resolved(res.Summary(), "data-testid")
func (a *Assert) Resolved(summary healing.Summary, strategy string, msgAndArgs ...any) bool {
	if !assert.True(a.t, summary.Found, msgAndArgs...) {
		return false
	}
	return assert.Equal(a.t, strategy, summary.Strategy, msgAndArgs...)
}

// Unresolved asserts that summary exhausted every pass: attempts equal
// passes times strategies and every attempt timed out.
func (a *Assert) Unresolved(summary healing.Summary, passes, strategies int, msgAndArgs ...any) bool {
	ok := assert.False(a.t, summary.Found, msgAndArgs...)
	ok = assert.Len(a.t, summary.Trace, passes*strategies, msgAndArgs...) && ok
	for _, attempt := range summary.Trace {
		ok = assert.Equal(a.t, healing.OutcomeTimeout, attempt.Outcome, msgAndArgs...) && ok
	}
	return ok
}

// TraceStrategies asserts the exact strategy order recorded in summary.
//
//	a.TraceStrategies(res.Summary(), "role-button", "data-testid")
func (a *Assert) TraceStrategies(summary healing.Summary, names ...string) bool {
	got := make([]string, 0, len(summary.Trace))
	for _, attempt := range summary.Trace {
		got = append(got, attempt.Strategy)
	}
	return assert.Equal(a.t, names, got)
}
