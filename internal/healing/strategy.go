// Package healing resolves UI elements through an ordered list of fallback
// location strategies.
//
// A Resolver walks the strategy list one attempt at a time, waiting a bounded
// amount of time for each candidate to become visible. When a whole pass fails
// it waits and starts over from the first strategy, up to a fixed number of
// passes. Absence is reported as a value, never as an error:
//
//	r := healing.NewResolver[*rodpage.Locator](page, healing.DefaultOptions())
//	res, err := r.Resolve(ctx, healing.ButtonStrategies("Submit"))
//	if err != nil {
//	    return err // invalid options or cancelled context
//	}
//	if !res.Found {
//	    // decide whether absence matters
//	}
package healing

import (
	"fmt"
	"time"
)

// Strategy is one named way of locating an element.
//
// Expression is opaque to the resolver and interpreted by the Page
// implementation. Name is used in traces and logs.
type Strategy struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// String implements fmt.Stringer.
func (s Strategy) String() string {
	return fmt.Sprintf("%s(%s)", s.Name, s.Expression)
}

// Outcome is the result of a single attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeTimeout Outcome = "timeout"
)

// Attempt records one strategy tried during one pass.
type Attempt struct {
	// Strategy is the name of the strategy tried.
	Strategy string `json:"strategy"`

	// Pass is the 1-based pass number.
	Pass int `json:"pass"`

	// Index is the 0-based position of the strategy in the list.
	Index int `json:"index"`

	// Outcome is success or timeout.
	Outcome Outcome `json:"outcome"`
}

// Result is the outcome of a Resolve call.
//
// When Found is false, Element is the zero value and Strategy is empty.
type Result[E any] struct {
	Element  E
	Found    bool
	Strategy Strategy
	Pass     int
	Trace    []Attempt
	Elapsed  time.Duration
}

// Err returns ErrNotFound when nothing matched, nil otherwise.
//
// Use it when the caller treats absence as a failure:
//
//	if err := res.Err(); err != nil {
//	    t.Fatal(err)
//	}
func (r Result[E]) Err() error {
	if r.Found {
		return nil
	}
	return ErrNotFound
}

// Summary drops the element handle so the outcome can be passed around
// without knowing the element type.
func (r Result[E]) Summary() Summary {
	return Summary{
		Found:    r.Found,
		Strategy: r.Strategy.Name,
		Pass:     r.Pass,
		Attempts: len(r.Trace),
		Elapsed:  r.Elapsed,
		Trace:    append([]Attempt(nil), r.Trace...),
	}
}

// Summary is the element-free view of a Result.
type Summary struct {
	Found    bool          `json:"found"`
	Strategy string        `json:"strategy,omitempty"`
	Pass     int           `json:"pass"`
	Attempts int           `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed"`
	Trace    []Attempt     `json:"trace"`
}
