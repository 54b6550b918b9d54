package healing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by Result.Err when no strategy matched.
	ErrNotFound = errors.New("element not found with any strategy")

	// ErrInvalidOptions is returned by Resolve when it is called with
	// arguments outside its contract.
	ErrInvalidOptions = errors.New("invalid resolve options")
)

// Page is the automation layer the resolver drives.
//
// Locate turns an expression into a handle without waiting. WaitVisible
// blocks until the handle refers to a visible element, the timeout elapses,
// or ctx is done. A zero timeout must check visibility once without waiting.
type Page[E any] interface {
	Locate(expression string) (E, error)
	WaitVisible(ctx context.Context, el E, timeout time.Duration) error
}

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Resolver.
type Options struct {
	// MaxPasses is the number of full traversals of the strategy list (>= 1).
	MaxPasses int

	// AttemptTimeout bounds the visibility wait of each attempt.
	AttemptTimeout time.Duration

	// PassDelay is the pause between two failed passes.
	PassDelay time.Duration

	// Sleep performs the pause between passes. Defaults to a timer that
	// honours ctx cancellation.
	Sleep SleepFunc

	// Observer, when set, receives every attempt as it completes.
	Observer func(Attempt)

	// Logger receives diagnostic output. Defaults to zap.S().Named("healing").
	Logger *zap.SugaredLogger
}

// DefaultOptions returns three passes, a two second wait per attempt and
// half a second between passes.
func DefaultOptions() Options {
	return Options{
		MaxPasses:      3,
		AttemptTimeout: 2 * time.Second,
		PassDelay:      500 * time.Millisecond,
	}
}

func (o Options) validate(strategies []Strategy) error {
	switch {
	case len(strategies) == 0:
		return fmt.Errorf("%w: no strategies", ErrInvalidOptions)
	case o.MaxPasses < 1:
		return fmt.Errorf("%w: max passes must be at least 1, got %d", ErrInvalidOptions, o.MaxPasses)
	case o.AttemptTimeout < 0:
		return fmt.Errorf("%w: negative attempt timeout %v", ErrInvalidOptions, o.AttemptTimeout)
	case o.PassDelay < 0:
		return fmt.Errorf("%w: negative pass delay %v", ErrInvalidOptions, o.PassDelay)
	}
	return nil
}

// Resolver maps a prioritized list of strategies to at most one element.
//
// A Resolver holds no per-call state and may be reused. Calls are strictly
// sequential: one attempt is in flight at a time.
type Resolver[E any] struct {
	page Page[E]
	opts Options
}

// NewResolver creates a resolver over page.
func NewResolver[E any](page Page[E], opts Options) *Resolver[E] {
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Resolver[E]{page: page, opts: opts}
}

// Resolve tries each strategy in order, pass after pass, and returns the
// first visible match.
//
// The returned error is non-nil only when the options are invalid or ctx is
// done; in the latter case the partial trace is still returned. Exhausting
// every pass yields a Result with Found == false and a nil error.
func (r *Resolver[E]) Resolve(ctx context.Context, strategies []Strategy) (res Result[E], err error) {
	if err := r.opts.validate(strategies); err != nil {
		return res, err
	}

	log := r.logger()
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start) }()

	res.Trace = make([]Attempt, 0, len(strategies))
	for pass := 1; pass <= r.opts.MaxPasses; pass++ {
		for i, s := range strategies {
			el, err := r.attempt(ctx, s)

			a := Attempt{Strategy: s.Name, Pass: pass, Index: i, Outcome: OutcomeSuccess}
			if err != nil {
				a.Outcome = OutcomeTimeout
			}
			res.Trace = append(res.Trace, a)
			if r.opts.Observer != nil {
				r.opts.Observer(a)
			}

			if err == nil {
				log.Debugw("found element", "strategy", s.Name, "pass", pass)
				res.Element = el
				res.Found = true
				res.Strategy = s
				res.Pass = pass
				return res, nil
			}

			log.Debugw("strategy failed, trying next", "strategy", s.Name, "pass", pass, "error", err)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
		}

		if pass < r.opts.MaxPasses {
			log.Debugw("retrying strategies", "next_pass", pass+1, "max_passes", r.opts.MaxPasses, "delay", r.opts.PassDelay)
			if err := r.opts.Sleep(ctx, r.opts.PassDelay); err != nil {
				return res, err
			}
		}
	}

	log.Infow("element not found with any strategy", "strategies", len(strategies), "passes", r.opts.MaxPasses)
	return res, nil
}

// attempt runs one Locate + WaitVisible against a single strategy.
func (r *Resolver[E]) attempt(ctx context.Context, s Strategy) (E, error) {
	el, err := r.page.Locate(s.Expression)
	if err != nil {
		var zero E
		return zero, fmt.Errorf("locate %q: %w", s.Expression, err)
	}
	if err := r.page.WaitVisible(ctx, el, r.opts.AttemptTimeout); err != nil {
		var zero E
		return zero, err
	}
	return el, nil
}

func (r *Resolver[E]) logger() *zap.SugaredLogger {
	if r.opts.Logger != nil {
		return r.opts.Logger
	}
	return zap.S().Named("healing")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
