package healing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	errTimeout  = errors.New("timed out waiting for visibility")
	errBadQuery = errors.New("bad expression")
)

// fakePage is a scripted page: an expression listed in visibleAfter becomes
// visible that long after the wait starts, anything else never appears.
type fakePage struct {
	visibleAfter map[string]time.Duration
	invalid      map[string]bool
	waits        []string
}

func newFakePage() *fakePage {
	return &fakePage{
		visibleAfter: make(map[string]time.Duration),
		invalid:      make(map[string]bool),
	}
}

func (p *fakePage) Locate(expression string) (string, error) {
	if p.invalid[expression] {
		return "", errBadQuery
	}
	return expression, nil
}

func (p *fakePage) WaitVisible(ctx context.Context, el string, timeout time.Duration) error {
	p.waits = append(p.waits, el)
	if err := ctx.Err(); err != nil {
		return err
	}
	if d, ok := p.visibleAfter[el]; ok && d <= timeout {
		return nil
	}
	return errTimeout
}

type sleepRecorder struct {
	delays []time.Duration
	onCall func()
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	if s.onCall != nil {
		s.onCall()
	}
	return ctx.Err()
}

var (
	byTestID = Strategy{Name: "by-testid", Expression: "[data-testid=x]"}
	byText   = Strategy{Name: "by-text", Expression: "text=Submit"}
)

func testOptions(sleep *sleepRecorder) Options {
	return Options{
		MaxPasses:      3,
		AttemptTimeout: 2000 * time.Millisecond,
		PassDelay:      500 * time.Millisecond,
		Sleep:          sleep.Sleep,
		Logger:         zap.NewNop().Sugar(),
	}
}

func outcomes(trace []Attempt) []Outcome {
	out := make([]Outcome, 0, len(trace))
	for _, a := range trace {
		out = append(out, a.Outcome)
	}
	return out
}

func TestResolve_FirstStrategyWins(t *testing.T) {
	page := newFakePage()
	page.visibleAfter[byTestID.Expression] = 0
	page.visibleAfter[byText.Expression] = 0
	sleep := &sleepRecorder{}

	res, err := NewResolver[string](page, testOptions(sleep)).Resolve(context.Background(), []Strategy{byTestID, byText})
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, byTestID, res.Strategy)
	assert.Equal(t, byTestID.Expression, res.Element)
	assert.Equal(t, 1, res.Pass)
	assert.Equal(t, []Attempt{{Strategy: "by-testid", Pass: 1, Index: 0, Outcome: OutcomeSuccess}}, res.Trace)
	assert.Equal(t, []string{byTestID.Expression}, page.waits, "later strategies must not be tried")
	assert.Empty(t, sleep.delays)
}

func TestResolve_KthStrategyWinsInFirstPass(t *testing.T) {
	strategies := []Strategy{
		{Name: "s1", Expression: "#one"},
		{Name: "s2", Expression: "#two"},
		{Name: "s3", Expression: "#three"},
		{Name: "s4", Expression: "#four"},
	}

	for k := 1; k <= len(strategies); k++ {
		page := newFakePage()
		page.visibleAfter[strategies[k-1].Expression] = 10 * time.Millisecond
		sleep := &sleepRecorder{}

		res, err := NewResolver[string](page, testOptions(sleep)).Resolve(context.Background(), strategies)
		require.NoError(t, err)

		assert.True(t, res.Found, "k=%d", k)
		assert.Equal(t, strategies[k-1].Name, res.Strategy.Name, "k=%d", k)
		assert.Len(t, res.Trace, k, "k=%d", k)
		for i, a := range res.Trace {
			assert.Equal(t, 1, a.Pass, "all attempts belong to pass 1")
			assert.Equal(t, i, a.Index)
		}
		assert.Empty(t, sleep.delays, "no inter-pass delay when pass 1 succeeds")
	}
}

func TestResolve_ExhaustsAllPasses(t *testing.T) {
	page := newFakePage()
	sleep := &sleepRecorder{}
	opts := testOptions(sleep)
	opts.MaxPasses = 4
	strategies := []Strategy{byTestID, byText, {Name: "by-aria", Expression: "[aria-label=x]"}}

	res, err := NewResolver[string](page, opts).Resolve(context.Background(), strategies)
	require.NoError(t, err, "exhaustion is not an error")

	assert.False(t, res.Found)
	assert.Empty(t, res.Element)
	assert.Equal(t, Strategy{}, res.Strategy)
	assert.Len(t, res.Trace, 4*len(strategies))
	assert.Len(t, sleep.delays, 3)
	assert.ErrorIs(t, res.Err(), ErrNotFound)

	for i, a := range res.Trace {
		assert.Equal(t, i/len(strategies)+1, a.Pass)
		assert.Equal(t, strategies[i%len(strategies)].Name, a.Strategy, "every pass restarts from the first strategy")
		assert.Equal(t, OutcomeTimeout, a.Outcome)
	}
}

func TestResolve_FallsBackToText(t *testing.T) {
	page := newFakePage()
	page.visibleAfter[byText.Expression] = 200 * time.Millisecond
	sleep := &sleepRecorder{}

	res, err := NewResolver[string](page, testOptions(sleep)).Resolve(context.Background(), []Strategy{byTestID, byText})
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, "by-text", res.Strategy.Name)
	assert.Equal(t, []Attempt{
		{Strategy: "by-testid", Pass: 1, Index: 0, Outcome: OutcomeTimeout},
		{Strategy: "by-text", Pass: 1, Index: 1, Outcome: OutcomeSuccess},
	}, res.Trace)
	assert.NoError(t, res.Err())
}

func TestResolve_NeitherPresentTwoPasses(t *testing.T) {
	page := newFakePage()
	sleep := &sleepRecorder{}
	opts := testOptions(sleep)
	opts.MaxPasses = 2

	res, err := NewResolver[string](page, opts).Resolve(context.Background(), []Strategy{byTestID, byText})
	require.NoError(t, err)

	assert.False(t, res.Found)
	assert.Len(t, res.Trace, 4)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, sleep.delays)
}

func TestResolve_SinglePassNeverSleeps(t *testing.T) {
	page := newFakePage()
	sleep := &sleepRecorder{}
	opts := testOptions(sleep)
	opts.MaxPasses = 1

	res, err := NewResolver[string](page, opts).Resolve(context.Background(), []Strategy{byTestID, byText})
	require.NoError(t, err)

	assert.False(t, res.Found)
	assert.Len(t, res.Trace, 2)
	assert.Empty(t, sleep.delays)
}

func TestResolve_ZeroTimeout(t *testing.T) {
	page := newFakePage()
	page.visibleAfter[byTestID.Expression] = time.Millisecond
	page.visibleAfter[byText.Expression] = 0
	sleep := &sleepRecorder{}
	opts := testOptions(sleep)
	opts.AttemptTimeout = 0

	res, err := NewResolver[string](page, opts).Resolve(context.Background(), []Strategy{byTestID, byText})
	require.NoError(t, err)

	assert.True(t, res.Found, "an already visible element is found with a zero timeout")
	assert.Equal(t, "by-text", res.Strategy.Name)
	assert.Equal(t, []Outcome{OutcomeTimeout, OutcomeSuccess}, outcomes(res.Trace))
}

func TestResolve_PageChangesBetweenPasses(t *testing.T) {
	page := newFakePage()
	sleep := &sleepRecorder{onCall: func() {
		page.visibleAfter[byText.Expression] = 0
		page.visibleAfter[byTestID.Expression] = 0
	}}

	res, err := NewResolver[string](page, testOptions(sleep)).Resolve(context.Background(), []Strategy{byTestID, byText})
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, 2, res.Pass)
	assert.Equal(t, "by-testid", res.Strategy.Name, "second pass starts again from the most specific strategy")
	assert.Len(t, res.Trace, 3)
}

func TestResolve_Idempotent(t *testing.T) {
	page := newFakePage()
	page.visibleAfter[byText.Expression] = 200 * time.Millisecond
	r := NewResolver[string](page, testOptions(&sleepRecorder{}))
	strategies := []Strategy{byTestID, byText}

	first, err := r.Resolve(context.Background(), strategies)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), strategies)
	require.NoError(t, err)

	assert.Equal(t, first.Found, second.Found)
	assert.Equal(t, first.Strategy, second.Strategy)
	assert.Equal(t, first.Element, second.Element)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestResolve_DoesNotMutateStrategies(t *testing.T) {
	strategies := []Strategy{byTestID, byText}
	snapshot := append([]Strategy(nil), strategies...)

	_, err := NewResolver[string](newFakePage(), testOptions(&sleepRecorder{})).Resolve(context.Background(), strategies)
	require.NoError(t, err)

	assert.Equal(t, snapshot, strategies)
}

func TestResolve_LocateErrorCountsAsFailedAttempt(t *testing.T) {
	page := newFakePage()
	page.invalid[byTestID.Expression] = true
	page.visibleAfter[byText.Expression] = 0

	res, err := NewResolver[string](page, testOptions(&sleepRecorder{})).Resolve(context.Background(), []Strategy{byTestID, byText})
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, []Outcome{OutcomeTimeout, OutcomeSuccess}, outcomes(res.Trace))
	assert.Equal(t, []string{byText.Expression}, page.waits)
}

func TestResolve_Observer(t *testing.T) {
	page := newFakePage()
	page.visibleAfter[byText.Expression] = 0
	opts := testOptions(&sleepRecorder{})

	var seen []Attempt
	opts.Observer = func(a Attempt) { seen = append(seen, a) }

	res, err := NewResolver[string](page, opts).Resolve(context.Background(), []Strategy{byTestID, byText})
	require.NoError(t, err)
	assert.Equal(t, res.Trace, seen)
}

func TestResolve_InvalidOptions(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Options)
		strategies []Strategy
	}{
		{name: "no strategies", mutate: func(*Options) {}, strategies: nil},
		{name: "zero passes", mutate: func(o *Options) { o.MaxPasses = 0 }, strategies: []Strategy{byText}},
		{name: "negative timeout", mutate: func(o *Options) { o.AttemptTimeout = -time.Second }, strategies: []Strategy{byText}},
		{name: "negative delay", mutate: func(o *Options) { o.PassDelay = -time.Second }, strategies: []Strategy{byText}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage()
			opts := testOptions(&sleepRecorder{})
			tt.mutate(&opts)

			res, err := NewResolver[string](page, opts).Resolve(context.Background(), tt.strategies)
			assert.ErrorIs(t, err, ErrInvalidOptions)
			assert.False(t, res.Found)
			assert.Empty(t, page.waits)
		})
	}
}

func TestResolve_CancelledDuringAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewResolver[string](newFakePage(), testOptions(&sleepRecorder{})).Resolve(ctx, []Strategy{byTestID, byText})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Found)
	assert.Len(t, res.Trace, 1, "resolution stops at the first suspension point after cancellation")
}

func TestResolve_CancelledDuringPassDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleep := &sleepRecorder{onCall: cancel}

	res, err := NewResolver[string](newFakePage(), testOptions(sleep)).Resolve(ctx, []Strategy{byTestID, byText})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res.Trace, 2)
	assert.Len(t, sleep.delays, 1)
}

func TestResolve_DefaultSleepWaits(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxPasses = 2
	opts.PassDelay = 20 * time.Millisecond
	opts.Logger = zap.NewNop().Sugar()

	start := time.Now()
	res, err := NewResolver[string](newFakePage(), opts).Resolve(context.Background(), []Strategy{byText})
	require.NoError(t, err)

	assert.False(t, res.Found)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.GreaterOrEqual(t, res.Elapsed, 20*time.Millisecond)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	assert.NoError(t, sleepContext(context.Background(), 0))
}

func TestResultSummary(t *testing.T) {
	res := Result[string]{
		Element:  "#submit",
		Found:    true,
		Strategy: byText,
		Pass:     2,
		Trace: []Attempt{
			{Strategy: "by-testid", Pass: 1, Outcome: OutcomeTimeout},
			{Strategy: "by-text", Pass: 1, Index: 1, Outcome: OutcomeTimeout},
			{Strategy: "by-testid", Pass: 2, Outcome: OutcomeTimeout},
			{Strategy: "by-text", Pass: 2, Index: 1, Outcome: OutcomeSuccess},
		},
		Elapsed: time.Second,
	}

	sum := res.Summary()
	assert.True(t, sum.Found)
	assert.Equal(t, "by-text", sum.Strategy)
	assert.Equal(t, 2, sum.Pass)
	assert.Equal(t, 4, sum.Attempts)
	assert.Equal(t, time.Second, sum.Elapsed)

	sum.Trace[0].Strategy = "changed"
	assert.Equal(t, "by-testid", res.Trace[0].Strategy, "summary trace is a copy")
}
