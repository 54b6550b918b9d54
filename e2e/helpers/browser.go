// Package helpers provides narrowly-scoped utilities for E2E testing.
package helpers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/gti/selfheal-e2e/internal/healing"
	"github.com/gti/selfheal-e2e/internal/healing/rodpage"
)

// Reporter receives the outcome of every Heal call.
type Reporter interface {
	Report(ctx context.Context, locator string, summary healing.Summary) error
}

// Browser provides headless browser capabilities for E2E tests.
//
// Use this helper to:
//   - Load fixture pages
//   - Resolve elements through prioritized fallback strategies
//   - Report which strategy healed each logical locator
//
// Elements are never looked up by a single selector. Every lookup goes
// through Heal (or one of the Find* presets on top of it) so that a broken
// primary selector falls back instead of failing the test.
type Browser struct {
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
	opts     healing.Options
	reporter Reporter
}

// NewBrowser creates a new headless browser instance.
//
// The browser runs in headless mode by default. Call Close() when done
// to release browser resources.
//
//	browser, err := NewBrowser()
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer browser.Close()
func NewBrowser() (*Browser, error) {
	url, err := launcher.New().Headless(true).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	return &Browser{
		browser: browser,
		page:    page,
		timeout: 30 * time.Second,
		opts:    healing.DefaultOptions(),
	}, nil
}

// SetTimeout sets the timeout for navigation.
//
// The default timeout is 30 seconds. Resolution timing is controlled
// separately through SetResolveOptions.
func (b *Browser) SetTimeout(d time.Duration) {
	b.timeout = d
}

// SetResolveOptions replaces the options used by Heal.
//
// Defaults to healing.DefaultOptions(): three passes, two seconds per
// attempt and half a second between passes.
func (b *Browser) SetResolveOptions(opts healing.Options) {
	b.opts = opts
}

// SetReporter makes every Heal call report its outcome to r.
// Pass nil to stop reporting.
func (b *Browser) SetReporter(r Reporter) {
	b.reporter = r
}

// Page exposes the underlying rod page for assertions Heal does not cover.
func (b *Browser) Page() *rod.Page {
	return b.page
}

// Navigate loads the specified URL in the browser.
//
// Waits for the page to finish loading before returning.
//
//	err := browser.Navigate(site.Page("/login"))
func (b *Browser) Navigate(url string) error {
	if err := b.page.Timeout(b.timeout).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := b.page.Timeout(b.timeout).WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

// Heal resolves the logical element locator through strategies.
//
// The full Result is returned so tests can inspect the winning strategy and
// the attempt trace. A Result with Found == false is not an error. When a
// reporter is set, the outcome is reported even if ctx was cancelled; a
// reporting failure is returned only when resolution itself succeeded.
//
//	res, err := browser.Heal(ctx, "submit", healing.ButtonStrategies("Submit"))
//	if err != nil {
//	    t.Fatal(err)
//	}
//	if err := res.Err(); err != nil {
//	    t.Fatal(err)
//	}
//	if err := res.Element.Click(); err != nil {
//	    t.Fatal(err)
//	}
func (b *Browser) Heal(ctx context.Context, locator string, strategies []healing.Strategy) (healing.Result[*rodpage.Locator], error) {
	resolver := healing.NewResolver[*rodpage.Locator](rodpage.New(b.page), b.opts)

	res, err := resolver.Resolve(ctx, strategies)
	if b.reporter != nil && len(res.Trace) > 0 {
		reportCtx := context.WithoutCancel(ctx)
		if reportErr := b.reporter.Report(reportCtx, locator, res.Summary()); reportErr != nil && err == nil {
			return res, fmt.Errorf("failed to report %s: %w", locator, reportErr)
		}
	}
	return res, err
}

// FindButton resolves a button by its visible label.
//
// Returns an error wrapping healing.ErrNotFound when no strategy matches.
func (b *Browser) FindButton(ctx context.Context, label string) (*rodpage.Locator, error) {
	return b.find(ctx, label, healing.ButtonStrategies(label))
}

// FindInput resolves a text input by its placeholder.
func (b *Browser) FindInput(ctx context.Context, placeholder string) (*rodpage.Locator, error) {
	return b.find(ctx, placeholder, healing.InputStrategies(placeholder))
}

// FindLink resolves an anchor by its text, falling back to an href fragment.
func (b *Browser) FindLink(ctx context.Context, text, hrefFragment string) (*rodpage.Locator, error) {
	return b.find(ctx, text, healing.LinkStrategies(text, hrefFragment))
}

func (b *Browser) find(ctx context.Context, locator string, strategies []healing.Strategy) (*rodpage.Locator, error) {
	res, err := b.Heal(ctx, locator, strategies)
	if err != nil {
		return nil, err
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", locator, err)
	}
	return res.Element, nil
}

// Close releases browser resources.
//
// Always call Close() when done with the browser, typically using defer:
//
//	browser, err := NewBrowser()
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer browser.Close()
func (b *Browser) Close() error {
	if b.page != nil {
		_ = b.page.Close()
	}
	if b.browser != nil {
		return b.browser.Close()
	}
	return nil
}
