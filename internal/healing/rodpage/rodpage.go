// Package rodpage implements healing.Page on top of a go-rod page.
//
// Expressions:
//
//	css=<selector> or a bare selector   CSS query
//	xpath=<expression>                  XPath query
//	text=<text>                         element whose own text equals <text>
//	<selector> >> text=<text>           CSS match whose text contains <text>
package rodpage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/gti/selfheal-e2e/internal/healing"
)

var (
	// ErrEmptyExpression is returned by Locate for a blank expression.
	ErrEmptyExpression = errors.New("empty locator expression")

	// ErrNotVisible is returned by WaitVisible when a zero-timeout check
	// finds nothing visible.
	ErrNotVisible = errors.New("element not visible")

	// ErrUnresolved is returned by Locator actions used before a
	// successful WaitVisible.
	ErrUnresolved = errors.New("locator has not been resolved")
)

type queryKind int

const (
	kindCSS queryKind = iota
	kindXPath
	kindCSSText
)

// Page adapts a *rod.Page to healing.Page[*Locator].
type Page struct {
	page *rod.Page
}

var _ healing.Page[*Locator] = (*Page)(nil)

// New wraps page.
func New(page *rod.Page) *Page {
	return &Page{page: page}
}

// Locator is a lazily evaluated query. It is bound to an element once
// WaitVisible succeeds.
type Locator struct {
	// Expression is the original expression.
	Expression string

	kind    queryKind
	query   string
	pattern string

	el *rod.Element
}

// Locate parses expression into a Locator without touching the page.
func (p *Page) Locate(expression string) (*Locator, error) {
	return parse(expression)
}

// WaitVisible waits up to timeout for loc to match a visible element.
//
// A zero timeout checks once without waiting.
func (p *Page) WaitVisible(ctx context.Context, loc *Locator, timeout time.Duration) error {
	if timeout <= 0 {
		return p.checkNow(ctx, loc)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	page := p.page.Context(attemptCtx)

	el, err := loc.find(page)
	if err != nil {
		return fmt.Errorf("find %s: %w", loc.Expression, err)
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("wait visible %s: %w", loc.Expression, err)
	}

	loc.el = el.Context(p.page.GetContext())
	return nil
}

func (p *Page) checkNow(ctx context.Context, loc *Locator) error {
	page := p.page.Context(ctx)

	var (
		has bool
		el  *rod.Element
		err error
	)
	switch loc.kind {
	case kindXPath:
		has, el, err = page.HasX(loc.query)
	case kindCSSText:
		has, el, err = page.HasR(loc.query, loc.pattern)
	default:
		has, el, err = page.Has(loc.query)
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", loc.Expression, err)
	}
	if !has {
		return fmt.Errorf("%s: %w", loc.Expression, ErrNotVisible)
	}

	visible, err := el.Visible()
	if err != nil {
		return fmt.Errorf("check visibility %s: %w", loc.Expression, err)
	}
	if !visible {
		return fmt.Errorf("%s: %w", loc.Expression, ErrNotVisible)
	}

	loc.el = el.Context(p.page.GetContext())
	return nil
}

func (l *Locator) find(page *rod.Page) (*rod.Element, error) {
	switch l.kind {
	case kindXPath:
		return page.ElementX(l.query)
	case kindCSSText:
		return page.ElementR(l.query, l.pattern)
	default:
		return page.Element(l.query)
	}
}

// Element returns the resolved element, or nil before resolution.
func (l *Locator) Element() *rod.Element {
	return l.el
}

// Click left-clicks the resolved element.
func (l *Locator) Click() error {
	if l.el == nil {
		return ErrUnresolved
	}
	if err := l.el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click %s: %w", l.Expression, err)
	}
	return nil
}

// Fill replaces the resolved input's value.
func (l *Locator) Fill(value string) error {
	if l.el == nil {
		return ErrUnresolved
	}
	if err := l.el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to select text in %s: %w", l.Expression, err)
	}
	if err := l.el.Input(value); err != nil {
		return fmt.Errorf("failed to input text into %s: %w", l.Expression, err)
	}
	return nil
}

// Text returns the resolved element's text.
func (l *Locator) Text() (string, error) {
	if l.el == nil {
		return "", ErrUnresolved
	}
	text, err := l.el.Text()
	if err != nil {
		return "", fmt.Errorf("failed to get text from %s: %w", l.Expression, err)
	}
	return text, nil
}

const textSeparator = " >> text="

func parse(expression string) (*Locator, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return nil, ErrEmptyExpression
	}

	loc := &Locator{Expression: expression}
	switch {
	case strings.HasPrefix(expr, "xpath="):
		loc.kind = kindXPath
		loc.query = strings.TrimPrefix(expr, "xpath=")
	case strings.HasPrefix(expr, "text="):
		loc.kind = kindXPath
		loc.query = "//*[normalize-space(text())=" + xpathLiteral(strings.TrimPrefix(expr, "text=")) + "]"
	case strings.Contains(expr, textSeparator):
		css, text, _ := strings.Cut(expr, textSeparator)
		loc.kind = kindCSSText
		loc.query = strings.TrimPrefix(strings.TrimSpace(css), "css=")
		loc.pattern = regexp.QuoteMeta(text)
	default:
		loc.kind = kindCSS
		loc.query = strings.TrimPrefix(expr, "css=")
	}

	if strings.TrimSpace(loc.query) == "" {
		return nil, fmt.Errorf("%q: %w", expression, ErrEmptyExpression)
	}
	return loc, nil
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a string holding both quote kinds is built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}

	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts)-1)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if part != "" {
			quoted = append(quoted, `"`+part+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
