package rodpage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		expr    string
		kind    queryKind
		query   string
		pattern string
	}{
		{expr: "#login", kind: kindCSS, query: "#login"},
		{expr: "css=input[name='q']", kind: kindCSS, query: "input[name='q']"},
		{expr: "xpath=//button[1]", kind: kindXPath, query: "//button[1]"},
		{expr: "text=Submit", kind: kindXPath, query: `//*[normalize-space(text())="Submit"]`},
		{expr: "button >> text=Sign In", kind: kindCSSText, query: "button", pattern: "Sign In"},
		{expr: "css=a.nav >> text=1+1", kind: kindCSSText, query: "a.nav", pattern: `1\+1`},
		{expr: "  [data-testid=x]  ", kind: kindCSS, query: "[data-testid=x]"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			loc, err := parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, loc.Expression)
			assert.Equal(t, tt.kind, loc.kind)
			assert.Equal(t, tt.query, loc.query)
			assert.Equal(t, tt.pattern, loc.pattern)
			assert.Nil(t, loc.Element())
		})
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	for _, expr := range []string{"", "   ", "css=", "xpath=", "css= >> text=x"} {
		_, err := parse(expr)
		assert.ErrorIs(t, err, ErrEmptyExpression, "expr %q", expr)
	}
}

func TestLocateDoesNotTouchPage(t *testing.T) {
	loc, err := New(nil).Locate("text=Submit")
	require.NoError(t, err)
	assert.Equal(t, "text=Submit", loc.Expression)
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, `"plain"`, xpathLiteral("plain"))
	assert.Equal(t, `'say "hi"'`, xpathLiteral(`say "hi"`))
	assert.Equal(t, `"it's"`, xpathLiteral("it's"))
	assert.Equal(t, `concat("it's ", '"', "quoted", '"')`, xpathLiteral(`it's "quoted"`))
}

func TestUnresolvedLocatorActions(t *testing.T) {
	loc, err := parse("#submit")
	require.NoError(t, err)

	assert.ErrorIs(t, loc.Click(), ErrUnresolved)
	assert.ErrorIs(t, loc.Fill("x"), ErrUnresolved)
	_, err = loc.Text()
	assert.ErrorIs(t, err, ErrUnresolved)
}
