package healing

import (
	"strings"
)

// Preset strategy lists, ordered from the most to the least specific.
// Expressions use the selector language understood by the rodpage package:
// plain CSS, "text=<exact text>", and "<css> >> text=<substring>".

// ButtonStrategies locates a button by its visible label.
func ButtonStrategies(label string) []Strategy {
	return []Strategy{
		{Name: "role-button", Expression: "button >> text=" + label},
		{Name: "data-testid", Expression: attrContains("", "data-testid", strings.ToLower(label))},
		{Name: "aria-label", Expression: attrContains("", "aria-label", label)},
		{Name: "text-exact", Expression: "text=" + label},
	}
}

// InputStrategies locates a text input by its placeholder.
func InputStrategies(placeholder string) []Strategy {
	return []Strategy{
		{Name: "placeholder", Expression: attrContains("input", "placeholder", placeholder)},
		{Name: "aria-label", Expression: attrContains("input", "aria-label", placeholder)},
		{Name: "data-testid", Expression: attrContains("input", "data-testid", strings.ToLower(placeholder))},
		{Name: "name-attr", Expression: attrContains("input", "name", strings.ToLower(placeholder))},
	}
}

// LinkStrategies locates an anchor by its text, falling back to a fragment
// of its href. An empty hrefFragment drops the fallback.
func LinkStrategies(text, hrefFragment string) []Strategy {
	strategies := []Strategy{
		{Name: "link-text", Expression: "a >> text=" + text},
	}
	if hrefFragment != "" {
		strategies = append(strategies, Strategy{Name: "href-contains", Expression: attrContains("a", "href", hrefFragment)})
	}
	return strategies
}

// attrContains builds `tag[attr*="value"]` with value escaped for a CSS
// double-quoted string.
func attrContains(tag, attr, value string) string {
	var b strings.Builder
	b.WriteString(tag)
	b.WriteByte('[')
	b.WriteString(attr)
	b.WriteString(`*="`)
	b.WriteString(cssEscaper.Replace(value))
	b.WriteString(`"]`)
	return b.String()
}

var cssEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
