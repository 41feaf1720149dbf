package locate

import (
	"fmt"
	"strings"
)

// Kind is the query language of a Locator.
type Kind string

// Locator kinds.
const (
	KindID    Kind = "id"
	KindName  Kind = "name"
	KindCSS   Kind = "css"
	KindXPath Kind = "xpath"
)

// ParseKind validates a locator kind read from configuration.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindID, KindName, KindCSS, KindXPath:
		return k, nil
	}
	return "", fmt.Errorf("unknown locator kind %q", s)
}

// Origin tells whether a candidate came from a generic heuristic or from the
// site-specific shortcut table.
type Origin string

// Candidate origins.
const (
	OriginGeneric      Origin = "generic"
	OriginSiteSpecific Origin = "site-specific"
)

// Locator is a single selector expression.
type Locator struct {
	Kind Kind   `json:"kind" mapstructure:"kind" yaml:"kind"`
	Expr string `json:"expr" mapstructure:"expr" yaml:"expr"`
}

func (l Locator) String() string {
	return string(l.Kind) + ": " + l.Expr
}

// XPath returns the locator as an XPath 1.0 expression. CSS locators have
// no XPath form.
func (l Locator) XPath() (string, bool) {
	switch l.Kind {
	case KindXPath:
		return l.Expr, true
	case KindID:
		return "//*[@id=" + xpathLiteral(l.Expr) + "]", true
	case KindName:
		return "//*[@name=" + xpathLiteral(l.Expr) + "]", true
	}
	return "", false
}

// CSS returns the locator as a CSS selector. XPath locators have no CSS
// form.
func (l Locator) CSS() (string, bool) {
	switch l.Kind {
	case KindCSS:
		return l.Expr, true
	case KindID:
		return "[id=" + cssString(l.Expr) + "]", true
	case KindName:
		return "[name=" + cssString(l.Expr) + "]", true
	}
	return "", false
}

// Candidate is one guess at where a named element lives. Rank is its
// 1-based position in the generated list; lower ranks are tried first.
type Candidate struct {
	Locator
	Rank   int
	Origin Origin
	Group  Group
	// Rule names the heuristic that produced the candidate, e.g.
	// "input.placeholder.exact" or "shortcut.cart".
	Rule string
}

func (c Candidate) String() string {
	return fmt.Sprintf("#%d %s", c.Rank, c.Locator)
}
