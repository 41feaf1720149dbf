package locate

import (
	"fmt"
	"strings"
)

// Group is a family of heuristics. A Generator emits groups in the order it
// is configured with, and rules within a group in their declared order.
type Group string

// Heuristic groups, in default order.
const (
	GroupInput    Group = "input"
	GroupButton   Group = "button"
	GroupLink     Group = "link"
	GroupText     Group = "text"
	GroupSelect   Group = "select"
	GroupChoice   Group = "choice"
	GroupAria     Group = "aria"
	GroupShortcut Group = "shortcut"
	GroupFold     Group = "fold"
)

// DefaultGroups returns the default group order. Site-specific shortcuts
// come after every generic group except the case-insensitive fallback.
func DefaultGroups() []Group {
	return []Group{
		GroupInput,
		GroupButton,
		GroupLink,
		GroupText,
		GroupSelect,
		GroupChoice,
		GroupAria,
		GroupShortcut,
		GroupFold,
	}
}

// ParseGroup validates a group name read from configuration.
func ParseGroup(s string) (Group, error) {
	g := Group(strings.ToLower(strings.TrimSpace(s)))
	if g == GroupShortcut {
		return g, nil
	}
	if _, ok := genericRules[g]; ok {
		return g, nil
	}
	return "", fmt.Errorf("unknown heuristic group %q", s)
}

const (
	upperAlpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlpha = "abcdefghijklmnopqrstuvwxyz"
)

// fieldForms holds the literal forms of a field name used by the rules.
type fieldForms struct {
	lit   string // as typed
	lower string // lower-cased
	slug  string // lower-cased, spaces replaced by hyphens
}

func newFieldForms(name string) fieldForms {
	lower := strings.ToLower(name)
	return fieldForms{
		lit:   xpathLiteral(name),
		lower: xpathLiteral(lower),
		slug:  xpathLiteral(strings.ReplaceAll(lower, " ", "-")),
	}
}

type rule struct {
	name string
	expr func(f fieldForms) string
}

func exact(name, format string) rule {
	return rule{name, func(f fieldForms) string { return fmt.Sprintf(format, f.lit) }}
}

var genericRules = map[Group][]rule{
	GroupInput: {
		exact("input.placeholder.exact", "//input[@placeholder=%s]"),
		exact("input.name.exact", "//input[@name=%s]"),
		exact("input.id.exact", "//input[@id=%s]"),
		exact("input.placeholder.contains", "//input[contains(@placeholder,%s)]"),
		exact("input.name.contains", "//input[contains(@name,%s)]"),
		exact("input.id.contains", "//input[contains(@id,%s)]"),
		exact("input.label.exact", "//label[text()=%s]/following::input[1]"),
		exact("input.label.contains", "//label[contains(text(),%s)]/following::input[1]"),
	},
	GroupButton: {
		exact("button.text.exact", "//button[text()=%s]"),
		exact("button.text.contains", "//button[contains(text(),%s)]"),
		exact("button.name", "//button[@name=%s]"),
		exact("button.id", "//button[@id=%s]"),
		exact("button.value", "//button[@value=%s]"),
		exact("button.input-button", "//input[@type='button' and @value=%s]"),
		exact("button.input-submit", "//input[@type='submit' and @value=%s]"),
	},
	GroupLink: {
		exact("link.text.exact", "//a[text()=%s]"),
		exact("link.text.contains", "//a[contains(text(),%s)]"),
		exact("link.aria.exact", "//a[@aria-label=%s]"),
		exact("link.aria.contains", "//a[contains(@aria-label,%s)]"),
	},
	GroupText: {
		exact("text.span.exact", "//span[text()=%s]"),
		exact("text.span.contains", "//span[contains(text(),%s)]"),
		exact("text.div.exact", "//div[text()=%s]"),
		exact("text.div.contains", "//div[contains(text(),%s)]"),
	},
	GroupSelect: {
		exact("select.name", "//select[@name=%s]"),
		exact("select.id", "//select[@id=%s]"),
		exact("select.label", "//label[contains(text(),%s)]/following::select[1]"),
	},
	GroupChoice: {
		exact("choice.checkbox.name", "//input[@type='checkbox' and @name=%s]"),
		exact("choice.radio.name", "//input[@type='radio' and @name=%s]"),
		exact("choice.checkbox.label-before", "//label[contains(text(),%s)]/preceding::input[@type='checkbox'][1]"),
		exact("choice.radio.label-before", "//label[contains(text(),%s)]/preceding::input[@type='radio'][1]"),
		exact("choice.checkbox.label-after", "//label[contains(text(),%s)]/following::input[@type='checkbox'][1]"),
		exact("choice.radio.label-after", "//label[contains(text(),%s)]/following::input[@type='radio'][1]"),
	},
	GroupAria: {
		exact("aria.input.exact", "//input[@aria-label=%s]"),
		exact("aria.input.contains", "//input[contains(@aria-label,%s)]"),
		{"aria.span.id-slug", func(f fieldForms) string {
			return fmt.Sprintf("//span[contains(@id,%s)]", f.slug)
		}},
	},
	GroupFold: {
		{"fold.span.exact", func(f fieldForms) string {
			return fmt.Sprintf("//span[translate(text(),'%s','%s')=%s]", upperAlpha, lowerAlpha, f.lower)
		}},
		{"fold.span.contains", func(f fieldForms) string {
			return fmt.Sprintf("//span[contains(translate(text(),'%s','%s'),%s)]", upperAlpha, lowerAlpha, f.lower)
		}},
	},
}
