package locate

import "strings"

// Generator turns a field name into an ordered candidate list.
//
// A zero Groups or Shortcuts field means the built-in default. To drop the
// site-specific table, leave GroupShortcut out of Groups.
type Generator struct {
	Groups    []Group
	Shortcuts []Shortcut
}

// NewGenerator returns a Generator with the default group order and the
// built-in shortcut table.
func NewGenerator() *Generator {
	return &Generator{Groups: DefaultGroups(), Shortcuts: DefaultShortcuts()}
}

var defaultGenerator = NewGenerator()

// Generate expands field with the default Generator.
func Generate(field string) []Candidate {
	return defaultGenerator.Generate(field)
}

// Generate returns the candidate list for field. The list is never empty and
// depends only on field and the generator's configuration.
func (g *Generator) Generate(field string) []Candidate {
	name := strings.TrimSpace(field)

	var out []Candidate
	if name != "" {
		forms := newFieldForms(name)
		for _, grp := range g.groups() {
			if grp == GroupShortcut {
				out = g.appendShortcuts(out, name)
				continue
			}
			for _, r := range genericRules[grp] {
				out = append(out, Candidate{
					Locator: Locator{Kind: KindXPath, Expr: r.expr(forms)},
					Origin:  OriginGeneric,
					Group:   grp,
					Rule:    r.name,
				})
			}
		}
	}
	if len(out) == 0 {
		out = append(out, catchAll(name))
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func (g *Generator) groups() []Group {
	if g == nil || len(g.Groups) == 0 {
		return DefaultGroups()
	}
	return g.Groups
}

func (g *Generator) shortcuts() []Shortcut {
	if g == nil || len(g.Shortcuts) == 0 {
		return DefaultShortcuts()
	}
	return g.Shortcuts
}

func (g *Generator) appendShortcuts(out []Candidate, name string) []Candidate {
	for _, s := range g.shortcuts() {
		if !s.Matches(name) {
			continue
		}
		for _, l := range s.Locators {
			out = append(out, Candidate{
				Locator: l,
				Origin:  OriginSiteSpecific,
				Group:   GroupShortcut,
				Rule:    "shortcut." + s.Name,
			})
		}
	}
	return out
}

// catchAll is the synthetic candidate returned when no rule applies, so a
// caller always has something to try and to report.
func catchAll(name string) Candidate {
	return Candidate{
		Locator: Locator{Kind: KindXPath, Expr: "//*[normalize-space(.)=" + xpathLiteral(name) + "]"},
		Origin:  OriginGeneric,
		Rule:    "fallback.catch-all",
	}
}
