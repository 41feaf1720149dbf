package locate

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// genericCount is the number of candidates every non-blank field gets from
// the generic groups.
const genericCount = 37

func TestGenerateDeterministic(t *testing.T) {
	for _, f := range []string{"Email", "Add to Cart", "O'Brien", "search"} {
		if diff := cmp.Diff(Generate(f), Generate(f)); diff != "" {
			t.Errorf("Generate(%q) is not reproducible (-first/+second):\n%s", f, diff)
		}
	}
}

func TestGenerateRanks(t *testing.T) {
	for _, f := range []string{"Email", "cart", "", "   "} {
		cands := Generate(f)
		if len(cands) == 0 {
			t.Fatalf("Generate(%q) returned no candidates", f)
		}
		for i, c := range cands {
			if c.Rank != i+1 {
				t.Errorf("Generate(%q)[%d].Rank = %d, want %d", f, i, c.Rank, i+1)
			}
		}
	}
}

func TestGenerateGenericOrder(t *testing.T) {
	cands := Generate("Email")
	if len(cands) != genericCount {
		t.Fatalf("len(Generate(Email)) = %d, want %d", len(cands), genericCount)
	}
	var got []string
	for _, c := range cands[:9] {
		got = append(got, c.Expr)
	}
	want := []string{
		"//input[@placeholder='Email']",
		"//input[@name='Email']",
		"//input[@id='Email']",
		"//input[contains(@placeholder,'Email')]",
		"//input[contains(@name,'Email')]",
		"//input[contains(@id,'Email')]",
		"//label[text()='Email']/following::input[1]",
		"//label[contains(text(),'Email')]/following::input[1]",
		"//button[text()='Email']",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Generate(Email) leading expressions returned diff (-want/+got):\n%s", diff)
	}

	var groups []Group
	for _, c := range cands {
		if c.Origin != OriginGeneric {
			t.Errorf("%s has origin %q, want generic", c, c.Origin)
		}
		if n := len(groups); n == 0 || groups[n-1] != c.Group {
			groups = append(groups, c.Group)
		}
	}
	wantGroups := []Group{GroupInput, GroupButton, GroupLink, GroupText, GroupSelect, GroupChoice, GroupAria, GroupFold}
	if diff := cmp.Diff(wantGroups, groups); diff != "" {
		t.Errorf("Generate(Email) group order returned diff (-want/+got):\n%s", diff)
	}
}

func TestGenerateFoldAndSlug(t *testing.T) {
	cands := Generate("Add to Cart")
	byRule := make(map[string]string)
	for _, c := range cands {
		byRule[c.Rule] = c.Expr
	}
	tests := map[string]string{
		"aria.span.id-slug":  "//span[contains(@id,'add-to-cart')]",
		"fold.span.exact":    "//span[translate(text(),'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz')='add to cart']",
		"fold.span.contains": "//span[contains(translate(text(),'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz'),'add to cart')]",
	}
	for rule, want := range tests {
		if got := byRule[rule]; got != want {
			t.Errorf("rule %s = %q, want %q", rule, got, want)
		}
	}
	last := cands[len(cands)-1]
	if last.Group != GroupFold {
		t.Errorf("last candidate group = %q, want %q", last.Group, GroupFold)
	}
}

func siteSpecific(cands []Candidate) []Locator {
	var out []Locator
	for _, c := range cands {
		if c.Origin == OriginSiteSpecific {
			out = append(out, c.Locator)
		}
	}
	return out
}

func TestGenerateShortcuts(t *testing.T) {
	tests := []struct {
		field string
		want  []Locator
	}{
		{
			field: "Add to Cart",
			want: []Locator{
				{KindID, "add-to-cart-button"},
				{KindXPath, "//input[@id='add-to-cart-button']"},
				{KindXPath, "//span[contains(text(),'Add to Cart')]"},
			},
		},
		{
			field: "please add to cart now",
			want: []Locator{
				{KindID, "add-to-cart-button"},
				{KindXPath, "//input[@id='add-to-cart-button']"},
				{KindXPath, "//span[contains(text(),'Add to Cart')]"},
			},
		},
		{
			field: "SEARCH",
			want: []Locator{
				{KindID, "twotabsearchtextbox"},
				{KindXPath, "//input[@type='text' and @id='twotabsearchtextbox']"},
				{KindID, "nav-search-submit-button"},
				{KindXPath, "//input[@type='submit' and @value='Go']"},
			},
		},
		{
			field: "Search Amazon",
			want: []Locator{
				{KindID, "twotabsearchtextbox"},
				{KindXPath, "//input[@type='text' and @id='twotabsearchtextbox']"},
			},
		},
		{
			field: "Cart",
			want: []Locator{
				{KindID, "nav-cart"},
				{KindXPath, "//a[@id='nav-cart']"},
				{KindXPath, "//span[@id='nav-cart-count']"},
			},
		},
		{field: "Email"},
	}
	for _, tc := range tests {
		cands := Generate(tc.field)
		if diff := cmp.Diff(tc.want, siteSpecific(cands)); diff != "" {
			t.Errorf("Generate(%q) site-specific locators returned diff (-want/+got):\n%s", tc.field, diff)
		}
		if got, want := len(cands), genericCount+len(tc.want); got != want {
			t.Errorf("len(Generate(%q)) = %d, want %d", tc.field, got, want)
		}
	}
}

func TestGenerateShortcutsAfterGeneric(t *testing.T) {
	cands := Generate("cart")
	seen := false
	for _, c := range cands {
		switch {
		case c.Origin == OriginSiteSpecific:
			seen = true
			if !strings.HasPrefix(c.Rule, "shortcut.") {
				t.Errorf("%s rule = %q, want shortcut.*", c, c.Rule)
			}
		case seen && c.Group != GroupFold:
			t.Errorf("%s from group %q follows a site-specific candidate", c, c.Group)
		}
	}
}

func TestGenerateQuoting(t *testing.T) {
	tests := []struct {
		field, want string
	}{
		{"O'Brien", `//input[@placeholder="O'Brien"]`},
		{`Say "hi"`, `//input[@placeholder='Say "hi"']`},
		{`it's "x"`, `//input[@placeholder=concat('it', "'", 's "x"')]`},
	}
	for _, tc := range tests {
		if got := Generate(tc.field)[0].Expr; got != tc.want {
			t.Errorf("Generate(%q)[0] = %q, want %q", tc.field, got, tc.want)
		}
	}
}

func TestGenerateBlank(t *testing.T) {
	for _, f := range []string{"", " \t\n"} {
		want := []Candidate{{
			Locator: Locator{KindXPath, "//*[normalize-space(.)='']"},
			Rank:    1,
			Origin:  OriginGeneric,
			Rule:    "fallback.catch-all",
		}}
		if diff := cmp.Diff(want, Generate(f)); diff != "" {
			t.Errorf("Generate(%q) returned diff (-want/+got):\n%s", f, diff)
		}
	}
}

func TestGeneratorCustomGroups(t *testing.T) {
	g := &Generator{Groups: []Group{GroupShortcut}}
	got := g.Generate("Email")
	if len(got) != 1 || got[0].Rule != "fallback.catch-all" || got[0].Expr != "//*[normalize-space(.)='Email']" {
		t.Errorf("shortcut-only Generate(Email) = %v, want the catch-all", got)
	}

	g = &Generator{Groups: []Group{GroupShortcut, GroupInput}}
	got = g.Generate("cart")
	if len(got) != 3+8 {
		t.Fatalf("len(Generate(cart)) = %d, want %d", len(got), 11)
	}
	if got[0].Origin != OriginSiteSpecific || got[3].Group != GroupInput {
		t.Errorf("Generate(cart) = %v, want shortcuts first", got)
	}

	g = &Generator{
		Groups: []Group{GroupShortcut},
		Shortcuts: []Shortcut{{
			Name:     "login",
			Equals:   []string{"sign in"},
			Locators: []Locator{{KindCSS, "#login"}},
		}},
	}
	want := []Candidate{{
		Locator: Locator{KindCSS, "#login"},
		Rank:    1,
		Origin:  OriginSiteSpecific,
		Group:   GroupShortcut,
		Rule:    "shortcut.login",
	}}
	if diff := cmp.Diff(want, g.Generate("Sign In")); diff != "" {
		t.Errorf("custom shortcut Generate returned diff (-want/+got):\n%s", diff)
	}
}

func TestGeneratorZeroValue(t *testing.T) {
	var g Generator
	if diff := cmp.Diff(Generate("cart"), g.Generate("cart")); diff != "" {
		t.Errorf("zero Generator differs from default (-want/+got):\n%s", diff)
	}
}

func TestParseGroup(t *testing.T) {
	for _, g := range DefaultGroups() {
		got, err := ParseGroup(" " + strings.ToUpper(string(g)) + " ")
		if err != nil || got != g {
			t.Errorf("ParseGroup(%q) = %q, %v; want %q, nil", g, got, err, g)
		}
	}
	if _, err := ParseGroup("bogus"); err == nil {
		t.Error("ParseGroup(bogus) returned nil error")
	}
}

func TestShortcutValidate(t *testing.T) {
	for _, s := range DefaultShortcuts() {
		if err := s.Validate(); err != nil {
			t.Errorf("default shortcut %q: %v", s.Name, err)
		}
	}
	bad := []Shortcut{
		{Equals: []string{"x"}, Locators: []Locator{{KindID, "x"}}},
		{Name: "nokeys", Locators: []Locator{{KindID, "x"}}},
		{Name: "nolocs", Equals: []string{"x"}},
		{Name: "badkind", Equals: []string{"x"}, Locators: []Locator{{"regex", "x"}}},
		{Name: "blank", Equals: []string{"x"}, Locators: []Locator{{KindCSS, " "}}},
	}
	for _, s := range bad {
		if err := s.Validate(); err == nil {
			t.Errorf("Validate(%+v) returned nil error", s)
		}
	}
}

func TestShortcutNormalize(t *testing.T) {
	locs := []Locator{{"XPath", "//button[@id='go']"}, {" ID ", "go"}}
	s := Shortcut{Name: "go", Equals: []string{"go"}, Locators: locs}
	if err := s.Normalize(); err != nil {
		t.Fatalf("Normalize() returned error: %v", err)
	}
	want := []Locator{{KindXPath, "//button[@id='go']"}, {KindID, "go"}}
	if diff := cmp.Diff(want, s.Locators); diff != "" {
		t.Errorf("Normalize() locators mismatch (-want +got):\n%s", diff)
	}
	if locs[0].Kind != "XPath" {
		t.Errorf("Normalize() rewrote the caller's slice: %v", locs)
	}

	bad := Shortcut{Name: "bad", Equals: []string{"x"}, Locators: []Locator{{"Regex", "x"}}}
	if err := bad.Normalize(); err == nil {
		t.Error("Normalize() with kind Regex returned nil error")
	}
}

func TestDefaultShortcutsIsACopy(t *testing.T) {
	s := DefaultShortcuts()
	s[0].Locators[0].Expr = "changed"
	if got := DefaultShortcuts()[0].Locators[0].Expr; got != "twotabsearchtextbox" {
		t.Errorf("DefaultShortcuts() shares state: got %q", got)
	}
}
