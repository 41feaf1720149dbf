package webdriver

import (
	"context"
	"strings"
	"testing"
)

const dropdownPage = `<html><body>
<input id="plain" name="plain">
<label>Country</label>
<select id="country" name="country">
  <option value="ca">Canada</option>
  <option value="fr">  France </option>
  <option value="jp">Japan</option>
</select>
<select id="tags" multiple>
  <option value="a" selected>A</option>
  <option value="b">B</option>
</select>
</body></html>`

func selectedValues(t *testing.T, s *SelectElement) []string {
	t.Helper()
	opts, err := s.Selected()
	if err != nil {
		t.Fatalf("Selected() returned error: %v", err)
	}
	var out []string
	for _, o := range opts {
		v, err := o.GetAttribute("value")
		if err != nil {
			t.Fatalf("GetAttribute(value) returned error: %v", err)
		}
		out = append(out, v)
	}
	return out
}

func TestSelectElement(t *testing.T) {
	forEachDialect(t, func(t *testing.T, d dialect) {
		wd, _, _ := newRemote(t, dropdownPage, d.opts...)
		el, err := wd.FindElement(ByCSSSelector, "#country")
		if err != nil {
			t.Fatalf("FindElement(#country) returned error: %v", err)
		}
		s, err := Select(el)
		if err != nil {
			t.Fatalf("Select(#country) returned error: %v", err)
		}
		if s.IsMultiple() {
			t.Error("IsMultiple() = true for a single select")
		}
		opts, err := s.Options()
		if err != nil {
			t.Fatalf("Options() returned error: %v", err)
		}
		if len(opts) != 3 {
			t.Errorf("Options() returned %d options, want 3", len(opts))
		}

		if err := s.SelectByVisibleText("France"); err != nil {
			t.Fatalf("SelectByVisibleText(France) returned error: %v", err)
		}
		if got := selectedValues(t, s); len(got) != 1 || got[0] != "fr" {
			t.Errorf("selected values = %v, want [fr]", got)
		}
		if err := s.SelectByValue("jp"); err != nil {
			t.Fatalf("SelectByValue(jp) returned error: %v", err)
		}
		if err := s.SelectByIndex(0); err != nil {
			t.Fatalf("SelectByIndex(0) returned error: %v", err)
		}

		if err := s.SelectByVisibleText("Narnia"); err == nil {
			t.Error("SelectByVisibleText(Narnia) returned nil error")
		}
		if err := s.SelectByValue("xx"); err == nil {
			t.Error("SelectByValue(xx) returned nil error")
		}
		if err := s.SelectByIndex(3); err == nil {
			t.Error("SelectByIndex(3) returned nil error")
		}
		if err := s.DeselectAll(); err == nil {
			t.Error("DeselectAll() on a single select returned nil error")
		}
	})
}

func TestSelectMultiple(t *testing.T) {
	wd, _, _ := newRemote(t, dropdownPage)
	el, err := wd.FindElement(ByCSSSelector, "#tags")
	if err != nil {
		t.Fatalf("FindElement(#tags) returned error: %v", err)
	}
	s, err := Select(el)
	if err != nil {
		t.Fatalf("Select(#tags) returned error: %v", err)
	}
	if !s.IsMultiple() {
		t.Error("IsMultiple() = false for a multiple select")
	}
	if err := s.SelectByValue("b"); err != nil {
		t.Fatalf("SelectByValue(b) returned error: %v", err)
	}
	if got := strings.Join(selectedValues(t, s), ","); got != "a,b" {
		t.Errorf("selected values = %s, want a,b", got)
	}
}

func TestSelectRejectsOtherElements(t *testing.T) {
	wd, _, _ := newRemote(t, dropdownPage)
	el, err := wd.FindElement(ByCSSSelector, "#plain")
	if err != nil {
		t.Fatalf("FindElement(#plain) returned error: %v", err)
	}
	if _, err := Select(el); err == nil || !strings.Contains(err.Error(), `"input"`) {
		t.Errorf("Select(input) returned %v, want a tag error", err)
	}
}

func TestFinderSelect(t *testing.T) {
	wd, srv, _ := newRemote(t, dropdownPage)
	f := newFinder(t, wd)
	if err := f.Select(context.Background(), "Country", "Japan"); err != nil {
		t.Fatalf("Select(Country, Japan) returned error: %v", err)
	}
	if got, want := srv.Clicks(), []string{`//*[@id='country']/option[3]`}; strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("Clicks() = %v, want %v", got, want)
	}
}
