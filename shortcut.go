package locate

import (
	"errors"
	"fmt"
	"strings"
)

// Shortcut maps well-known field names to literal locators for a specific
// site. A shortcut applies when the field name equals one of Equals or
// contains one of Contains; both comparisons ignore case.
type Shortcut struct {
	Name     string    `json:"name" mapstructure:"name" yaml:"name"`
	Equals   []string  `json:"equals" mapstructure:"equals" yaml:"equals"`
	Contains []string  `json:"contains" mapstructure:"contains" yaml:"contains"`
	Locators []Locator `json:"locators" mapstructure:"locators" yaml:"locators"`
}

// Matches reports whether the shortcut applies to field.
func (s Shortcut) Matches(field string) bool {
	for _, k := range s.Equals {
		if strings.EqualFold(field, k) {
			return true
		}
	}
	lower := strings.ToLower(field)
	for _, k := range s.Contains {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Validate checks that the shortcut has at least one key and one well
// formed locator.
func (s Shortcut) Validate() error {
	if s.Name == "" {
		return errors.New("shortcut name is empty")
	}
	if len(s.Equals) == 0 && len(s.Contains) == 0 {
		return fmt.Errorf("shortcut %q has no equals or contains keys", s.Name)
	}
	if len(s.Locators) == 0 {
		return fmt.Errorf("shortcut %q has no locators", s.Name)
	}
	for i, l := range s.Locators {
		if _, err := ParseKind(string(l.Kind)); err != nil {
			return fmt.Errorf("shortcut %q locator %d: %w", s.Name, i, err)
		}
		if strings.TrimSpace(l.Expr) == "" {
			return fmt.Errorf("shortcut %q locator %d: empty expression", s.Name, i)
		}
	}
	return nil
}

// Normalize validates s and rewrites its locator kinds to their lower-case
// form, so that a kind read as "XPath" queries like "xpath".
func (s *Shortcut) Normalize() error {
	if err := s.Validate(); err != nil {
		return err
	}
	locs := make([]Locator, len(s.Locators))
	for i, l := range s.Locators {
		k, _ := ParseKind(string(l.Kind))
		locs[i] = Locator{Kind: k, Expr: l.Expr}
	}
	s.Locators = locs
	return nil
}

// DefaultShortcuts returns the built-in table for amazon.com.
func DefaultShortcuts() []Shortcut {
	return []Shortcut{
		{
			Name:     "search",
			Equals:   []string{"search"},
			Contains: []string{"search amazon"},
			Locators: []Locator{
				{KindID, "twotabsearchtextbox"},
				{KindXPath, "//input[@type='text' and @id='twotabsearchtextbox']"},
			},
		},
		{
			Name:   "search-submit",
			Equals: []string{"go", "search", "submit"},
			Locators: []Locator{
				{KindID, "nav-search-submit-button"},
				{KindXPath, "//input[@type='submit' and @value='Go']"},
			},
		},
		{
			Name:   "cart",
			Equals: []string{"cart"},
			Locators: []Locator{
				{KindID, "nav-cart"},
				{KindXPath, "//a[@id='nav-cart']"},
				{KindXPath, "//span[@id='nav-cart-count']"},
			},
		},
		{
			Name:     "add-to-cart",
			Equals:   []string{"add to cart"},
			Contains: []string{"add to cart"},
			Locators: []Locator{
				{KindID, "add-to-cart-button"},
				{KindXPath, "//input[@id='add-to-cart-button']"},
				{KindXPath, "//span[contains(text(),'Add to Cart')]"},
			},
		},
	}
}
