package webdriver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wanmail/locate"
)

// SelectElement wraps a <select> dropdown.
type SelectElement struct {
	element WebElement
	isMulti bool
}

// Select wraps el, which must be a <select>.
func Select(el WebElement) (*SelectElement, error) {
	tag, err := el.TagName()
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(tag, "select") {
		return nil, fmt.Errorf(`element should have been "select" but was %q`, tag)
	}
	// A missing attribute is an error from GetAttribute.
	mult, err := el.GetAttribute("multiple")
	isMulti := err == nil && !strings.EqualFold(mult, "false")
	return &SelectElement{element: el, isMulti: isMulti}, nil
}

// Element returns the underlying <select>.
func (s *SelectElement) Element() WebElement { return s.element }

// IsMultiple reports whether the dropdown accepts several selected options.
func (s *SelectElement) IsMultiple() bool { return s.isMulti }

// Options returns every option in document order.
func (s *SelectElement) Options() ([]WebElement, error) {
	return s.element.FindElements(ByXPATH, ".//option")
}

// Selected returns the selected options.
func (s *SelectElement) Selected() ([]WebElement, error) {
	opts, err := s.Options()
	if err != nil {
		return nil, err
	}
	var out []WebElement
	for _, o := range opts {
		sel, err := o.IsSelected()
		if err != nil {
			return nil, err
		}
		if sel {
			out = append(out, o)
		}
	}
	return out, nil
}

// SelectByVisibleText selects the options whose whitespace-normalized text
// equals text. A single-select stops at the first.
func (s *SelectElement) SelectByVisibleText(text string) error {
	opts, err := s.element.FindElements(ByXPATH, ".//option[normalize-space(.)="+locate.XPathLiteral(strings.Join(strings.Fields(text), " "))+"]")
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		return fmt.Errorf("cannot locate option with text %q", text)
	}
	return s.selectAll(opts)
}

// SelectByValue selects the options whose value attribute equals value.
func (s *SelectElement) SelectByValue(value string) error {
	opts, err := s.element.FindElements(ByXPATH, ".//option[@value="+locate.XPathLiteral(value)+"]")
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		return fmt.Errorf("cannot locate option with value %q", value)
	}
	return s.selectAll(opts)
}

// SelectByIndex selects the option at position idx, counting from zero.
func (s *SelectElement) SelectByIndex(idx int) error {
	opts, err := s.Options()
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(opts) {
		return fmt.Errorf("option index %d out of range [0, %d)", idx, len(opts))
	}
	return setSelected(opts[idx], true)
}

// DeselectAll clears every selected option of a multi-select.
func (s *SelectElement) DeselectAll() error {
	if !s.isMulti {
		return errors.New("you may only deselect all options of a multi-select")
	}
	opts, err := s.Options()
	if err != nil {
		return err
	}
	for _, o := range opts {
		if err := setSelected(o, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *SelectElement) selectAll(opts []WebElement) error {
	for _, o := range opts {
		if err := setSelected(o, true); err != nil {
			return err
		}
		if !s.isMulti {
			return nil
		}
	}
	return nil
}

func setSelected(option WebElement, selected bool) error {
	sel, err := option.IsSelected()
	if err != nil {
		return err
	}
	if sel != selected {
		return option.Click()
	}
	return nil
}

// Select resolves field to a dropdown and picks the option labelled text.
func (f *Finder) Select(ctx context.Context, field, text string) error {
	el, err := f.FindByField(ctx, field)
	if err != nil {
		return err
	}
	s, err := Select(el)
	if err != nil {
		return fmt.Errorf("field %q: %w", field, err)
	}
	return s.SelectByVisibleText(text)
}
