package htmlpage

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/wanmail/locate"
)

// Click applies the effect a click has on form state. An option becomes
// the selected option of its list, or toggles in a multi-select. A
// checkbox toggles and a radio becomes the checked button of its group.
// Clicking any other element changes nothing.
func (e *Element) Click() error {
	tag, err := e.TagName()
	if err != nil {
		return err
	}
	typ, _, err := e.Attr("type")
	if err != nil {
		return err
	}
	switch {
	case tag == "option":
		return e.clickOption()
	case tag == "input" && strings.EqualFold(typ, "checkbox"):
		return e.toggle("checked")
	case tag == "input" && strings.EqualFold(typ, "radio"):
		return e.checkRadio()
	}
	return nil
}

// Clear empties the element's value.
func (e *Element) Clear() error {
	return e.SetAttr("value", "")
}

// SendKeys appends text to the element's value.
func (e *Element) SendKeys(text string) error {
	cur, _, err := e.Attr("value")
	if err != nil {
		return err
	}
	return e.SetAttr("value", cur+text)
}

// Type replaces the element's value with text.
func (e *Element) Type(text string) error {
	return e.SetAttr("value", text)
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(name string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attachedLocked(e.node) {
		return fmt.Errorf("htmlpage: %s: %w", e.pathLocked(), locate.ErrStale)
	}
	attrs := e.node.Attr[:0]
	for _, a := range e.node.Attr {
		if !strings.EqualFold(a.Key, name) {
			attrs = append(attrs, a)
		}
	}
	e.node.Attr = attrs
	return nil
}

func (e *Element) toggle(name string) error {
	_, on, err := e.Attr(name)
	if err != nil {
		return err
	}
	if on {
		return e.RemoveAttr(name)
	}
	return e.SetAttr(name, name)
}

func (e *Element) clickOption() error {
	list, err := e.closest("select")
	if err != nil || list == nil {
		return err
	}
	_, multi, err := list.Attr("multiple")
	if err != nil {
		return err
	}
	if multi {
		return e.toggle("selected")
	}
	opts, err := e.doc.FindFrom(list, locate.Locator{Kind: locate.KindCSS, Expr: "option"})
	if err != nil {
		return err
	}
	return e.checkOne(opts, "selected")
}

func (e *Element) checkRadio() error {
	name, _, err := e.Attr("name")
	if err != nil {
		return err
	}
	if name == "" {
		return e.SetAttr("checked", "checked")
	}
	group := ".//input[@type='radio' and @name=" + locate.XPathLiteral(name) + "]"
	form, err := e.closest("form")
	if err != nil {
		return err
	}
	var radios []*Element
	if form != nil {
		radios, err = e.doc.FindFrom(form, locate.Locator{Kind: locate.KindXPath, Expr: group})
	} else {
		radios, err = e.doc.Find(locate.Locator{Kind: locate.KindXPath, Expr: group[1:]})
	}
	if err != nil {
		return err
	}
	return e.checkOne(radios, "checked")
}

// checkOne sets attribute name on e and removes it from the rest of group.
func (e *Element) checkOne(group []*Element, name string) error {
	for _, o := range group {
		if o.node == e.node {
			continue
		}
		if err := o.RemoveAttr(name); err != nil {
			return err
		}
	}
	return e.SetAttr(name, name)
}

// closest returns the nearest ancestor with the given tag, or nil.
func (e *Element) closest(tag string) (*Element, error) {
	var found *html.Node
	err := e.read(func() {
		for n := e.node.Parent; n != nil && n.Type == html.ElementNode; n = n.Parent {
			if isTag(n, tag) {
				found = n
				return
			}
		}
	})
	if err != nil || found == nil {
		return nil, err
	}
	return &Element{doc: e.doc, node: found}, nil
}
