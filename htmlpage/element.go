package htmlpage

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/wanmail/locate"
)

// Element is a handle on one element node of a Document.
type Element struct {
	doc  *Document
	node *html.Node
}

// Node returns the underlying node. Callers must not modify it outside
// Document.Mutate.
func (e *Element) Node() *html.Node { return e.node }

// read runs fn under the document's read lock after checking that the
// node is still attached.
func (e *Element) read(fn func()) error {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	if !e.doc.attachedLocked(e.node) {
		return fmt.Errorf("htmlpage: %s: %w", e.pathLocked(), locate.ErrStale)
	}
	fn()
	return nil
}

// nonRendered elements never produce a box.
var nonRendered = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
	"title":    true,
	"meta":     true,
	"link":     true,
}

// IsDisplayed reports whether the element would be rendered, judged from
// markup alone: the hidden attribute, hidden inputs and inline display or
// visibility styles on the element or any ancestor.
func (e *Element) IsDisplayed() (bool, error) {
	var shown bool
	err := e.read(func() {
		if isTag(e.node, "input") && strings.EqualFold(attr(e.node, "type"), "hidden") {
			return
		}
		for n := e.node; n != nil && n.Type == html.ElementNode; n = n.Parent {
			if nonRendered[n.Data] || hasAttr(n, "hidden") {
				return
			}
			st := parseStyle(attr(n, "style"))
			if st["display"] == "none" || st["visibility"] == "hidden" || st["visibility"] == "collapse" {
				return
			}
		}
		shown = true
	})
	return shown, err
}

// IsEnabled reports false for an element carrying disabled, or sitting in a
// disabled fieldset.
func (e *Element) IsEnabled() (bool, error) {
	enabled := true
	err := e.read(func() {
		if hasAttr(e.node, "disabled") {
			enabled = false
			return
		}
		for n := e.node.Parent; n != nil && n.Type == html.ElementNode; n = n.Parent {
			if isTag(n, "fieldset") && hasAttr(n, "disabled") {
				enabled = false
				return
			}
		}
	})
	return enabled, err
}

// IsSelected reports whether a checkbox, radio or option is checked.
func (e *Element) IsSelected() (bool, error) {
	var sel bool
	err := e.read(func() {
		sel = hasAttr(e.node, "checked") || hasAttr(e.node, "selected")
	})
	return sel, err
}

// TagName returns the lower-case tag name.
func (e *Element) TagName() (string, error) {
	var tag string
	err := e.read(func() { tag = e.node.Data })
	return tag, err
}

// Text returns the element's text with runs of whitespace collapsed.
func (e *Element) Text() (string, error) {
	var text string
	err := e.read(func() {
		text = strings.Join(strings.Fields(htmlquery.InnerText(e.node)), " ")
	})
	return text, err
}

// Attr returns the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool, error) {
	var (
		val string
		ok  bool
	)
	err := e.read(func() {
		for _, a := range e.node.Attr {
			if strings.EqualFold(a.Key, name) {
				val, ok = a.Val, true
				return
			}
		}
	})
	return val, ok, err
}

// SetAttr sets or adds an attribute.
func (e *Element) SetAttr(name, value string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if !e.doc.attachedLocked(e.node) {
		return fmt.Errorf("htmlpage: %s: %w", e.pathLocked(), locate.ErrStale)
	}
	for i, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			e.node.Attr[i].Val = value
			return nil
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
	return nil
}

// Path returns an XPath that selects the element, anchored at the nearest
// ancestor with an id.
func (e *Element) Path() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.pathLocked()
}

func (e *Element) pathLocked() string {
	var path []string
	for n := e.node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if id := htmlquery.SelectAttr(n, "id"); id != "" {
			path = append(path, "//*[@id="+locate.XPathLiteral(id)+"]")
			break
		}
		idx := 1
		for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && prev.Data == n.Data {
				idx++
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", n.Data, idx))
	}
	if len(path) == 0 {
		return "/"
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	p := strings.Join(path, "/")
	if !strings.HasPrefix(p, "//") {
		p = "/" + p
	}
	return p
}

func (e *Element) String() string {
	return "element " + e.Path()
}

func isTag(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	return htmlquery.SelectAttr(n, key)
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

// parseStyle reads an inline style attribute into lower-case property
// values.
func parseStyle(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		v = strings.ToLower(strings.TrimSpace(v))
		v = strings.TrimSpace(strings.TrimSuffix(v, "!important"))
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
