// Package htmlpage is an offline locate.Page over a parsed HTML document.
//
// XPath locators are evaluated with htmlquery and CSS locators with
// cascadia. The document can be changed while a resolver is running with
// Mutate; elements whose nodes are detached by a mutation report
// locate.ErrStale from then on.
package htmlpage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/wanmail/locate"
)

// DefaultPollInterval is how often WaitForPresence re-evaluates a locator.
const DefaultPollInterval = 50 * time.Millisecond

// Document is a locate.Page safe for concurrent use.
type Document struct {
	mu   sync.RWMutex
	root *html.Node
	poll time.Duration
}

// Option configures a Document.
type Option func(*Document)

// WithPollInterval sets the presence polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(doc *Document) {
		if d > 0 {
			doc.poll = d
		}
	}
}

// Parse reads an HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: parse: %w", err)
	}
	doc := &Document{root: root, poll: DefaultPollInterval}
	for _, opt := range opts {
		opt(doc)
	}
	return doc, nil
}

// ParseString is Parse over a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Mutate runs fn with exclusive access to the document tree.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// Load replaces the whole document, as a navigation would. Every element
// obtained before the call becomes stale.
func (d *Document) Load(r io.Reader) error {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return fmt.Errorf("htmlpage: parse: %w", err)
	}
	d.mu.Lock()
	d.root = root
	d.mu.Unlock()
	return nil
}

// HTML renders the current document.
func (d *Document) HTML() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return htmlquery.OutputHTML(d.root, true)
}

// Title returns the text of the document's title element.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := htmlquery.FindOne(d.root, "//title")
	if n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(n))
}

// Find returns every element matching loc in document order.
func (d *Document) Find(loc locate.Locator) ([]*Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	nodes, err := d.query(d.root, loc)
	if err != nil {
		return nil, err
	}
	out := make([]*Element, len(nodes))
	for i, n := range nodes {
		out[i] = &Element{doc: d, node: n}
	}
	return out, nil
}

// FindFrom is Find scoped to the subtree of from. XPath locators are
// evaluated with from as the context node.
func (d *Document) FindFrom(from *Element, loc locate.Locator) ([]*Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.attachedLocked(from.node) {
		return nil, fmt.Errorf("htmlpage: %s: %w", from.pathLocked(), locate.ErrStale)
	}
	nodes, err := d.query(from.node, loc)
	if err != nil {
		return nil, err
	}
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if n != from.node {
			out = append(out, &Element{doc: d, node: n})
		}
	}
	return out, nil
}

func (d *Document) query(top *html.Node, loc locate.Locator) ([]*html.Node, error) {
	if loc.Kind == locate.KindCSS {
		sel, err := cascadia.ParseGroup(loc.Expr)
		if err != nil {
			return nil, fmt.Errorf("htmlpage: bad css selector %q: %w", loc.Expr, err)
		}
		return cascadia.QueryAll(top, sel), nil
	}
	expr, ok := loc.XPath()
	if !ok {
		return nil, fmt.Errorf("htmlpage: unsupported locator %s", loc)
	}
	nodes, err := htmlquery.QueryAll(top, expr)
	if err != nil {
		return nil, fmt.Errorf("htmlpage: bad xpath %q: %w", expr, err)
	}
	// Attribute and text results are not elements.
	out := nodes[:0]
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out, nil
}

// QueryAll implements locate.Page.
func (d *Document) QueryAll(ctx context.Context, loc locate.Locator) ([]locate.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := d.Find(loc)
	if err != nil {
		return nil, err
	}
	out := make([]locate.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out, nil
}

// WaitForPresence implements locate.Page by polling until loc matches an
// element, timeout elapses or ctx is done.
func (d *Document) WaitForPresence(ctx context.Context, loc locate.Locator, timeout time.Duration) (locate.Element, error) {
	el, err := d.WaitFor(ctx, loc, timeout)
	if err != nil {
		return nil, err
	}
	return el, nil
}

// WaitFor is WaitForPresence returning the concrete element type.
func (d *Document) WaitFor(ctx context.Context, loc locate.Locator, timeout time.Duration) (*Element, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(d.poll)
	defer tick.Stop()

	for {
		els, err := d.Find(loc)
		if err != nil {
			return nil, err
		}
		if len(els) > 0 {
			return els[0], nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("htmlpage: %s after %s: %w", loc, timeout, locate.ErrTimeout)
		case <-tick.C:
		}
	}
}

func (d *Document) attachedLocked(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}
