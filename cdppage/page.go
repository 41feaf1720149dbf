// Package cdppage binds a chromedp tab to locate.Page.
//
// Locators are run through DOM.performSearch (chromedp.BySearch), which
// accepts both CSS selectors and XPath expressions. Gate probes resolve the
// node to a remote object and read its state in the page.
package cdppage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/wanmail/locate"
)

// Page is a locate.Page over a chromedp tab context.
type Page struct {
	tab context.Context
}

// New returns a locate.Page running actions in tab, a context created by
// chromedp.NewContext.
func New(tab context.Context) *Page {
	return &Page{tab: tab}
}

// Run runs actions in the tab, stopping early when ctx is done.
func (p *Page) Run(ctx context.Context, actions ...chromedp.Action) error {
	return p.run(ctx, 0, actions...)
}

func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(p.tab, timeout)
	} else {
		runCtx, cancel = context.WithCancel(p.tab)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func search(loc locate.Locator) (string, error) {
	if loc.Kind == locate.KindXPath {
		return loc.Expr, nil
	}
	if css, ok := loc.CSS(); ok {
		return css, nil
	}
	return "", fmt.Errorf("cdppage: unsupported locator %s", loc)
}

// QueryAll implements locate.Page.
func (p *Page) QueryAll(ctx context.Context, loc locate.Locator) ([]locate.Element, error) {
	sel, err := search(loc)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	if err := p.run(ctx, 0, chromedp.Nodes(sel, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("cdppage: %s: %w", loc, err)
	}
	return p.wrap(nodes), nil
}

// WaitForPresence implements locate.Page.
func (p *Page) WaitForPresence(ctx context.Context, loc locate.Locator, timeout time.Duration) (locate.Element, error) {
	sel, err := search(loc)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	err = p.run(ctx, timeout, chromedp.Nodes(sel, &nodes, chromedp.BySearch))
	switch {
	case err == nil && len(nodes) > 0:
		return p.wrap(nodes)[0], nil
	case err == nil, errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, fmt.Errorf("cdppage: %s after %s: %w", loc, timeout, locate.ErrTimeout)
	}
	return nil, fmt.Errorf("cdppage: %s: %w", loc, err)
}

func (p *Page) wrap(nodes []*cdp.Node) []locate.Element {
	out := make([]locate.Element, 0, len(nodes))
	for _, n := range nodes {
		if n.NodeType != cdp.NodeTypeElement {
			continue
		}
		out = append(out, &Element{page: p, node: n})
	}
	return out
}

// Element is a DOM node found through a Page.
type Element struct {
	page *Page
	node *cdp.Node
}

// Node returns the underlying node.
func (e *Element) Node() *cdp.Node {
	return e.node
}

// The scripts report whether the node is still connected alongside the
// value read from it.
const (
	displayedJS = `function() {
	if (!this.isConnected) return {connected: false};
	const s = window.getComputedStyle(this);
	return {connected: true, value: s.display !== 'none' && s.visibility !== 'hidden' && s.visibility !== 'collapse' && this.getClientRects().length > 0};
}`
	enabledJS = `function() {
	if (!this.isConnected) return {connected: false};
	return {connected: true, value: !this.disabled && !this.closest('fieldset[disabled]')};
}`
	textJS = `function() {
	if (!this.isConnected) return {connected: false};
	return {connected: true, value: this.innerText};
}`
)

type callResult[T any] struct {
	Connected bool `json:"connected"`
	Value     T    `json:"value"`
}

func (r callResult[T]) get(node *cdp.Node) (T, error) {
	if !r.Connected {
		var zero T
		return zero, fmt.Errorf("cdppage: node %d detached: %w", node.NodeID, locate.ErrStale)
	}
	return r.Value, nil
}

// callOn runs function with the node bound to this.
func callOn[T any](ctx context.Context, e *Element, function string) (T, error) {
	var res callResult[T]
	err := e.page.run(ctx, 0, chromedp.ActionFunc(func(c context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(c)
		if err != nil {
			return err
		}
		defer runtime.ReleaseObject(obj.ObjectID).Do(c)
		return chromedp.CallFunctionOn(function, &res, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}).Do(c)
	}))
	if err != nil {
		var zero T
		return zero, staleErr(err)
	}
	return res.get(e.node)
}

func (e *Element) check(function string) (bool, error) {
	return callOn[bool](context.Background(), e, function)
}

// IsDisplayed implements locate.Element.
func (e *Element) IsDisplayed() (bool, error) {
	return e.check(displayedJS)
}

// IsEnabled implements locate.Element.
func (e *Element) IsEnabled() (bool, error) {
	return e.check(enabledJS)
}

// Click clicks the node.
func (e *Element) Click(ctx context.Context) error {
	return e.page.run(ctx, 0, chromedp.MouseClickNode(e.node))
}

// Type focuses the node, clears it and types text.
func (e *Element) Type(ctx context.Context, text string) error {
	return e.page.run(ctx, 0,
		chromedp.Clear([]cdp.NodeID{e.node.NodeID}, chromedp.ByNodeID),
		chromedp.SendKeys([]cdp.NodeID{e.node.NodeID}, text, chromedp.ByNodeID),
	)
}

// Text returns the node's rendered text.
func (e *Element) Text(ctx context.Context) (string, error) {
	return callOn[string](ctx, e, textJS)
}

var staleMessages = []string{
	"Could not find node",
	"No node with given id",
	"Node with given id does not belong to the document",
	"Cannot find context with specified id",
	"Could not find object with given id",
}

// staleErr marks protocol errors about a vanished node with locate.ErrStale.
func staleErr(err error) error {
	var cdpErr *cdproto.Error
	if !errors.As(err, &cdpErr) {
		return err
	}
	for _, m := range staleMessages {
		if strings.Contains(cdpErr.Message, m) {
			return fmt.Errorf("cdppage: %w: %w", locate.ErrStale, err)
		}
	}
	return err
}
