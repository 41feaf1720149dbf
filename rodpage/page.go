// Package rodpage binds a go-rod page to locate.Page.
package rodpage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/proto"

	"github.com/wanmail/locate"
)

// Page is a locate.Page over a rod page.
type Page struct {
	page *rod.Page
}

// New returns a locate.Page backed by p.
func New(p *rod.Page) *Page {
	return &Page{page: p}
}

// Rod returns the underlying page.
func (p *Page) Rod() *rod.Page {
	return p.page
}

// query reports how rod should evaluate loc: as XPath or as a CSS selector.
func query(loc locate.Locator) (expr string, xpath bool, err error) {
	if loc.Kind == locate.KindXPath {
		return loc.Expr, true, nil
	}
	if css, ok := loc.CSS(); ok {
		return css, false, nil
	}
	return "", false, fmt.Errorf("rodpage: unsupported locator %s", loc)
}

// QueryAll implements locate.Page. Elements and ElementsX do not wait.
func (p *Page) QueryAll(ctx context.Context, loc locate.Locator) ([]locate.Element, error) {
	expr, xpath, err := query(loc)
	if err != nil {
		return nil, err
	}
	pg := p.page.Context(ctx)
	var els rod.Elements
	if xpath {
		els, err = pg.ElementsX(expr)
	} else {
		els, err = pg.Elements(expr)
	}
	if err != nil {
		return nil, fmt.Errorf("rodpage: %s: %w", loc, err)
	}
	out := make([]locate.Element, len(els))
	for i, el := range els {
		out[i] = &Element{el: el.Context(p.page.GetContext())}
	}
	return out, nil
}

// WaitForPresence implements locate.Page with rod's retrying Element and
// ElementX under a page timeout.
func (p *Page) WaitForPresence(ctx context.Context, loc locate.Locator, timeout time.Duration) (locate.Element, error) {
	expr, xpath, err := query(loc)
	if err != nil {
		return nil, err
	}
	pg := p.page.Context(ctx).Timeout(timeout)
	defer pg.CancelTimeout()

	var el *rod.Element
	if xpath {
		el, err = pg.ElementX(expr)
	} else {
		el, err = pg.Element(expr)
	}
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("rodpage: %s after %s: %w", loc, timeout, locate.ErrTimeout)
		}
		return nil, fmt.Errorf("rodpage: %s: %w", loc, err)
	}
	// Rebind to the page's own context so later probes outlive the wait.
	return &Element{el: el.Context(p.page.GetContext())}, nil
}

// Element wraps a rod element as a locate.Element.
type Element struct {
	el *rod.Element
}

// Rod returns the underlying element.
func (e *Element) Rod() *rod.Element {
	return e.el
}

// attached fails with locate.ErrStale once the node has left the document.
func (e *Element) attached() error {
	res, err := e.el.Eval(`() => this.isConnected`)
	if err != nil {
		return staleErr(err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("rodpage: node detached: %w", locate.ErrStale)
	}
	return nil
}

// IsDisplayed implements locate.Element.
func (e *Element) IsDisplayed() (bool, error) {
	if err := e.attached(); err != nil {
		return false, err
	}
	visible, err := e.el.Visible()
	if err != nil {
		return false, staleErr(err)
	}
	return visible, nil
}

// IsEnabled implements locate.Element.
func (e *Element) IsEnabled() (bool, error) {
	if err := e.attached(); err != nil {
		return false, err
	}
	res, err := e.el.Eval(`() => !this.disabled && !this.closest('fieldset[disabled]')`)
	if err != nil {
		return false, staleErr(err)
	}
	return res.Value.Bool(), nil
}

// Click clicks the element with the left mouse button.
func (e *Element) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

// Type replaces the element's value with text.
func (e *Element) Type(text string) error {
	if err := e.el.SelectAllText(); err != nil {
		return err
	}
	return e.el.Input(text)
}

// Text returns the element's rendered text.
func (e *Element) Text() (string, error) {
	return e.el.Text()
}

// staleMessages are CDP replies for a node or remote object that is gone.
var staleMessages = []string{
	"Could not find node",
	"No node with given id",
	"Cannot find context with specified id",
	"Node is detached",
}

// staleErr marks CDP errors about a vanished node with locate.ErrStale.
func staleErr(err error) error {
	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) && isStaleMessage(cdpErr.Message) {
		return fmt.Errorf("rodpage: %w: %w", locate.ErrStale, err)
	}
	return err
}

func isStaleMessage(msg string) bool {
	for _, m := range staleMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
