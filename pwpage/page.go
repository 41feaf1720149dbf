// Package pwpage binds a playwright-go page to locate.Page.
package pwpage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/wanmail/locate"
)

// Page is a locate.Page over a playwright page.
type Page struct {
	page playwright.Page
}

// New returns a locate.Page backed by p.
func New(p playwright.Page) *Page {
	return &Page{page: p}
}

// Playwright returns the underlying page.
func (p *Page) Playwright() playwright.Page {
	return p.page
}

// selector renders loc in playwright's engine=body selector syntax.
func selector(loc locate.Locator) (string, error) {
	if loc.Kind == locate.KindXPath {
		return "xpath=" + loc.Expr, nil
	}
	if css, ok := loc.CSS(); ok {
		return "css=" + css, nil
	}
	return "", fmt.Errorf("pwpage: unsupported locator %s", loc)
}

// QueryAll implements locate.Page.
func (p *Page) QueryAll(ctx context.Context, loc locate.Locator) ([]locate.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := selector(loc)
	if err != nil {
		return nil, err
	}
	handles, err := p.page.QuerySelectorAll(sel)
	if err != nil {
		return nil, fmt.Errorf("pwpage: %s: %w", loc, err)
	}
	out := make([]locate.Element, len(handles))
	for i, h := range handles {
		out[i] = &Element{handle: h}
	}
	return out, nil
}

// waitBudget caps timeout by ctx's deadline. Playwright calls take a
// millisecond timeout rather than a context, and read 0 as no timeout, so
// the budget never drops below 1ms.
func waitBudget(ctx context.Context, timeout time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(dl))
	}
	return max(timeout, time.Millisecond)
}

// millis converts d to whole milliseconds, rounding up.
func millis(d time.Duration) float64 {
	return float64((d + time.Millisecond - 1) / time.Millisecond)
}

// WaitForPresence implements locate.Page with WaitForSelector in the
// attached state, so hidden matches are returned for the gates to judge.
func (p *Page) WaitForPresence(ctx context.Context, loc locate.Locator, timeout time.Duration) (locate.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := selector(loc)
	if err != nil {
		return nil, err
	}
	budget := waitBudget(ctx, timeout)
	h, err := p.page.WaitForSelector(sel, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(millis(budget)),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("pwpage: %s after %s: %w", loc, timeout, locate.ErrTimeout)
		}
		return nil, fmt.Errorf("pwpage: %s: %w", loc, err)
	}
	if h == nil {
		return nil, fmt.Errorf("pwpage: %s after %s: %w", loc, timeout, locate.ErrTimeout)
	}
	return &Element{handle: h}, nil
}

// Element wraps a playwright element handle as a locate.Element.
type Element struct {
	handle playwright.ElementHandle
}

// Handle returns the underlying element handle.
func (e *Element) Handle() playwright.ElementHandle {
	return e.handle
}

func (e *Element) attached() error {
	v, err := e.handle.Evaluate(`el => el.isConnected`)
	if err != nil {
		return staleErr(err)
	}
	if connected, _ := v.(bool); !connected {
		return fmt.Errorf("pwpage: element detached: %w", locate.ErrStale)
	}
	return nil
}

// IsDisplayed implements locate.Element.
func (e *Element) IsDisplayed() (bool, error) {
	if err := e.attached(); err != nil {
		return false, err
	}
	visible, err := e.handle.IsVisible()
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
	enabled, err := e.handle.IsEnabled()
	if err != nil {
		return false, staleErr(err)
	}
	return enabled, nil
}

// Click clicks the element.
func (e *Element) Click() error {
	return e.handle.Click()
}

// Type replaces the element's value with text.
func (e *Element) Type(text string) error {
	return e.handle.Fill(text)
}

// Text returns the element's rendered text.
func (e *Element) Text() (string, error) {
	return e.handle.InnerText()
}

// staleMessages are playwright errors for a handle whose node or frame is
// gone.
var staleMessages = []string{
	"Element is not attached to the DOM",
	"JSHandle is disposed",
	"Execution context was destroyed",
	"Frame was detached",
}

func staleErr(err error) error {
	msg := err.Error()
	for _, m := range staleMessages {
		if strings.Contains(msg, m) {
			return fmt.Errorf("pwpage: %w: %w", locate.ErrStale, err)
		}
	}
	return err
}
