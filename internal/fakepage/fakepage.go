// Package fakepage provides a scripted locate.Page for tests that need
// exact control over what each query returns, such as elements that go
// stale between a query and a gate probe.
package fakepage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wanmail/locate"
)

// Element is a scripted element. The zero value is invisible and
// disabled.
type Element struct {
	ID        string
	Displayed bool
	Enabled   bool
	// Err, when set, is returned by every probe.
	Err error

	mu     sync.Mutex
	stale  bool
	probes int
}

// Visible returns a displayed, enabled element.
func Visible(id string) *Element {
	return &Element{ID: id, Displayed: true, Enabled: true}
}

// Hidden returns an element that is not displayed.
func Hidden(id string) *Element {
	return &Element{ID: id, Enabled: true}
}

// Stale returns an element already detached from the page.
func Stale(id string) *Element {
	return &Element{ID: id, Displayed: true, Enabled: true, stale: true}
}

// MarkStale detaches the element.
func (e *Element) MarkStale() {
	e.mu.Lock()
	e.stale = true
	e.mu.Unlock()
}

// Probes returns how many gate probes the element has answered.
func (e *Element) Probes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.probes
}

func (e *Element) probe(v bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.probes++
	if e.stale {
		return false, fmt.Errorf("fakepage: element %s: %w", e.ID, locate.ErrStale)
	}
	if e.Err != nil {
		return false, e.Err
	}
	return v, nil
}

func (e *Element) IsDisplayed() (bool, error) { return e.probe(e.Displayed) }

func (e *Element) IsEnabled() (bool, error) { return e.probe(e.Enabled) }

func (e *Element) String() string { return "fake " + e.ID }

type script struct {
	present *Element
	waitErr error
	sets    [][]*Element
	err     error
	waits   int
	queries int
}

// Page answers queries from per-locator scripts. Locators without a script
// are absent.
type Page struct {
	mu      sync.Mutex
	scripts map[locate.Locator]*script
	// OnQuery, when set, runs after QueryAll picks its result and before it
	// returns. Tests use it to mutate elements between query and probe.
	OnQuery func(loc locate.Locator, call int, els []*Element)
}

// New returns an empty Page.
func New() *Page {
	return &Page{scripts: make(map[locate.Locator]*script)}
}

func (p *Page) script(loc locate.Locator) *script {
	s, ok := p.scripts[loc]
	if !ok {
		s = &script{}
		p.scripts[loc] = s
	}
	return s
}

// Present makes WaitForPresence return el for loc.
func (p *Page) Present(loc locate.Locator, el *Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script(loc).present = el
}

// FailWait makes WaitForPresence return err for loc.
func (p *Page) FailWait(loc locate.Locator, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script(loc).waitErr = err
}

// Results sets the successive QueryAll results for loc. The last set is
// repeated once the others are used up.
func (p *Page) Results(loc locate.Locator, sets ...[]*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script(loc).sets = sets
}

// FailQuery makes QueryAll return err for loc.
func (p *Page) FailQuery(loc locate.Locator, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script(loc).err = err
}

// Waits returns how many presence waits were made for loc.
func (p *Page) Waits(loc locate.Locator) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.scripts[loc]; ok {
		return s.waits
	}
	return 0
}

// Queries returns how many QueryAll calls were made for loc.
func (p *Page) Queries(loc locate.Locator) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.scripts[loc]; ok {
		return s.queries
	}
	return 0
}

// WaitForPresence implements locate.Page. It never sleeps: a locator
// without a present element times out at once.
func (p *Page) WaitForPresence(ctx context.Context, loc locate.Locator, timeout time.Duration) (locate.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.script(loc)
	s.waits++
	switch {
	case s.waitErr != nil:
		return nil, s.waitErr
	case s.present == nil:
		return nil, fmt.Errorf("fakepage: %s after %s: %w", loc, timeout, locate.ErrTimeout)
	}
	return s.present, nil
}

// QueryAll implements locate.Page.
func (p *Page) QueryAll(ctx context.Context, loc locate.Locator) ([]locate.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	s := p.script(loc)
	s.queries++
	call := s.queries
	if s.err != nil {
		p.mu.Unlock()
		return nil, s.err
	}
	var els []*Element
	if n := len(s.sets); n > 0 {
		els = s.sets[min(call, n)-1]
	}
	hook := p.OnQuery
	p.mu.Unlock()

	if hook != nil {
		hook(loc, call, els)
	}
	out := make([]locate.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out, nil
}
