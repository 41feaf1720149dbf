package webdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/wanmail/locate"
)

// Page adapts a WebDriver session to locate.Page.
type Page struct {
	wd       WebDriver
	interval time.Duration
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithPollInterval sets how often WaitForPresence asks the driver again.
func WithPollInterval(d time.Duration) PageOption {
	return func(p *Page) {
		if d > 0 {
			p.interval = d
		}
	}
}

// NewPage returns a locate.Page backed by wd.
func NewPage(wd WebDriver, opts ...PageOption) *Page {
	p := &Page{wd: wd, interval: DefaultWaitInterval}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func byFor(loc locate.Locator) (string, string, error) {
	switch loc.Kind {
	case locate.KindID:
		return ByID, loc.Expr, nil
	case locate.KindName:
		return ByName, loc.Expr, nil
	case locate.KindCSS:
		return ByCSSSelector, loc.Expr, nil
	case locate.KindXPath:
		return ByXPATH, loc.Expr, nil
	}
	return "", "", fmt.Errorf("webdriver: unsupported locator %s", loc)
}

func (p *Page) find(loc locate.Locator) ([]WebElement, error) {
	by, value, err := byFor(loc)
	if err != nil {
		return nil, err
	}
	els, err := p.wd.FindElements(by, value)
	if IsNoSuchElement(err) {
		// Some JSON Wire ends report an empty result this way.
		return nil, nil
	}
	return els, err
}

// QueryAll implements locate.Page.
func (p *Page) QueryAll(ctx context.Context, loc locate.Locator) ([]locate.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	els, err := p.find(loc)
	if err != nil {
		return nil, err
	}
	out := make([]locate.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

// WaitForPresence implements locate.Page by polling FindElements.
func (p *Page) WaitForPresence(ctx context.Context, loc locate.Locator, timeout time.Duration) (locate.Element, error) {
	var found WebElement
	err := poll(ctx, func() (bool, error) {
		els, err := p.find(loc)
		if err != nil || len(els) == 0 {
			return false, err
		}
		found = els[0]
		return true, nil
	}, timeout, p.interval)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", loc, err)
	}
	return found, nil
}

// Finder drives a page by field name instead of by selector.
type Finder struct {
	wd WebDriver
	r  *locate.Resolver
}

// NewFinder returns a Finder over wd. opts configure the underlying
// resolver.
func NewFinder(wd WebDriver, opts ...locate.Option) (*Finder, error) {
	r, err := locate.New(NewPage(wd), opts...)
	if err != nil {
		return nil, err
	}
	return &Finder{wd: wd, r: r}, nil
}

// FindByField resolves field to a visible, enabled element.
func (f *Finder) FindByField(ctx context.Context, field string) (WebElement, error) {
	m, err := f.r.Resolve(ctx, field)
	if err != nil {
		return nil, err
	}
	return m.Element.(WebElement), nil
}

// Click resolves field and clicks it.
func (f *Finder) Click(ctx context.Context, field string) error {
	el, err := f.FindByField(ctx, field)
	if err != nil {
		return err
	}
	return el.Click()
}

// Type resolves field, clears it and types text into it.
func (f *Finder) Type(ctx context.Context, field, text string) error {
	el, err := f.FindByField(ctx, field)
	if err != nil {
		return err
	}
	if err := el.Clear(); err != nil {
		return err
	}
	return el.SendKeys(text)
}

// Text resolves field and returns its rendered text.
func (f *Finder) Text(ctx context.Context, field string) (string, error) {
	el, err := f.FindByField(ctx, field)
	if err != nil {
		return "", err
	}
	return el.Text()
}

// WaitForPageLoad waits until document.readyState is "complete".
func (f *Finder) WaitForPageLoad(timeout time.Duration) error {
	return f.wd.WaitWithTimeout(func(wd WebDriver) (bool, error) {
		state, err := wd.ExecuteScript("return document.readyState", nil)
		if err != nil {
			return false, err
		}
		return state == "complete", nil
	}, timeout)
}
