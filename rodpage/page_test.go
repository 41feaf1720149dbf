package rodpage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/wanmail/locate"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		loc    locate.Locator
		expr   string
		xpath  bool
		hasErr bool
	}{
		{loc: locate.Locator{Kind: locate.KindXPath, Expr: "//a"}, expr: "//a", xpath: true},
		{loc: locate.Locator{Kind: locate.KindCSS, Expr: "#a"}, expr: "#a"},
		{loc: locate.Locator{Kind: locate.KindID, Expr: "nav-cart"}, expr: `[id="nav-cart"]`},
		{loc: locate.Locator{Kind: locate.KindName, Expr: "q"}, expr: `[name="q"]`},
		{loc: locate.Locator{Kind: "link", Expr: "a"}, hasErr: true},
	}
	for _, tc := range tests {
		expr, xpath, err := query(tc.loc)
		if tc.hasErr {
			if err == nil {
				t.Errorf("query(%v) returned nil error", tc.loc)
			}
			continue
		}
		if err != nil {
			t.Fatalf("query(%v) returned error: %v", tc.loc, err)
		}
		if expr != tc.expr || xpath != tc.xpath {
			t.Errorf("query(%v) = %q, %t; want %q, %t", tc.loc, expr, xpath, tc.expr, tc.xpath)
		}
	}
}

func TestStaleErr(t *testing.T) {
	tests := []struct {
		err   error
		stale bool
	}{
		{err: &cdp.Error{Code: -32000, Message: "Could not find node with given id"}, stale: true},
		{err: fmt.Errorf("eval: %w", &cdp.Error{Code: -32000, Message: "Cannot find context with specified id"}), stale: true},
		{err: &cdp.Error{Code: -32601, Message: "'DOM.foo' wasn't found"}},
		{err: errors.New("Could not find node")},
	}
	for _, tc := range tests {
		got := staleErr(tc.err)
		if stale := errors.Is(got, locate.ErrStale); stale != tc.stale {
			t.Errorf("staleErr(%v) stale = %t, want %t", tc.err, stale, tc.stale)
		}
		if !errors.Is(got, tc.err) {
			t.Errorf("staleErr(%v) = %v, lost the original error", tc.err, got)
		}
	}
}

const testPage = `<html><body>
<label>Email</label><input id="email" style="display:none">
<label>Email</label><input id="email2">
<button id="gone">Remove</button>
<fieldset disabled><input id="locked" name="locked"></fieldset>
</body></html>`

// browserPage starts a headless browser on testPage. Set
// LOCATE_BROWSER_TESTS=1 to run tests that need one.
func browserPage(t *testing.T) *Page {
	t.Helper()
	if testing.Short() || os.Getenv("LOCATE_BROWSER_TESTS") == "" {
		t.Skip("set LOCATE_BROWSER_TESTS=1 to run browser tests")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPage)
	}))
	t.Cleanup(srv.Close)

	u, err := launcher.New().Headless(true).Launch()
	if err != nil {
		t.Fatalf("launcher.Launch() returned error: %v", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		t.Fatalf("browser.Connect() returned error: %v", err)
	}
	t.Cleanup(func() { b.MustClose() })

	p, err := b.Page(proto.TargetCreateTarget{URL: srv.URL})
	if err != nil {
		t.Fatalf("browser.Page() returned error: %v", err)
	}
	if err := p.WaitLoad(); err != nil {
		t.Fatalf("page.WaitLoad() returned error: %v", err)
	}
	return New(p)
}

func TestResolve(t *testing.T) {
	p := browserPage(t)
	r, err := locate.New(p, locate.WithPresenceTimeout(time.Second))
	if err != nil {
		t.Fatalf("locate.New() returned error: %v", err)
	}
	m, err := r.Resolve(context.Background(), "Email")
	if err != nil {
		t.Fatalf("Resolve(Email) returned error: %v", err)
	}
	id, err := m.Element.(*Element).Rod().Attribute("id")
	if err != nil {
		t.Fatalf("Attribute(id) returned error: %v", err)
	}
	if id == nil || *id != "email2" {
		t.Errorf("Resolve(Email) matched %v, want email2", id)
	}
	if m.Phase != locate.PhaseScan {
		t.Errorf("Resolve(Email) phase = %v, want %v", m.Phase, locate.PhaseScan)
	}
}

func TestElementGates(t *testing.T) {
	p := browserPage(t)
	ctx := context.Background()

	els, err := p.QueryAll(ctx, locate.Locator{Kind: locate.KindName, Expr: "locked"})
	if err != nil || len(els) != 1 {
		t.Fatalf("QueryAll(locked) = %d elements, %v; want 1, nil", len(els), err)
	}
	if enabled, err := els[0].IsEnabled(); err != nil || enabled {
		t.Errorf("IsEnabled(locked) = %t, %v; want false, nil", enabled, err)
	}

	el, err := p.WaitForPresence(ctx, locate.Locator{Kind: locate.KindID, Expr: "gone"}, time.Second)
	if err != nil {
		t.Fatalf("WaitForPresence(gone) returned error: %v", err)
	}
	if _, err := p.Rod().Eval(`() => document.getElementById('gone').remove()`); err != nil {
		t.Fatalf("Eval(remove) returned error: %v", err)
	}
	if _, err := el.IsDisplayed(); !errors.Is(err, locate.ErrStale) {
		t.Errorf("IsDisplayed() on a removed node returned %v, want ErrStale", err)
	}

	_, err = p.WaitForPresence(ctx, locate.Locator{Kind: locate.KindCSS, Expr: "#missing"}, 100*time.Millisecond)
	if !errors.Is(err, locate.ErrTimeout) {
		t.Errorf("WaitForPresence(#missing) returned %v, want ErrTimeout", err)
	}
}
