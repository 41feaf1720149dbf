package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wanmail/locate"
	"github.com/wanmail/locate/htmlpage"
	"github.com/wanmail/locate/internal/config"
	"github.com/wanmail/locate/internal/fakewd"
)

const loginPage = `<html><head><title>Login</title></head><body>
<form>
  <label>Email</label><input id="email" name="email">
  <input type="submit" value="Sign in" id="signin">
</form>
</body></html>`

func htmlConfig() config.BrowserConfig {
	cfg := config.NewDefaultConfig().Browser
	cfg.Backend = config.BackendHTML
	return cfg
}

func resolveID(t *testing.T, page locate.Page, field string) string {
	t.Helper()
	r, err := locate.New(page, locate.WithPresenceTimeout(20*time.Millisecond))
	require.NoError(t, err)
	m, err := r.Resolve(context.Background(), field)
	require.NoError(t, err)
	el, ok := m.Element.(*htmlpage.Element)
	require.True(t, ok, "element is %T", m.Element)
	id, _, err := el.Attr("id")
	require.NoError(t, err)
	return id
}

// -- html backend --

func TestOpenHTMLFromServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, loginPage)
	}))
	defer srv.Close()

	s, err := Open(context.Background(), htmlConfig(), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, config.BackendHTML, s.Backend)

	require.NoError(t, s.Navigate(context.Background(), srv.URL+"/login"))
	assert.Equal(t, "signin", resolveID(t, s.Page, "Sign in"))

	err = s.Navigate(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOpenHTMLFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.html")
	require.NoError(t, os.WriteFile(path, []byte(loginPage), 0o644))

	s, err := Open(context.Background(), htmlConfig(), nil)
	require.NoError(t, err)
	defer s.Close()

	for _, url := range []string{path, "file://" + path} {
		require.NoError(t, s.Navigate(context.Background(), url), url)
		assert.Equal(t, "email", resolveID(t, s.Page, "Email"), url)
	}

	err = s.Navigate(context.Background(), filepath.Join(t.TempDir(), "nope.html"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNavigateLoadTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	cfg := htmlConfig()
	cfg.LoadTimeout = 20 * time.Millisecond
	s, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	err = s.Navigate(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

// -- webdriver backend --

func TestOpenWebDriver(t *testing.T) {
	doc, err := htmlpage.ParseString("<html><body></body></html>")
	require.NoError(t, err)
	srv := fakewd.New(doc, fakewd.WithPages(map[string]string{"https://shop.test/login": loginPage}))
	defer srv.Close()

	cfg := config.NewDefaultConfig().Browser
	cfg.RemoteURL = srv.URL
	s, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, srv.Sessions())

	require.NoError(t, s.Navigate(context.Background(), "https://shop.test/login"))
	r, err := locate.New(s.Page, locate.WithPresenceTimeout(20*time.Millisecond))
	require.NoError(t, err)
	m, err := r.Resolve(context.Background(), "Email")
	require.NoError(t, err)
	assert.Equal(t, locate.PhaseWait, m.Phase)

	require.NoError(t, s.Close())
	assert.Equal(t, 0, srv.Sessions())
	// A second Close has nothing left to release.
	assert.NoError(t, s.Close())
}

func TestOpenWebDriverUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := config.NewDefaultConfig().Browser
	cfg.RemoteURL = url
	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session: opening webdriver")
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := htmlConfig()
	cfg.Backend = "selenium-rc"
	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "selenium-rc"`)
}

// -- capabilities --

func TestCapabilitiesChrome(t *testing.T) {
	cfg := config.NewDefaultConfig().Browser
	cfg.Binary = "/opt/chrome/chrome"
	cfg.LogLevel = "INFO"
	caps, err := Capabilities(cfg)
	require.NoError(t, err)

	assert.Equal(t, "chrome", caps["browserName"])
	opts, ok := caps["goog:chromeOptions"]
	require.True(t, ok, "goog:chromeOptions missing from %v", caps)
	assert.Contains(t, fmt.Sprint(opts), "--headless")
	assert.Contains(t, fmt.Sprint(opts), "--window-size=1366,768")
	assert.Contains(t, fmt.Sprint(opts), "/opt/chrome/chrome")
	assert.Contains(t, caps, "goog:loggingPrefs")
}

func TestCapabilitiesFirefox(t *testing.T) {
	cfg := config.NewDefaultConfig().Browser
	cfg.BrowserName = "firefox"
	caps, err := Capabilities(cfg)
	require.NoError(t, err)
	assert.Equal(t, "firefox", caps["browserName"])
	assert.Contains(t, caps, "moz:firefoxOptions")
	assert.NotContains(t, caps, "goog:chromeOptions")
}

func TestCapabilitiesBadLogLevel(t *testing.T) {
	cfg := config.NewDefaultConfig().Browser
	cfg.LogLevel = "LOUD"
	_, err := Capabilities(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser.log_level")
}

func TestCloseOrder(t *testing.T) {
	var order []string
	s := &Session{}
	s.onClose(func() error { order = append(order, "browser"); return nil })
	s.onClose(func() error { order = append(order, "page"); return errors.New("page gone") })

	err := s.Close()
	require.Error(t, err)
	assert.Equal(t, []string{"page", "browser"}, order)
	assert.Contains(t, err.Error(), "page gone")
}

func TestOpenWebDriverMissingDriver(t *testing.T) {
	cfg := config.NewDefaultConfig().Browser
	cfg.RemoteURL = ""
	cfg.DriverPath = filepath.Join(t.TempDir(), "chromedriver")
	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting "+cfg.DriverPath)
}
