package config

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wanmail/locate"
	"github.com/wanmail/locate/htmlpage"
)

// -- Defaults --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "locate", cfg.Logger.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.Resolver.PresenceTimeout)
	assert.Equal(t, 1, cfg.Resolver.StaleRetries)
	assert.Len(t, cfg.Resolver.Groups, len(locate.DefaultGroups()))
	assert.Equal(t, BackendWebDriver, cfg.Browser.Backend)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.LoadTimeout)
	assert.Empty(t, cfg.Shortcuts)
	require.NoError(t, cfg.Validate())
}

// -- Loading --

const sampleYAML = `
logger:
  level: debug
  format: json
resolver:
  presence_timeout: 750ms
  stale_retries: 2
  groups: [shortcut, input, button]
shortcuts:
  - name: login
    equals: [sign in, log in]
    locators:
      - {kind: id, expr: signin}
      - {kind: xpath, expr: "//a[@href='/login']"}
browser:
  backend: rod
  headless: false
`

func loadYAML(t *testing.T, src string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(src)))
	return v
}

func TestNewConfigFromViper(t *testing.T) {
	cfg, err := NewConfigFromViper(loadYAML(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 750*time.Millisecond, cfg.Resolver.PresenceTimeout)
	assert.Equal(t, 2, cfg.Resolver.StaleRetries)
	assert.Equal(t, []string{"shortcut", "input", "button"}, cfg.Resolver.Groups)
	assert.Equal(t, BackendRod, cfg.Browser.Backend)
	assert.False(t, cfg.Browser.Headless)
	// Untouched keys keep their defaults.
	assert.Equal(t, "chrome", cfg.Browser.BrowserName)

	require.Len(t, cfg.Shortcuts, 1)
	want := locate.Shortcut{
		Name:   "login",
		Equals: []string{"sign in", "log in"},
		Locators: []locate.Locator{
			{Kind: locate.KindID, Expr: "signin"},
			{Kind: locate.KindXPath, Expr: "//a[@href='/login']"},
		},
	}
	assert.Equal(t, want, cfg.Shortcuts[0])
}

func TestShortcutKindIsNormalized(t *testing.T) {
	src := `
resolver:
  presence_timeout: 20ms
  groups: [shortcut]
shortcuts:
  - name: go
    equals: [go]
    locators:
      - {kind: XPath, expr: "//button[@id='go']"}
      - {kind: ID, expr: go}
`
	cfg, err := NewConfigFromViper(loadYAML(t, src))
	require.NoError(t, err)
	require.Len(t, cfg.Shortcuts, 1)
	assert.Equal(t, []locate.Locator{
		{Kind: locate.KindXPath, Expr: "//button[@id='go']"},
		{Kind: locate.KindID, Expr: "go"},
	}, cfg.Shortcuts[0].Locators)

	doc, err := htmlpage.ParseString(`<html><body><button id="go">Go</button></body></html>`)
	require.NoError(t, err)
	opts, err := cfg.ResolverOptions(zap.NewNop())
	require.NoError(t, err)
	r, err := locate.New(doc, opts...)
	require.NoError(t, err)
	m, err := r.Resolve(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, locate.KindXPath, m.Candidate.Kind)
}

func TestGeneratorNormalizesKinds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Shortcuts = []locate.Shortcut{{Name: "home", Equals: []string{"home"}, Locators: []locate.Locator{{Kind: "CSS", Expr: "#nav-logo"}}}}
	gen, err := cfg.Generator()
	require.NoError(t, err)
	assert.Equal(t, locate.KindCSS, gen.Shortcuts[0].Locators[0].Kind)
	// The configuration itself is left as written.
	assert.Equal(t, locate.Kind("CSS"), cfg.Shortcuts[0].Locators[0].Kind)

	cfg.Shortcuts[0].Locators[0].Kind = "regex"
	_, err = cfg.Generator()
	assert.Error(t, err)
}

func TestNewConfigFromViperInvalid(t *testing.T) {
	_, err := NewConfigFromViper(loadYAML(t, "resolver:\n  stale_retries: -1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "resolver.stale_retries")
}

// -- Validation --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero timeout", func(c *Config) { c.Resolver.PresenceTimeout = 0 }, "resolver.presence_timeout must be a positive duration"},
		{"negative retries", func(c *Config) { c.Resolver.StaleRetries = -2 }, "resolver.stale_retries must not be negative"},
		{"no groups", func(c *Config) { c.Resolver.Groups = nil }, "at least one group is required"},
		{"unknown group", func(c *Config) { c.Resolver.Groups = []string{"input", "table"} }, `unknown heuristic group "table"`},
		{"duplicate group", func(c *Config) { c.Resolver.Groups = []string{"input", "INPUT"} }, `group "input" listed twice`},
		{"bad shortcut", func(c *Config) { c.Shortcuts = []locate.Shortcut{{Name: "x", Equals: []string{"x"}}} }, "shortcuts[0]"},
		{"unknown backend", func(c *Config) { c.Browser.Backend = "selenium-rc" }, `browser.backend "selenium-rc" is not one of`},
		{"no remote url", func(c *Config) { c.Browser.RemoteURL = "" }, "browser.remote_url is required"},
		{"negative window", func(c *Config) { c.Browser.WindowWidth = -1 }, "browser.window_width"},
		{"bad driver port", func(c *Config) { c.Browser.DriverPort = 70000 }, "browser.driver_port 70000 is out of range"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("local driver needs no remote url", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Browser.RemoteURL = ""
		cfg.Browser.DriverPath = "/usr/bin/chromedriver"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("html backend needs no remote url", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Browser.Backend = BackendHTML
		cfg.Browser.RemoteURL = ""
		assert.NoError(t, cfg.Validate())
	})
}

// -- Resolver wiring --

func TestGenerator(t *testing.T) {
	cfg := NewDefaultConfig()
	gen, err := cfg.Generator()
	require.NoError(t, err)
	assert.Equal(t, locate.DefaultGroups(), gen.Groups)
	assert.Equal(t, locate.DefaultShortcuts(), gen.Shortcuts)

	custom := locate.Shortcut{Name: "home", Equals: []string{"home"}, Locators: []locate.Locator{{Kind: locate.KindID, Expr: "nav-logo"}}}
	cfg.Shortcuts = []locate.Shortcut{custom}
	cfg.Resolver.Groups = []string{"shortcut"}
	gen, err = cfg.Generator()
	require.NoError(t, err)

	cands := gen.Generate("Home")
	require.Len(t, cands, 1)
	assert.Equal(t, "shortcut.home", cands[0].Rule)
	assert.Equal(t, locate.OriginSiteSpecific, cands[0].Origin)
}

func TestResolverOptions(t *testing.T) {
	cfg := NewDefaultConfig()
	opts, err := cfg.ResolverOptions(zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, opts, 4)

	cfg.Resolver.Groups = []string{"bogus"}
	_, err = cfg.ResolverOptions(zap.NewNop())
	assert.Error(t, err)
}
