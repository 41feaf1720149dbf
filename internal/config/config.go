// Package config loads the locate CLI configuration with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wanmail/locate"
)

// Backends a session can be opened on.
const (
	BackendWebDriver  = "webdriver"
	BackendRod        = "rod"
	BackendChromedp   = "chromedp"
	BackendPlaywright = "playwright"
	BackendHTML       = "html"
)

// Backends lists every supported backend name.
var Backends = []string{BackendWebDriver, BackendRod, BackendChromedp, BackendPlaywright, BackendHTML}

// Config is the whole CLI configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Resolver ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	// Shortcuts replaces the built-in site-specific table when non-empty.
	Shortcuts []locate.Shortcut `mapstructure:"shortcuts" yaml:"shortcuts"`
	Browser   BrowserConfig     `mapstructure:"browser" yaml:"browser"`
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ResolverConfig tunes candidate generation and resolution.
type ResolverConfig struct {
	PresenceTimeout time.Duration `mapstructure:"presence_timeout" yaml:"presence_timeout"`
	StaleRetries    int           `mapstructure:"stale_retries" yaml:"stale_retries"`
	// Groups is the heuristic group order. "shortcut" marks where the
	// site-specific table goes.
	Groups []string `mapstructure:"groups" yaml:"groups"`
}

// BrowserConfig selects and configures the page backend.
type BrowserConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"`
	RemoteURL   string `mapstructure:"remote_url" yaml:"remote_url"`
	BrowserName string `mapstructure:"browser_name" yaml:"browser_name"`
	Headless    bool   `mapstructure:"headless" yaml:"headless"`
	Binary      string `mapstructure:"binary" yaml:"binary"`
	// LogLevel is the driver-side browser log level sent with WebDriver
	// capabilities, e.g. "INFO". Empty sends none.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// Debug logs WebDriver wire traffic.
	Debug bool `mapstructure:"debug" yaml:"debug"`
	// DriverPath starts a local chromedriver or geckodriver for the
	// webdriver backend instead of dialing RemoteURL.
	DriverPath   string        `mapstructure:"driver_path" yaml:"driver_path"`
	DriverPort   int           `mapstructure:"driver_port" yaml:"driver_port"`
	WindowWidth  int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int           `mapstructure:"window_height" yaml:"window_height"`
	LoadTimeout  time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "locate")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)

	// -- Resolver --
	v.SetDefault("resolver.presence_timeout", locate.DefaultPresenceTimeout)
	v.SetDefault("resolver.stale_retries", locate.DefaultStaleRetries)
	groups := make([]string, 0, len(locate.DefaultGroups()))
	for _, g := range locate.DefaultGroups() {
		groups = append(groups, string(g))
	}
	v.SetDefault("resolver.groups", groups)

	// -- Browser --
	v.SetDefault("browser.backend", BackendWebDriver)
	v.SetDefault("browser.remote_url", "http://127.0.0.1:4444/wd/hub")
	v.SetDefault("browser.browser_name", "chrome")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.binary", "")
	v.SetDefault("browser.log_level", "")
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.driver_path", "")
	v.SetDefault("browser.driver_port", 0)
	v.SetDefault("browser.window_width", 1366)
	v.SetDefault("browser.window_height", 768)
	v.SetDefault("browser.load_timeout", "30s")
}

// NewDefaultConfig returns the configuration with only defaults applied.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper decodes and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Resolver.PresenceTimeout <= 0 {
		return errors.New("resolver.presence_timeout must be a positive duration")
	}
	if c.Resolver.StaleRetries < 0 {
		return errors.New("resolver.stale_retries must not be negative")
	}
	if _, err := c.groups(); err != nil {
		return fmt.Errorf("resolver.groups: %w", err)
	}
	for i := range c.Shortcuts {
		if err := c.Shortcuts[i].Normalize(); err != nil {
			return fmt.Errorf("shortcuts[%d]: %w", i, err)
		}
	}
	if err := c.Browser.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks the browser section.
func (b *BrowserConfig) Validate() error {
	backend := strings.ToLower(b.Backend)
	known := false
	for _, name := range Backends {
		if backend == name {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("browser.backend %q is not one of %s", b.Backend, strings.Join(Backends, ", "))
	}
	if backend == BackendWebDriver && b.RemoteURL == "" && b.DriverPath == "" {
		return errors.New("browser.remote_url is required for the webdriver backend unless browser.driver_path is set")
	}
	if b.DriverPort < 0 || b.DriverPort > 65535 {
		return fmt.Errorf("browser.driver_port %d is out of range", b.DriverPort)
	}
	if b.WindowWidth < 0 || b.WindowHeight < 0 {
		return errors.New("browser.window_width and browser.window_height must not be negative")
	}
	return nil
}

func (c *Config) groups() ([]locate.Group, error) {
	if len(c.Resolver.Groups) == 0 {
		return nil, errors.New("at least one group is required")
	}
	out := make([]locate.Group, 0, len(c.Resolver.Groups))
	seen := make(map[locate.Group]bool)
	for _, s := range c.Resolver.Groups {
		g, err := locate.ParseGroup(s)
		if err != nil {
			return nil, err
		}
		if seen[g] {
			return nil, fmt.Errorf("group %q listed twice", g)
		}
		seen[g] = true
		out = append(out, g)
	}
	return out, nil
}

// Generator builds the candidate generator the configuration describes.
func (c *Config) Generator() (*locate.Generator, error) {
	groups, err := c.groups()
	if err != nil {
		return nil, fmt.Errorf("resolver.groups: %w", err)
	}
	g := &locate.Generator{Groups: groups, Shortcuts: locate.DefaultShortcuts()}
	if len(c.Shortcuts) > 0 {
		g.Shortcuts = append([]locate.Shortcut(nil), c.Shortcuts...)
		for i := range g.Shortcuts {
			if err := g.Shortcuts[i].Normalize(); err != nil {
				return nil, fmt.Errorf("shortcuts[%d]: %w", i, err)
			}
		}
	}
	return g, nil
}

// ResolverOptions returns the locate options for this configuration.
func (c *Config) ResolverOptions(logger *zap.Logger) ([]locate.Option, error) {
	gen, err := c.Generator()
	if err != nil {
		return nil, err
	}
	return []locate.Option{
		locate.WithPresenceTimeout(c.Resolver.PresenceTimeout),
		locate.WithStaleRetries(c.Resolver.StaleRetries),
		locate.WithGenerator(gen),
		locate.WithLogger(logger),
	}, nil
}
