// Package session opens a locate.Page on the backend named in the
// configuration and tears it down again.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/wanmail/locate"
	"github.com/wanmail/locate/cdppage"
	"github.com/wanmail/locate/chrome"
	"github.com/wanmail/locate/firefox"
	"github.com/wanmail/locate/htmlpage"
	"github.com/wanmail/locate/internal/config"
	"github.com/wanmail/locate/log"
	"github.com/wanmail/locate/pwpage"
	"github.com/wanmail/locate/rodpage"
	"github.com/wanmail/locate/webdriver"
)

// Session is an open page on one backend.
type Session struct {
	Backend string
	Page    locate.Page

	loadTimeout time.Duration
	navigate    func(ctx context.Context, url string) error
	closers     []func() error
}

// Navigate loads url in the session's page, giving up after the
// configured load timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}
	if err := s.navigate(ctx, url); err != nil {
		return fmt.Errorf("session: navigating %s to %s: %w", s.Backend, url, err)
	}
	return nil
}

// Close releases the page and its browser, newest resource first.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Session) onClose(f func() error) {
	s.closers = append(s.closers, f)
}

// Open starts a session on cfg.Backend.
func Open(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend := strings.ToLower(cfg.Backend)
	s := &Session{Backend: backend, loadTimeout: cfg.LoadTimeout}

	var err error
	switch backend {
	case config.BackendWebDriver:
		err = openWebDriver(ctx, s, cfg, logger)
	case config.BackendRod:
		err = openRod(ctx, s, cfg)
	case config.BackendChromedp:
		err = openChromedp(s, cfg)
	case config.BackendPlaywright:
		err = openPlaywright(s, cfg)
	case config.BackendHTML:
		err = openHTML(s)
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("session: opening %s: %w", backend, err)
	}
	logger.Debug("Session opened.", zap.String("backend", backend), zap.Bool("headless", cfg.Headless))
	return s, nil
}

// Capabilities builds the WebDriver capabilities for cfg.
func Capabilities(cfg config.BrowserConfig) (webdriver.Capabilities, error) {
	caps := webdriver.Capabilities{"browserName": cfg.BrowserName}
	switch strings.ToLower(cfg.BrowserName) {
	case "chrome", "chromium", "":
		c := chrome.Capabilities{Path: cfg.Binary, W3C: true}
		if cfg.Headless {
			c.SetHeadless()
		}
		if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
			c.SetWindowSize(cfg.WindowWidth, cfg.WindowHeight)
		}
		caps.AddChrome(c)
	case "firefox":
		f := firefox.Capabilities{Binary: cfg.Binary}
		if cfg.Headless {
			f.SetHeadless()
		}
		caps.AddFirefox(f)
	}
	if cfg.LogLevel != "" {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("browser.log_level: %w", err)
		}
		caps.SetLogLevel(log.Browser, level)
	}
	return caps, nil
}

func openWebDriver(ctx context.Context, s *Session, cfg config.BrowserConfig, logger *zap.Logger) error {
	caps, err := Capabilities(cfg)
	if err != nil {
		return err
	}
	webdriver.SetLogger(logger)
	webdriver.SetDebug(cfg.Debug)

	remote := cfg.RemoteURL
	if cfg.DriverPath != "" {
		start := webdriver.NewChromeDriverService
		if strings.EqualFold(cfg.BrowserName, "firefox") {
			start = webdriver.NewGeckoDriverService
		}
		svc, err := start(ctx, cfg.DriverPath, cfg.DriverPort)
		if err != nil {
			return fmt.Errorf("starting %s: %w", cfg.DriverPath, err)
		}
		s.onClose(svc.Stop)
		remote = svc.URL()
	}

	wd, err := webdriver.NewRemote(caps, remote)
	if err != nil {
		return err
	}
	s.onClose(wd.Quit)
	s.Page = webdriver.NewPage(wd)
	s.navigate = func(ctx context.Context, url string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return wd.Get(url)
	}
	return nil
}

func openRod(ctx context.Context, s *Session, cfg config.BrowserConfig) error {
	controlURL := cfg.RemoteURL
	if !strings.HasPrefix(controlURL, "ws://") && !strings.HasPrefix(controlURL, "wss://") {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Binary != "" {
			l = l.Bin(cfg.Binary)
		}
		if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
			l = l.Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return fmt.Errorf("launch: %w", err)
		}
		s.onClose(func() error { l.Kill(); return nil })
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.onClose(b.Close)

	page, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return fmt.Errorf("create tab: %w", err)
	}
	s.Page = rodpage.New(page)
	s.navigate = func(ctx context.Context, url string) error {
		p := page.Context(ctx)
		if err := p.Navigate(url); err != nil {
			return err
		}
		return p.WaitLoad()
	}
	return nil
}

func openChromedp(s *Session, cfg config.BrowserConfig) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", cfg.Headless))
	if cfg.Binary != "" {
		opts = append(opts, chromedp.ExecPath(cfg.Binary))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if strings.HasPrefix(cfg.RemoteURL, "ws://") || strings.HasPrefix(cfg.RemoteURL, "wss://") {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	s.onClose(func() error { allocCancel(); return nil })

	tab, cancel := chromedp.NewContext(allocCtx)
	s.onClose(func() error { cancel(); return nil })
	// The first Run starts the browser.
	if err := chromedp.Run(tab); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	page := cdppage.New(tab)
	s.Page = page
	s.navigate = func(ctx context.Context, url string) error {
		return page.Run(ctx, chromedp.Navigate(url))
	}
	return nil
}

func openPlaywright(s *Session, cfg config.BrowserConfig) error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}
	s.onClose(pw.Stop)

	bt := pw.Chromium
	switch strings.ToLower(cfg.BrowserName) {
	case "firefox":
		bt = pw.Firefox
	case "webkit", "safari":
		bt = pw.WebKit
	}
	launch := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(cfg.Headless)}
	if cfg.Binary != "" {
		launch.ExecutablePath = playwright.String(cfg.Binary)
	}
	browser, err := bt.Launch(launch)
	if err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	s.onClose(func() error { return browser.Close() })

	pageOpts := playwright.BrowserNewPageOptions{}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		pageOpts.Viewport = &playwright.Size{Width: cfg.WindowWidth, Height: cfg.WindowHeight}
	}
	page, err := browser.NewPage(pageOpts)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	s.Page = pwpage.New(page)
	s.navigate = func(ctx context.Context, url string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := page.Goto(url)
		return err
	}
	return nil
}

func openHTML(s *Session) error {
	doc, err := htmlpage.ParseString("<html><head></head><body></body></html>")
	if err != nil {
		return err
	}
	s.Page = doc
	s.navigate = func(ctx context.Context, url string) error {
		r, err := fetch(ctx, url)
		if err != nil {
			return err
		}
		defer r.Close()
		return doc.Load(r)
	}
	return nil
}

// fetch opens an http(s) URL, a file:// URL or a plain file path.
func fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return os.Open(strings.TrimPrefix(url, "file://"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := webdriver.GetHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}
