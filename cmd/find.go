package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wanmail/locate"
	"github.com/wanmail/locate/cdppage"
	"github.com/wanmail/locate/internal/config"
	"github.com/wanmail/locate/internal/observability"
	"github.com/wanmail/locate/internal/session"
	"github.com/wanmail/locate/webdriver"
)

func newFindCmd(a *app) *cobra.Command {
	var (
		htmlFile, url, text string
		click              bool
	)
	cmd := &cobra.Command{
		Use:   "find FIELD",
		Short: "Resolve a field name to a visible, enabled element",
		Long: `Find opens a page, resolves FIELD against it and prints the winning
locator. With --html the file is parsed in-process and no browser is started.
When nothing matches, every attempted locator is printed and the command
fails. --type and --click act on the element once it is found.`,
		Example: `  locate find "Add to Cart" --url https://shop.example/item/42
  locate find Email --html login.html
  locate find Search --backend rod --url https://example.com
  locate find Email --url https://shop.example/login --type me@example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			browser := a.cfg.Browser
			target := url
			if htmlFile != "" {
				browser.Backend = config.BackendHTML
				target = htmlFile
			}
			if target == "" && browser.Backend == config.BackendHTML {
				return errors.New("the html backend needs --html or --url")
			}

			s, err := session.Open(ctx, browser, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := s.Close(); err != nil {
					logger.Warn("Failed to close session.", zap.Error(err))
				}
			}()
			if target != "" {
				if err := s.Navigate(ctx, target); err != nil {
					return err
				}
			}

			opts, err := a.cfg.ResolverOptions(logger)
			if err != nil {
				return err
			}
			r, err := locate.New(s.Page, opts...)
			if err != nil {
				return err
			}

			start := time.Now()
			m, err := r.Resolve(ctx, args[0])
			var nf *locate.NotFoundError
			if errors.As(err, &nf) {
				w := cmd.ErrOrStderr()
				fmt.Fprintf(w, "No element for %q. Attempted:\n", nf.Field)
				for _, line := range nf.Attempted() {
					fmt.Fprintf(w, "  %s\n", line)
				}
				return err
			}
			if err != nil {
				return err
			}

			c := m.Candidate
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n", args[0], c, c.Rule, m.Phase, time.Since(start).Round(time.Millisecond))

			var typed *string
			if cmd.Flags().Changed("type") {
				typed = &text
			}
			if err := act(ctx, m.Element, typed, click); err != nil {
				return fmt.Errorf("field %q: %w", args[0], err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlFile, "html", "", "resolve against a local HTML file without a browser")
	cmd.Flags().StringVar(&url, "url", "", "page to open before resolving")
	cmd.Flags().String("backend", "", "page backend: "+fmt.Sprint(config.Backends))
	cmd.Flags().String("remote", "", "WebDriver or DevTools endpoint")
	cmd.Flags().String("browser", "", "browser name")
	cmd.Flags().Bool("headless", true, "run the browser headless")
	cmd.Flags().Duration("timeout", locate.DefaultPresenceTimeout, "presence wait per candidate")
	cmd.Flags().StringVar(&text, "type", "", "replace the element's value with this text")
	cmd.Flags().BoolVar(&click, "click", false, "click the element")
	cmd.MarkFlagsMutuallyExclusive("html", "url")
	return cmd
}

// act types text into el when text is set, then clicks it when click is.
func act(ctx context.Context, el locate.Element, text *string, click bool) error {
	switch e := el.(type) {
	case webdriver.WebElement:
		if text != nil {
			if err := e.Clear(); err != nil {
				return err
			}
			if err := e.SendKeys(*text); err != nil {
				return err
			}
		}
		if click {
			return e.Click()
		}
	case *cdppage.Element:
		if text != nil {
			if err := e.Type(ctx, *text); err != nil {
				return err
			}
		}
		if click {
			return e.Click(ctx)
		}
	case interface {
		Type(string) error
		Click() error
	}:
		if text != nil {
			if err := e.Type(*text); err != nil {
				return err
			}
		}
		if click {
			return e.Click()
		}
	default:
		if text != nil || click {
			return fmt.Errorf("%T does not support actions", el)
		}
	}
	return nil
}
