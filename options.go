package locate

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPresenceTimeout bounds each Phase 1 wait.
	DefaultPresenceTimeout = 5 * time.Second
	// DefaultStaleRetries is how many times a Phase 2 candidate is
	// re-queried after a stale element.
	DefaultStaleRetries = 1
)

// Option configures a Resolver.
type Option func(*Resolver) error

// WithPresenceTimeout sets the Phase 1 wait per candidate.
func WithPresenceTimeout(d time.Duration) Option {
	return func(r *Resolver) error {
		if d <= 0 {
			return fmt.Errorf("presence timeout must be positive, got %s", d)
		}
		r.presenceTimeout = d
		return nil
	}
}

// WithStaleRetries sets the Phase 2 re-query budget per candidate.
func WithStaleRetries(n int) Option {
	return func(r *Resolver) error {
		if n < 0 {
			return fmt.Errorf("stale retries must not be negative, got %d", n)
		}
		r.staleRetries = n
		return nil
	}
}

// WithGenerator replaces the default candidate generator.
func WithGenerator(g *Generator) Option {
	return func(r *Resolver) error {
		if g == nil {
			return errors.New("nil generator")
		}
		r.gen = g
		return nil
	}
}

// WithLogger sets the logger for resolution events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) error {
		if l == nil {
			l = zap.NewNop()
		}
		r.log = l
		return nil
	}
}
