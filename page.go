package locate

import (
	"context"
	"time"
)

// Element is an opaque handle to a node on a live page. Backends return
// their own concrete types; callers type-assert to drive them.
type Element interface {
	// IsDisplayed reports whether the element is rendered and visible.
	IsDisplayed() (bool, error)
	// IsEnabled reports whether the element accepts interaction.
	IsEnabled() (bool, error)
}

// Page is the DOM-query capability a Resolver works against.
//
// Implementations report a detached element with an error wrapping ErrStale
// and an expired presence wait with an error wrapping ErrTimeout.
type Page interface {
	// QueryAll returns every element currently matching loc, in document
	// order. It does not wait.
	QueryAll(ctx context.Context, loc Locator) ([]Element, error)
	// WaitForPresence blocks until at least one element matches loc or the
	// timeout expires, and returns the first match.
	WaitForPresence(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)
}
