package webdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/wanmail/locate"
)

// poll calls cond until it reports true, returns an error, timeout elapses
// or ctx is done. cond is always called at least once.
func poll(ctx context.Context, cond func() (bool, error), timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		done, err := cond()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		left := time.Until(deadline)
		if left <= 0 {
			return fmt.Errorf("webdriver: condition not met after %s: %w", timeout, locate.ErrTimeout)
		}
		timer.Reset(min(interval, left))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}
