package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// AutoAdvance moves clock forward by step whenever something is blocked on
// it, so code that sleeps on the fake clock runs without real delays. It stops
// when the test ends.
func AutoAdvance(t *testing.T, clock *clockwork.FakeClock, step time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		for {
			if err := clock.BlockUntilContext(ctx, 1); err != nil {
				return
			}
			clock.Advance(step)
		}
	}()
}
