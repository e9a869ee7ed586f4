// Package shared holds latency helpers used by the simulated collaborators.
package shared

import (
	"context"
	"time"
)

// SleepOrDone waits for d or returns ctx.Err() as soon as ctx is done.
// A non-positive d returns immediately, even on a finished context.
func SleepOrDone(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
