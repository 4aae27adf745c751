package resilience

import (
	"context"
	"time"
)

// Backoff returns the delay before retry attempt n (zero-based):
// base·2ⁿ capped at max. Overflowed shifts clamp to max.
func Backoff(base time.Duration, attempt int, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempt < 0 {
		attempt = 0
	}
	d := base << uint(attempt)
	if d <= 0 || d > max {
		return max
	}
	return d
}

// Sleep waits for d unless ctx ends first, in which case it returns
// the context's error. Retry loops use it so a cancelled run never
// sits out a backoff window.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
