package adapter

import (
	"context"
	"fmt"
	"time"
)

// DefaultBackoff is the delay before the first retry. Each later retry
// doubles it.
const DefaultBackoff = 500 * time.Millisecond

// RetryPolicy controls Retry.
type RetryPolicy struct {
	// Retries is the number of attempts after the first.
	Retries int
	// Backoff is the delay before the first retry (default DefaultBackoff).
	Backoff time.Duration
	// Permanent reports errors that must not be retried. Nil retries all.
	Permanent func(error) bool
}

// Retry calls fn until it succeeds, returns a permanent error, the
// attempts run out, or ctx is done. The label prefixes returned errors.
func Retry(ctx context.Context, label string, p RetryPolicy, fn func(context.Context) error) error {
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	attempts := 1 + max(p.Retries, 0)

	var lastErr error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", label, err)
		}

		if i > 0 {
			timer := time.NewTimer(backoff << (i - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: context canceled during backoff: %w", label, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Permanent != nil && p.Permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", label, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", label, attempts, lastErr)
}
