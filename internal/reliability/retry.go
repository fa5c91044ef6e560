// Package reliability provides retry and backup services.
package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
)

// RetryPolicy is a fixed-delay retry budget
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is 4 attempts spaced 5 seconds apart
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 4, Delay: 5 * time.Second}
}

// Retry calls fn until it succeeds, the attempts are exhausted or ctx is done.
// The delay between attempts is constant. The last error is returned wrapped.
func Retry[T any](ctx context.Context, policy RetryPolicy, log zerolog.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	b := &backoff.Backoff{
		Min:    policy.Delay,
		Max:    policy.Delay,
		Factor: 1,
		Jitter: false,
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		wait := b.Duration()
		log.Warn().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Call failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}
