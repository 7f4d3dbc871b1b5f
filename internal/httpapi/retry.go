package httpapi

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"libcirc/lending"
)

const (
	retryMaxAttempts  = 4
	retryBaseDelay    = 20 * time.Millisecond
	retryJitterFactor = 0.3
)

// retryOnOperationFailed executes fn, re-attempting with exponential backoff
// when the engine reports a store-level failure. The engine guarantees such
// failures had no partial effect, so re-running the whole command from
// scratch is safe. Domain rejections (not-found, validation, conflict) fail
// fast: retrying them cannot change the outcome.
//
// Schedule: 0, 20ms, 40ms, 80ms (plus up to 30% jitter).
func retryOnOperationFailed(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<(attempt-1))
			delay += time.Duration(rand.Float64() * float64(delay) * retryJitterFactor)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !errors.Is(lastErr, lending.ErrOperationFailed) {
			return lastErr
		}
	}

	return lastErr
}
