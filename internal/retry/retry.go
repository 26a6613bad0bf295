// Package retry runs an operation with exponential backoff.
//
// Two call sites shape its design: transient API failures retried with a
// growing backoff, and the cross-device login poll, which sets MaxBackoff
// equal to InitialBackoff to turn the schedule into a fixed cadence.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config defines the retry schedule. The zero value is not usable;
// MaxRetries and InitialBackoff must be set.
type Config struct {
	// MaxRetries bounds how many times the function is called.
	MaxRetries int

	// InitialBackoff is the delay before the second attempt. Each further
	// attempt doubles it.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay. Zero means uncapped. Setting it equal to
	// InitialBackoff yields a fixed polling cadence.
	MaxBackoff time.Duration

	// Jitter adds randomness proportional to the attempt number (0.0 to
	// 1.0) so concurrent clients don't retry in lockstep.
	Jitter float64
}

// ShouldRetryFunc reports whether an error is worth another attempt. A nil
// ShouldRetryFunc retries every error.
type ShouldRetryFunc func(error) bool

// Do calls fn until it succeeds, an error is deemed non-retryable, the
// context is done, or MaxRetries attempts are exhausted. Exhaustion wraps
// the last error, so errors.Is still matches sentinel errors through it.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffFor(cfg, attempt)):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// backoffFor computes the delay before the given attempt: exponential
// growth, capped at MaxBackoff, plus jitter that grows with the attempt.
func backoffFor(cfg Config, attempt int) time.Duration {
	multiplier := math.Pow(2, float64(attempt-1))
	backoff := time.Duration(multiplier * float64(cfg.InitialBackoff))

	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	if cfg.Jitter > 0 {
		jitterAmount := float64(backoff) * cfg.Jitter * float64(attempt) / float64(cfg.MaxRetries)
		backoff += time.Duration(jitterAmount)
	}

	return backoff
}
