package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/librarydesk/librarydesk-server/internal/store"
)

const (
	defaultMaxAttempts  = 5
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

// retryConfig holds configuration for exponential backoff retry logic.
type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
}

var defaultRetry = retryConfig{
	maxAttempts:  defaultMaxAttempts,
	baseDelay:    defaultBaseDelay,
	jitterFactor: defaultJitterFactor,
}

// retryOnConflict runs fn and reruns it while it fails with store.ErrConflict,
// waiting baseDelay*2^(n-1) plus jitter between attempts.
// Schedule: 0, 10, 20, 40, 80 ms. Every other error is returned at once.
func retryOnConflict(ctx context.Context, cfg retryConfig, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec // jitter needs no crypto randomness

			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, store.ErrConflict) {
			return lastErr
		}
	}

	return lastErr
}
