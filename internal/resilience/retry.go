// Package resilience provides the retry combinator wrapped around every
// external collaborator call made by the pipeline stage executors.
package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior with exponential backoff and jitter.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first
	// try). A value of 1 means no retries. Default: 4.
	MaxAttempts int

	// BaseDelay is the delay before the first retry; it doubles after
	// each attempt. Default: 350ms.
	BaseDelay time.Duration

	// MaxJitter is the upper bound of the random additive jitter applied
	// to each delay, spreading out retries across concurrent runs.
	// Default: 120ms.
	MaxJitter time.Duration

	// AttemptTimeout bounds a single attempt. Zero means no per-attempt
	// timeout beyond what the caller's context carries.
	AttemptTimeout time.Duration

	// ShouldRetry optionally overrides the default transient-error check.
	// If nil, IsRetryable is used.
	ShouldRetry func(err error) bool
}

// DefaultRetryConfig returns the retry configuration used for collaborator
// API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 4,
		BaseDelay:   350 * time.Millisecond,
		MaxJitter:   120 * time.Millisecond,
	}
}

// ExhaustedError is returned after all attempts of a labeled operation
// failed with retryable errors. It is always fatal and must never be
// silently swallowed by callers.
type ExhaustedError struct {
	Label    string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Label, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do re-invokes fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. Only rate limiting (429), service unavailable
// (503), connection resets, and timeouts are retried; everything else
// propagates immediately. On exhaustion the last error is wrapped in an
// ExhaustedError tagged with label.
func Do[T any](ctx context.Context, cfg RetryConfig, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := runAttempt(ctx, cfg, fn)
		if err == nil {
			return val, nil
		}
		lastErr = err

		// Caller cancellation is never retried.
		if ctx.Err() != nil {
			return zero, lastErr
		}

		if !shouldRetry(lastErr) {
			return zero, lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(attempt, cfg)
		zap.L().Warn("retrying operation",
			zap.String("operation", label),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, &ExhaustedError{Label: label, Attempts: cfg.MaxAttempts, Err: lastErr}
}

func runAttempt[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.AttemptTimeout > 0 {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout)
		defer cancel()
		return fn(attemptCtx)
	}
	return fn(ctx)
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 350 * time.Millisecond
	}
	if cfg.MaxJitter < 0 {
		cfg.MaxJitter = 0
	}
	return cfg
}

// backoffDelay doubles the base delay per completed attempt and adds
// random jitter in [0, MaxJitter).
func backoffDelay(attempt int, cfg RetryConfig) time.Duration {
	delay := cfg.BaseDelay << (attempt - 1)
	if cfg.MaxJitter > 0 {
		delay += time.Duration(rand.Int64N(int64(cfg.MaxJitter)))
	}
	return delay
}
