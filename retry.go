package rexel

import (
	"context"
	"errors"
	"time"

	"github.com/BrightkyEfoo/rexel-modern-sub000/internal/backoff"
)

// RetryConfig describes a bounded retry. Attempts counts every try,
// including the first.
type RetryConfig struct {
	Attempts           int
	Delay              time.Duration
	ExponentialBackoff bool
	MaxDelay           time.Duration
}

// DefaultRetryConfig is used for whatever a per-call retry leaves unset.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:           3,
		Delay:              time.Second,
		ExponentialBackoff: true,
		MaxDelay:           30 * time.Second,
	}
}

// delayAfter returns the wait following the given number of failures.
func (rc RetryConfig) delayAfter(failures int) time.Duration {
	return backoff.For(rc.ExponentialBackoff, rc.MaxDelay).Delay(failures, rc.Delay)
}

// retryHook observes a scheduled retry.
type retryHook func(nextAttempt int, delay time.Duration, err error)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// Retry runs op until it succeeds or cfg.Attempts tries have failed, and
// returns the last error unchanged. The first try runs immediately.
func Retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error) error {
	_, err := retry(ctx, cfg, sleepContext, nil, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func retry[T any](ctx context.Context, cfg RetryConfig, sleep sleepFunc, hook retryHook, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		out T
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err = op(ctx)
		if err == nil || attempt == attempts || !retryable(err) {
			return out, err
		}

		delay := cfg.delayAfter(attempt)
		if hook != nil {
			hook(attempt+1, delay, err)
		}
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return out, err
		}
	}
	return out, err
}

// retryable filters failures that another attempt cannot fix.
func retryable(err error) bool {
	return !errors.Is(err, ErrUnauthenticated)
}
