package worker

import (
	"context"
	"errors"
	"time"
)

// BackoffFunc maps a zero-based attempt index to the wait before the
// next attempt.
type BackoffFunc func(attempt int) time.Duration

// LinearBackoff waits (attempt+1) * unit: 5s, 10s, 15s... for a 5s unit.
func LinearBackoff(unit time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt+1) * unit
	}
}

// Retry runs op up to maxAttempts times, waiting backoff(attempt) between
// failures. It returns nil on the first success, the last error once
// attempts are exhausted, and the context error if cancelled while
// waiting.
func Retry(ctx context.Context, maxAttempts int, backoff BackoffFunc, op func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		return errors.New("worker: max attempts cant be <= 0")
	}
	if op == nil {
		return errors.New("worker: required operation")
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := op(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxAttempts-1 {
			break
		}

		wait := time.Duration(0)
		if backoff != nil {
			wait = backoff(attempt)
		}
		t := time.NewTimer(wait)
		select {
		case <-t.C:
			t.Stop()
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}
