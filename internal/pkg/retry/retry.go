// Package retry provides a bounded retry policy for transactional units
// of work that can fail on transient write conflicts.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptsExhausted wraps the last error once every attempt has failed
// on a retryable condition.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy describes how a unit of work is retried. Only errors the
// Retryable predicate accepts are retried; everything else surfaces
// immediately.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(error) bool
}

// DefaultBackoff is exponential: 100ms * 2^attempt for attempt 0, 1, 2...
func DefaultBackoff(attempt int) time.Duration {
	return 100 * time.Millisecond << attempt
}

// Default returns the standard policy: 3 attempts with exponential
// backoff, retrying errors accepted by retryable.
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     DefaultBackoff,
		Retryable:   retryable,
	}
}

// Do runs fn up to MaxAttempts times. The whole fn is re-executed on each
// attempt, never a partial step. Returns nil on the first success, the
// original error for non-retryable failures, and the last error joined
// with ErrAttemptsExhausted when the budget runs out.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.Backoff(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return lastErr
		}
	}
	return errors.Join(ErrAttemptsExhausted, lastErr)
}
