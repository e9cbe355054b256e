// Package retry runs an operation a bounded number of times, each attempt with
// a freshly generated token, retrying only on a caller-classified error.
package retry

import (
	"context"
	"errors"
	"fmt"
)

// ErrExhausted is returned (wrapping the last error) when every attempt failed
// with a retryable error.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes one bounded retry loop.
type Policy[T any] struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Fresh produces the token for the next attempt.
	Fresh func() (T, error)
	// Retryable decides whether err was caused by the token and the attempt
	// should be repeated. Any other error is returned immediately.
	Retryable func(err error) bool
	// OnRetry is called before each repeated attempt.
	OnRetry func(attempt int, err error)
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// attempts are used up.
func Do[T, R any](ctx context.Context, p Policy[T], op func(ctx context.Context, token T) (R, error)) (R, error) {
	var zero R
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		token, err := p.Fresh()
		if err != nil {
			return zero, fmt.Errorf("generate token: %w", err)
		}

		res, err := op(ctx, token)
		if err == nil {
			return res, nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return zero, err
		}

		lastErr = err
		if attempt < attempts && p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
