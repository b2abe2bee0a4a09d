package agent

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how often a failing generation call is repeated.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt
	Backoff    time.Duration // wait between attempts; zero means none
	// OnFailure is called after every failed attempt, attempt counting from 1.
	OnFailure func(attempt int, err error)
}

// DefaultRetryPolicy allows 3 attempts in total.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 2}

// ErrNoAttempts is returned when a policy permits no attempts at all.
var ErrNoAttempts = errors.New("retry policy allowed no attempts")

// Retry runs fn until it succeeds or the policy is exhausted, returning the
// last error. A cancelled context stops further attempts.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	lastErr := ErrNoAttempts
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if policy.OnFailure != nil {
			policy.OnFailure(attempt+1, err)
		}
		if policy.Backoff > 0 && attempt < policy.MaxRetries {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(policy.Backoff):
			}
		}
	}
	return zero, lastErr
}
