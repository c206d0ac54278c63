package streamset

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy controls the exponential-backoff-with-jitter schedule used
// by Retry. MaxRetries of 0 means unlimited attempts, bounded only by ctx.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
	MaxDelay   time.Duration
	Jitter     float64
}

// DefaultRetryPolicy doubles Delay after every attempt, capped at MaxDelay,
// with up to 10% random jitter added on top.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 0,
		Delay:      10 * time.Millisecond,
		MaxDelay:   500 * time.Millisecond,
		Jitter:     0.1,
	}
}

// Retry calls fn until it returns a nil error, shouldRetry(err) is false, ctx
// is cancelled, or policy.MaxRetries attempts have been made. Between
// attempts it waits an exponentially growing delay with random jitter,
// the schedule cache.SourceCache.EditWithRetry uses when retrying an Edit
// that failed with a *CoalesceConflictError rather than surfacing it to
// the caller immediately.
func Retry[T any](ctx context.Context, policy RetryPolicy, shouldRetry func(error) bool, fn func() (T, error)) (T, error) {
	delay := policy.Delay
	if delay <= 0 {
		delay = 10 * time.Millisecond
	}
	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Second
	}

	var attempt int
	for {
		result, err := fn()
		if err == nil || !shouldRetry(err) {
			return result, err
		}
		attempt++
		if policy.MaxRetries > 0 && attempt >= policy.MaxRetries {
			return result, err
		}

		jitter := 1.0 + policy.Jitter*rand.Float64()
		wait := time.Duration(float64(delay) * jitter)
		if wait > maxDelay {
			wait = maxDelay
		}
		delay *= 2

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}
}
