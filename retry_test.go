package streamset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	boom := errors.New("transient")
	attempts := 0
	policy := RetryPolicy{MaxRetries: 5, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Jitter: 0}

	result, err := Retry(context.Background(), policy, func(error) bool { return true }, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, boom
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsWhenShouldRetryReturnsFalse(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0
	policy := DefaultRetryPolicy()

	_, err := Retry(context.Background(), policy, func(error) bool { return false }, func() (int, error) {
		attempts++
		return 0, permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	boom := errors.New("boom")
	attempts := 0
	policy := RetryPolicy{MaxRetries: 3, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Jitter: 0}

	_, err := Retry(context.Background(), policy, func(error) bool { return true }, func() (int, error) {
		attempts++
		return 0, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnContextCancellation(t *testing.T) {
	boom := errors.New("boom")
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 0, Delay: 20 * time.Millisecond, MaxDelay: 20 * time.Millisecond, Jitter: 0}

	attempts := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := Retry(ctx, policy, func(error) bool { return true }, func() (int, error) {
		attempts++
		return 0, boom
	})

	assert.ErrorIs(t, err, context.Canceled)
}
