package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestRetrier(t *testing.T, policy RetryPolicy, retryable Retryable) (*Retrier, *[]time.Duration) {
	t.Helper()

	retrier, err := NewRetrier(policy, retryable)
	require.NoError(t, err)

	var slept []time.Duration
	retrier.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return retrier, &slept
}

func TestRetrierExhaustsAttempts(t *testing.T) {
	retrier, slept := newTestRetrier(t, RetryPolicy{
		MaxRetries:    Int(3),
		InitialDelay:  time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: Float64(2),
	}, nil)

	attempts := 0
	failure := errors.New("boom")
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return failure
	})

	require.Equal(t, 4, attempts)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *slept)

	var maxErr *MaxRetriesError
	require.ErrorAs(t, err, &maxErr)
	require.Equal(t, 4, maxErr.Attempts)
	require.ErrorIs(t, err, failure)
}

func TestRetrierDelayCappedAtMax(t *testing.T) {
	retrier, slept := newTestRetrier(t, RetryPolicy{
		MaxRetries:    Int(4),
		InitialDelay:  time.Second,
		MaxDelay:      3 * time.Second,
		BackoffFactor: Float64(2),
	}, nil)

	_ = retrier.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})

	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}, *slept)
}

func TestRetrierSucceedsMidway(t *testing.T) {
	retrier, slept := newTestRetrier(t, RetryPolicy{
		MaxRetries:    Int(3),
		InitialDelay:  time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: Float64(2),
	}, nil)

	attempts := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Len(t, *slept, 2)
}

func TestRetrierNonRetryablePropagatesImmediately(t *testing.T) {
	permanent := errors.New("permanent")
	retrier, slept := newTestRetrier(t, RetryPolicy{
		MaxRetries:    Int(3),
		InitialDelay:  time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: Float64(2),
	}, func(err error) bool { return !errors.Is(err, permanent) })

	attempts := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, attempts)
	require.Empty(t, *slept)

	var maxErr *MaxRetriesError
	require.False(t, errors.As(err, &maxErr))
}

func TestRetrierExplicitZeroRetriesSingleAttempt(t *testing.T) {
	retrier, slept := newTestRetrier(t, RetryPolicy{
		MaxRetries:    Int(0),
		InitialDelay:  time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: Float64(2),
	}, nil)

	attempts := 0
	err := retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("boom")
	})

	require.Equal(t, 1, attempts)
	require.Empty(t, *slept)

	var maxErr *MaxRetriesError
	require.ErrorAs(t, err, &maxErr)
	require.Equal(t, 1, maxErr.Attempts)
}

func TestRetrierNilFieldsUseDefaults(t *testing.T) {
	retrier, slept := newTestRetrier(t, RetryPolicy{
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
	}, nil)

	attempts := 0
	_ = retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("boom")
	})

	require.Equal(t, 4, attempts)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, *slept)
}

func TestRetrierStopsOnCancelledContext(t *testing.T) {
	retrier, err := NewRetrier(RetryPolicy{
		MaxRetries:    Int(3),
		InitialDelay:  time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: Float64(2),
	}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	doErr := retrier.Do(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("boom")
	})

	require.ErrorIs(t, doErr, context.Canceled)
	require.Equal(t, 1, attempts)
}

func TestDefaultRetryableClassification(t *testing.T) {
	require.False(t, DefaultRetryable(nil))
	require.False(t, DefaultRetryable(&CircuitOpenError{}))
	require.False(t, DefaultRetryable(&RateLimitedError{Window: "1d"}))
	require.False(t, DefaultRetryable(context.Canceled))
	require.True(t, DefaultRetryable(errors.New("connection reset")))
}

func TestRetrierRejectsInvalidPolicy(t *testing.T) {
	cases := []RetryPolicy{
		{MaxRetries: Int(-1), InitialDelay: time.Second, MaxDelay: time.Minute, BackoffFactor: Float64(2)},
		{MaxRetries: Int(3), InitialDelay: 0, MaxDelay: time.Minute, BackoffFactor: Float64(2)},
		{MaxRetries: Int(3), InitialDelay: time.Minute, MaxDelay: time.Second, BackoffFactor: Float64(2)},
		{MaxRetries: Int(3), InitialDelay: time.Second, MaxDelay: time.Minute, BackoffFactor: Float64(1)},
	}
	for _, policy := range cases {
		_, err := NewRetrier(policy, nil)
		require.Error(t, err)
	}
}
