package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	breaker, err := NewBreaker(2, time.Minute, func() time.Time { return now })
	require.NoError(t, err)

	require.Equal(t, BreakerClosed, breaker.State())

	breaker.RecordFailure()
	require.Equal(t, BreakerClosed, breaker.State())

	breaker.RecordFailure()
	require.Equal(t, BreakerOpen, breaker.State())
}

func TestBreakerRecoveryCycle(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	breaker, err := NewBreaker(2, time.Minute, func() time.Time { return now })
	require.NoError(t, err)

	breaker.RecordFailure()
	breaker.RecordFailure()
	require.Equal(t, BreakerOpen, breaker.State())

	// Before the recovery timeout every call is rejected.
	now = now.Add(30 * time.Second)
	ok, retryAfter := breaker.Allow()
	require.False(t, ok)
	require.Equal(t, 30*time.Second, retryAfter)
	require.Equal(t, BreakerOpen, breaker.State())

	// At the deadline the first call transitions to HALF_OPEN.
	now = now.Add(31 * time.Second)
	ok, _ = breaker.Allow()
	require.True(t, ok)
	require.Equal(t, BreakerHalfOpen, breaker.State())

	breaker.RecordSuccess()
	require.Equal(t, BreakerClosed, breaker.State())
	require.Equal(t, 0, breaker.Snapshot().ConsecutiveFailures)
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	breaker, err := NewBreaker(1, time.Minute, func() time.Time { return now })
	require.NoError(t, err)

	breaker.RecordFailure()
	require.Equal(t, BreakerOpen, breaker.State())

	now = now.Add(time.Minute)
	ok, _ := breaker.Allow()
	require.True(t, ok)
	require.Equal(t, BreakerHalfOpen, breaker.State())

	breaker.RecordFailure()
	require.Equal(t, BreakerOpen, breaker.State())
}

func TestBreakerSuccessIsIdempotent(t *testing.T) {
	breaker, err := NewBreaker(5, time.Minute, nil)
	require.NoError(t, err)

	before := breaker.Snapshot()
	breaker.RecordSuccess()
	after := breaker.Snapshot()

	require.Equal(t, before.State, after.State)
	require.Equal(t, before.ConsecutiveFailures, after.ConsecutiveFailures)
}

func TestBreakerSuccessResetsAccumulatedFailures(t *testing.T) {
	breaker, err := NewBreaker(5, time.Minute, nil)
	require.NoError(t, err)

	breaker.RecordFailure()
	breaker.RecordFailure()
	require.Equal(t, 2, breaker.Snapshot().ConsecutiveFailures)
	require.Equal(t, BreakerClosed, breaker.State())

	breaker.RecordSuccess()
	require.Equal(t, 0, breaker.Snapshot().ConsecutiveFailures)
}

func TestBreakerRejectsInvalidConfig(t *testing.T) {
	_, err := NewBreaker(0, time.Minute, nil)
	require.Error(t, err)

	_, err = NewBreaker(5, 0, nil)
	require.Error(t, err)
}
