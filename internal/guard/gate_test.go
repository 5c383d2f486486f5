package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testGateConfig() Config {
	return Config{
		Windows: []Window{
			{Name: "15m", MaxRequests: 50, Period: 15 * time.Minute},
			{Name: "1d", MaxRequests: 500, Period: 24 * time.Hour},
		},
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
		Retry: RetryPolicy{
			MaxRetries:    Int(1),
			InitialDelay:  time.Millisecond,
			MaxDelay:      time.Millisecond,
			BackoffFactor: Float64(2),
		},
	}
}

func TestGateSuccessClosesBreaker(t *testing.T) {
	gate, err := New("platform", testGateConfig())
	require.NoError(t, err)

	require.NoError(t, gate.Do(context.Background(), func(ctx context.Context) error {
		return nil
	}))

	snap := gate.Snapshot()
	require.Equal(t, BreakerClosed, snap.Breaker.State)
	require.Equal(t, 0, snap.Breaker.ConsecutiveFailures)
}

func TestGateRateLimited(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := testGateConfig()
	cfg.Windows = []Window{{Name: "burst", MaxRequests: 1, Period: time.Hour}}

	gate, err := New("platform", cfg, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	require.NoError(t, gate.Do(context.Background(), func(ctx context.Context) error {
		return nil
	}))

	err = gate.Do(context.Background(), func(ctx context.Context) error {
		t.Fatal("operation must not run when the quota is exhausted")
		return nil
	})
	require.ErrorIs(t, err, ErrRateLimited)

	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	require.Equal(t, "burst", limited.Window)
	require.Greater(t, limited.RetryAfter, time.Duration(0))

	// Quota exhaustion is not a health failure.
	require.Equal(t, BreakerClosed, gate.Snapshot().Breaker.State)
}

func TestGateOpensAfterRepeatedFailures(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	gate, err := New("platform", testGateConfig(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		err := gate.Do(context.Background(), func(ctx context.Context) error {
			return boom
		})
		require.ErrorIs(t, err, boom)
	}
	require.Equal(t, BreakerOpen, gate.Snapshot().Breaker.State)

	// Short-circuited calls fail fast without invoking the operation.
	err = gate.Do(context.Background(), func(ctx context.Context) error {
		t.Fatal("operation must not run while the breaker is open")
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)

	var open *CircuitOpenError
	require.ErrorAs(t, err, &open)
	require.Greater(t, open.RetryAfter, time.Duration(0))

	// After the cooldown a probe is admitted; success closes the breaker.
	now = now.Add(61 * time.Second)
	require.NoError(t, gate.Do(context.Background(), func(ctx context.Context) error {
		return nil
	}))
	require.Equal(t, BreakerClosed, gate.Snapshot().Breaker.State)
}

func TestGateBreakerCountsOneFailurePerCall(t *testing.T) {
	cfg := testGateConfig()
	cfg.Retry.MaxRetries = Int(3)

	gate, err := New("platform", cfg)
	require.NoError(t, err)

	attempts := 0
	err = gate.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("boom")
	})

	var maxErr *MaxRetriesError
	require.ErrorAs(t, err, &maxErr)
	require.Equal(t, 4, attempts)
	// Four attempts, one recorded breaker failure.
	require.Equal(t, 1, gate.Snapshot().Breaker.ConsecutiveFailures)
}

func TestGateExplicitZeroRetriesNotCoerced(t *testing.T) {
	cfg := testGateConfig()
	cfg.Retry.MaxRetries = Int(0)

	gate, err := New("platform", cfg)
	require.NoError(t, err)

	attempts := 0
	doErr := gate.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("boom")
	})

	// max_retries: 0 means one attempt, not the default of three retries.
	require.Equal(t, 1, attempts)

	var maxErr *MaxRetriesError
	require.ErrorAs(t, doErr, &maxErr)
	require.Equal(t, 1, maxErr.Attempts)
}

func TestGateNonRetryableCountsAsBreakerFailure(t *testing.T) {
	permanent := errors.New("permanent")
	gate, err := New("platform", testGateConfig(),
		WithRetryable(func(err error) bool { return !errors.Is(err, permanent) }))
	require.NoError(t, err)

	attempts := 0
	doErr := gate.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return permanent
	})

	require.ErrorIs(t, doErr, permanent)
	require.Equal(t, 1, attempts)
	require.Equal(t, 1, gate.Snapshot().Breaker.ConsecutiveFailures)
}

func TestGateSharedLimiter(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	limiter, err := NewLimiter([]Window{{Name: "1d", MaxRequests: 1, Period: 24 * time.Hour}}, clock)
	require.NoError(t, err)

	first, err := New("posts", testGateConfig(), WithLimiter(limiter), WithClock(clock))
	require.NoError(t, err)
	second, err := New("replies", testGateConfig(), WithLimiter(limiter), WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, first.Do(context.Background(), func(ctx context.Context) error { return nil }))

	err = second.Do(context.Background(), func(ctx context.Context) error { return nil })
	require.ErrorIs(t, err, ErrRateLimited)
}

// Two gates rebuilt from the same serialized config must make identical
// admission decisions for an identical call sequence.
func TestGateConfigRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cfg := Config{
		Windows:          []Window{{Name: "15m", MaxRequests: 2, Period: 10 * time.Second}},
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
	}

	run := func(gate *Gate) []error {
		results := make([]error, 0, 4)
		for i := 0; i < 3; i++ {
			results = append(results, gate.Do(context.Background(), func(ctx context.Context) error { return nil }))
		}
		now = now.Add(5 * time.Second)
		results = append(results, gate.Do(context.Background(), func(ctx context.Context) error { return nil }))
		return results
	}

	first, err := New("replay", cfg, WithClock(clock))
	require.NoError(t, err)
	got := run(first)

	now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	second, err := New("replay", cfg, WithClock(clock))
	require.NoError(t, err)
	replayed := run(second)

	require.Len(t, replayed, len(got))
	for i := range got {
		require.Equal(t, got[i] == nil, replayed[i] == nil, "decision %d diverged", i)
	}
}

func TestGateRejectsMalformedConfig(t *testing.T) {
	_, err := New("bad", Config{})
	require.Error(t, err)

	_, err = New("bad", Config{Windows: []Window{{Name: "w", MaxRequests: 1, Period: -time.Second}}})
	require.Error(t, err)
}
