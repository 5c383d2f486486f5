package guard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy configures the retry executor. MaxRetries and BackoffFactor
// are pointers so an explicit zero in config stays distinguishable from an
// unset field; nil falls back to the documented default.
type RetryPolicy struct {
	MaxRetries    *int          `mapstructure:"max_retries" json:"max_retries,omitempty"`
	InitialDelay  time.Duration `mapstructure:"initial_delay" json:"initial_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay" json:"max_delay"`
	BackoffFactor *float64      `mapstructure:"backoff_factor" json:"backoff_factor,omitempty"`
}

// Int returns a pointer to v, for RetryPolicy literals.
func Int(v int) *int { return &v }

// Float64 returns a pointer to v, for RetryPolicy literals.
func Float64(v float64) *float64 { return &v }

// Retryable classifies which errors are worth retrying.
type Retryable func(error) bool

// DefaultRetryable retries everything except guard admission errors and
// context cancellation. Retrying against an open breaker or an exhausted
// quota would only busy-loop.
func DefaultRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrRateLimited):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return true
	}
}

// Retrier executes operations with exponential backoff. Delays are
// deterministic (no jitter); callers fanning out at scale should add jitter
// upstream to avoid synchronized retries.
type Retrier struct {
	maxRetries    int
	initialDelay  time.Duration
	maxDelay      time.Duration
	backoffFactor float64
	retryable     Retryable
	sleep         func(ctx context.Context, d time.Duration) error
}

// NewRetrier validates the policy and returns an executor. Nil MaxRetries
// defaults to 3; nil BackoffFactor defaults to 2.
func NewRetrier(policy RetryPolicy, retryable Retryable) (*Retrier, error) {
	maxRetries := 3
	if policy.MaxRetries != nil {
		maxRetries = *policy.MaxRetries
	}
	backoffFactor := 2.0
	if policy.BackoffFactor != nil {
		backoffFactor = *policy.BackoffFactor
	}

	if maxRetries < 0 {
		return nil, fmt.Errorf("max_retries must not be negative")
	}
	if policy.InitialDelay <= 0 {
		return nil, fmt.Errorf("initial_delay must be positive")
	}
	if policy.MaxDelay < policy.InitialDelay {
		return nil, fmt.Errorf("max_delay must be at least initial_delay")
	}
	if backoffFactor <= 1 {
		return nil, fmt.Errorf("backoff_factor must be greater than 1")
	}
	if retryable == nil {
		retryable = DefaultRetryable
	}
	return &Retrier{
		maxRetries:    maxRetries,
		initialDelay:  policy.InitialDelay,
		maxDelay:      policy.MaxDelay,
		backoffFactor: backoffFactor,
		retryable:     retryable,
		sleep:         sleepContext,
	}, nil
}

// Do invokes op up to MaxRetries+1 times. Non-retryable errors propagate
// immediately without consuming an attempt budget. When every attempt fails
// the last error is wrapped in MaxRetriesError. The context is checked before
// each attempt and before each backoff sleep; no lock is held while sleeping.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	delay := r.initialDelay
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !r.retryable(err) {
			return err
		}
		lastErr = err

		if attempt == r.maxRetries {
			break
		}
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
		delay = min(time.Duration(float64(delay)*r.backoffFactor), r.maxDelay)
	}

	return &MaxRetriesError{Attempts: r.maxRetries + 1, Cause: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
