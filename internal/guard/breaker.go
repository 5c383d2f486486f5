package guard

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState enumerates circuit breaker states.
type BreakerState string

const (
	BreakerClosed   BreakerState = "CLOSED"
	BreakerOpen     BreakerState = "OPEN"
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// BreakerSnapshot is a point-in-time view of breaker state.
type BreakerSnapshot struct {
	State               BreakerState  `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	FailureThreshold    int           `json:"failure_threshold"`
	LastFailureAt       *time.Time    `json:"last_failure_at,omitempty"`
	RecoveryTimeout     time.Duration `json:"recovery_timeout"`
}

// Breaker tracks consecutive failures of an operation class and short-circuits
// calls once the threshold is reached. After the recovery timeout the next
// Allow transitions to HALF_OPEN, letting probe calls through; a successful
// probe closes the breaker, a failed one reopens it.
//
// HALF_OPEN does not limit concurrent probes. Callers that need a single probe
// must serialize around the breaker themselves.
type Breaker struct {
	mu               sync.Mutex
	state            BreakerState
	failures         int
	failureThreshold int
	recoveryTimeout  time.Duration
	lastFailureAt    time.Time
	clock            func() time.Time
}

// NewBreaker returns a closed breaker.
func NewBreaker(failureThreshold int, recoveryTimeout time.Duration, clock func() time.Time) (*Breaker, error) {
	if failureThreshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive")
	}
	if recoveryTimeout <= 0 {
		return nil, fmt.Errorf("recovery timeout must be positive")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Breaker{
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		clock:            clock,
	}, nil
}

// Allow reports whether a call may proceed. When the breaker is OPEN and the
// recovery timeout has elapsed since the last failure, the breaker moves to
// HALF_OPEN as a side effect and the call is admitted as a probe. On denial
// the remaining cooldown estimate is returned.
func (b *Breaker) Allow() (ok bool, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		elapsed := b.clock().Sub(b.lastFailureAt)
		if elapsed >= b.recoveryTimeout {
			b.state = BreakerHalfOpen
			return true, 0
		}
		return false, b.recoveryTimeout - elapsed
	default:
		// CLOSED and HALF_OPEN both admit the call.
		return true, 0
	}
}

// RecordSuccess resets the failure count and closes the breaker. Calling it on
// an already closed breaker with zero failures is a no-op.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = BreakerClosed
}

// RecordFailure increments the consecutive failure count and opens the breaker
// once the threshold is reached. Failures below threshold accumulate while the
// breaker stays CLOSED.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureAt = b.clock()
	if b.failures >= b.failureThreshold {
		b.state = BreakerOpen
	}
}

// State returns the current breaker state without side effects.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns the breaker's current state for observability.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := BreakerSnapshot{
		State:               b.state,
		ConsecutiveFailures: b.failures,
		FailureThreshold:    b.failureThreshold,
		RecoveryTimeout:     b.recoveryTimeout,
	}
	if !b.lastFailureAt.IsZero() {
		at := b.lastFailureAt
		snap.LastFailureAt = &at
	}
	return snap
}
