package guard

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is checks. The typed errors below wrap these so
// callers can branch on the class without losing the detail fields.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// RateLimitedError reports an exhausted quota window. Callers should back off
// until RetryAfter elapses; this is a quota condition, not a health condition.
type RateLimitedError struct {
	Window     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e == nil {
		return "rate limit exceeded"
	}
	return fmt.Sprintf("rate limit exceeded for %s window (retry after %s)", e.Window, e.RetryAfter)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// CircuitOpenError reports a short-circuited call. RetryAfter estimates the
// remaining cooldown before the breaker permits a probe.
type CircuitOpenError struct {
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	if e == nil {
		return "circuit breaker is open"
	}
	return fmt.Sprintf("circuit breaker is open (retry after %s)", e.RetryAfter)
}

func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// MaxRetriesError wraps the last error after every retry attempt failed.
type MaxRetriesError struct {
	Attempts int
	Cause    error
}

func (e *MaxRetriesError) Error() string {
	if e == nil {
		return "max retries exceeded"
	}
	return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *MaxRetriesError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
