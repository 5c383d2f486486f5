// Package guard provides the composite admission layer placed in front of
// every outbound call to a quota-limited external API: a multi-window token
// bucket, a circuit breaker, and a retry executor composed into a single call
// gate. The gate performs no I/O and no logging; side effects are observable
// only through the mutated bucket and breaker state and whatever the wrapped
// operation itself does.
package guard

import (
	"context"
	"fmt"
	"time"
)

// Config describes a gate. It decodes from config files via mapstructure, so
// a serialized gate reconstructs with identical admission behavior.
type Config struct {
	Windows          []Window      `mapstructure:"windows" json:"windows"`
	FailureThreshold int           `mapstructure:"failure_threshold" json:"failure_threshold"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout" json:"recovery_timeout"`
	Retry            RetryPolicy   `mapstructure:"retry" json:"retry"`
}

// withDefaults fills unset fields with the documented defaults.
func (c Config) withDefaults() Config {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout == 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.Retry.MaxRetries == nil {
		c.Retry.MaxRetries = Int(3)
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = time.Second
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 60 * time.Second
	}
	if c.Retry.BackoffFactor == nil {
		c.Retry.BackoffFactor = Float64(2)
	}
	return c
}

// Option customizes gate construction.
type Option func(*options)

type options struct {
	clock     func() time.Time
	retryable Retryable
	limiter   *Limiter
	breaker   *Breaker
}

// WithClock injects a time source for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithRetryable overrides the default retryable-error predicate.
func WithRetryable(fn Retryable) Option {
	return func(o *options) { o.retryable = fn }
}

// WithLimiter shares an existing limiter between gates, for call sites that
// draw from the same quota (e.g. one API credential behind several clients).
func WithLimiter(l *Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithBreaker shares an existing breaker between gates.
func WithBreaker(b *Breaker) Option {
	return func(o *options) { o.breaker = b }
}

// Snapshot is a point-in-time view of a gate's internal state.
type Snapshot struct {
	Name    string          `json:"name"`
	Windows []WindowState   `json:"windows"`
	Breaker BreakerSnapshot `json:"breaker"`
}

// Gate combines the limiter, breaker and retrier into the single entry point
// collaborators call. Gates are constructed once and passed explicitly to
// call sites; there is no shared state between independently constructed
// gates unless wired through WithLimiter/WithBreaker.
type Gate struct {
	name    string
	limiter *Limiter
	breaker *Breaker
	retrier *Retrier
}

// New validates cfg, applies defaults, and builds a gate. Malformed
// configuration fails here, before any call is made.
func New(name string, cfg Config, opts ...Option) (*Gate, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.withDefaults()

	limiter := o.limiter
	if limiter == nil {
		var err error
		limiter, err = NewLimiter(cfg.Windows, o.clock)
		if err != nil {
			return nil, fmt.Errorf("gate %s: %w", name, err)
		}
	}

	breaker := o.breaker
	if breaker == nil {
		var err error
		breaker, err = NewBreaker(cfg.FailureThreshold, cfg.RecoveryTimeout, o.clock)
		if err != nil {
			return nil, fmt.Errorf("gate %s: %w", name, err)
		}
	}

	retrier, err := NewRetrier(cfg.Retry, o.retryable)
	if err != nil {
		return nil, fmt.Errorf("gate %s: %w", name, err)
	}

	return &Gate{
		name:    name,
		limiter: limiter,
		breaker: breaker,
		retrier: retrier,
	}, nil
}

// Name returns the gate identifier.
func (g *Gate) Name() string {
	return g.name
}

// Do runs op through the gate: breaker check, then quota check, then the
// retry executor. The overall outcome is fed back into the breaker: one
// success or one failure per Do call, regardless of how many attempts the
// retrier made. Admission failures (open breaker, exhausted quota) do not
// count as breaker failures and consume no quota.
func (g *Gate) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if ok, retryAfter := g.breaker.Allow(); !ok {
		return &CircuitOpenError{RetryAfter: retryAfter}
	}

	if ok, window, retryAfter := g.limiter.Authorize(); !ok {
		return &RateLimitedError{Window: window, RetryAfter: retryAfter}
	}

	if err := g.retrier.Do(ctx, op); err != nil {
		g.breaker.RecordFailure()
		return err
	}

	g.breaker.RecordSuccess()
	return nil
}

// Snapshot exposes limiter and breaker state for the status endpoint and the
// admin CLI.
func (g *Gate) Snapshot() Snapshot {
	return Snapshot{
		Name:    g.name,
		Windows: g.limiter.Snapshot(),
		Breaker: g.breaker.Snapshot(),
	}
}
