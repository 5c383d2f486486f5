package guard

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Window configures a single quota window.
type Window struct {
	Name        string        `mapstructure:"name" json:"name"`
	MaxRequests int           `mapstructure:"max_requests" json:"max_requests"`
	Period      time.Duration `mapstructure:"period" json:"period"`
}

// WindowState is a point-in-time snapshot of one window.
type WindowState struct {
	Name       string        `json:"name"`
	Capacity   int           `json:"capacity"`
	Tokens     float64       `json:"tokens"`
	LastRefill time.Time     `json:"last_refill"`
	Period     time.Duration `json:"period"`
}

type window struct {
	name       string
	capacity   float64
	period     time.Duration
	tokens     float64
	lastRefill time.Time
}

// Limiter is a token bucket tracking consumption against several independent
// quota windows at once. A request is admitted only when every window has at
// least one token, and then consumes one token from each; an admitted request
// counts against all quotas or none.
type Limiter struct {
	mu      sync.Mutex
	windows []*window
	clock   func() time.Time
}

// NewLimiter validates the window set and returns a limiter with full buckets.
func NewLimiter(windows []Window, clock func() time.Time) (*Limiter, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("at least one quota window is required")
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	now := clock()
	seen := make(map[string]bool, len(windows))
	built := make([]*window, 0, len(windows))
	for _, w := range windows {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			return nil, fmt.Errorf("quota window name is required")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate quota window: %s", name)
		}
		seen[name] = true
		if w.MaxRequests <= 0 {
			return nil, fmt.Errorf("window %s: max_requests must be positive", name)
		}
		if w.Period <= 0 {
			return nil, fmt.Errorf("window %s: period must be positive", name)
		}
		built = append(built, &window{
			name:       name,
			capacity:   float64(w.MaxRequests),
			period:     w.Period,
			tokens:     float64(w.MaxRequests),
			lastRefill: now,
		})
	}

	return &Limiter{windows: built, clock: clock}, nil
}

// Authorize refills every window, then admits the request only if all windows
// hold at least one token. Admission deducts one token from each window; a
// denied request deducts nothing. The check-then-deduct sequence is atomic
// with respect to concurrent callers.
//
// On denial the first exhausted window's name is returned along with an
// estimate of how long until that window refills one token.
func (l *Limiter) Authorize() (ok bool, exhausted string, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	for _, w := range l.windows {
		w.refill(now)
	}

	for _, w := range l.windows {
		if w.tokens < 1 {
			return false, w.name, w.retryAfter()
		}
	}

	for _, w := range l.windows {
		w.tokens--
	}
	return true, "", 0
}

// Snapshot returns the current state of every window, refilled to now.
func (l *Limiter) Snapshot() []WindowState {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	states := make([]WindowState, 0, len(l.windows))
	for _, w := range l.windows {
		w.refill(now)
		states = append(states, WindowState{
			Name:       w.name,
			Capacity:   int(w.capacity),
			Tokens:     w.tokens,
			LastRefill: w.lastRefill,
			Period:     w.period,
		})
	}
	return states
}

// refill adds tokens for the elapsed time, clamped to capacity. Must be
// called with l.mu held.
func (w *window) refill(now time.Time) {
	elapsed := now.Sub(w.lastRefill)
	if elapsed <= 0 {
		return
	}
	w.tokens += elapsed.Seconds() * w.capacity / w.period.Seconds()
	if w.tokens > w.capacity {
		w.tokens = w.capacity
	}
	w.lastRefill = now
}

// retryAfter estimates the wait until one full token is available.
func (w *window) retryAfter() time.Duration {
	if w.tokens >= 1 {
		return 0
	}
	needed := 1 - w.tokens
	seconds := needed * w.period.Seconds() / w.capacity
	return time.Duration(seconds * float64(time.Second))
}
