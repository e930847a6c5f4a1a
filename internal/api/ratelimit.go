package api

import (
	"fmt"
	"sync"
	"time"
)

const (
	defaultMaxRequests    = 60
	defaultWindowDuration = time.Minute
)

// RateLimiter is a client-side self-throttle bounding outbound calls to at
// most maxRequests per rolling window. It exists to avoid tripping the
// provider's own limiter and to fail fast locally instead of waiting on the
// network. State is private to one Client; accounts never share a budget.
type RateLimiter struct {
	mu             sync.Mutex
	requests       []time.Time
	maxRequests    int
	windowDuration time.Duration
	clock          func() time.Time
}

// NewRateLimiter returns a limiter with the given budget. Non-positive
// arguments fall back to the defaults of 60 requests per 60 seconds.
func NewRateLimiter(maxRequests int, windowDuration time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = defaultMaxRequests
	}
	if windowDuration <= 0 {
		windowDuration = defaultWindowDuration
	}
	return &RateLimiter{
		maxRequests:    maxRequests,
		windowDuration: windowDuration,
	}
}

// CheckLimit admits or rejects one request. It evicts timestamps older
// than the rolling window, then either records now and succeeds, or fails
// with a RATE_LIMITED error whose message carries the wait until the
// oldest recorded request leaves the window, rounded up to whole seconds.
func (r *RateLimiter) CheckLimit() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	kept := r.requests[:0]
	for _, ts := range r.requests {
		if now.Sub(ts) < r.windowDuration {
			kept = append(kept, ts)
		}
	}
	r.requests = kept

	if len(r.requests) >= r.maxRequests {
		wait := r.windowDuration - now.Sub(r.requests[0])
		seconds := int((wait + time.Second - 1) / time.Second)
		return &Error{
			Kind:    KindRateLimited,
			Code:    string(KindRateLimited),
			Message: fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", seconds),
			Status:  0,
		}
	}

	r.requests = append(r.requests, now)
	return nil
}

// Reset clears all recorded timestamps unconditionally. It is meant for
// tests and administrative paths, never the normal request flow.
func (r *RateLimiter) Reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = nil
}

// SetClock overrides the wall clock, for tests.
func (r *RateLimiter) SetClock(clock func() time.Time) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = clock
}

func (r *RateLimiter) now() time.Time {
	if r.clock != nil {
		return r.clock()
	}
	return time.Now()
}
