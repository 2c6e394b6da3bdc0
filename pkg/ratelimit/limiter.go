package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx ends
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = 10 * time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity     int           // Maximum number of tokens
	tokens       int           // Current number of tokens
	refillPeriod time.Duration // Period after which bucket is refilled
	lastRefill   time.Time     // Last time the bucket was refilled
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		timeUntilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if err := sleep(ctx, timeUntilRefill); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// SlidingWindow implements a sliding window rate limiter
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}

	return false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		sw.mu.Lock()
		var timeToWait time.Duration
		if len(sw.requests) > 0 {
			timeToWait = sw.windowSize - time.Since(sw.requests[0])
		}
		sw.mu.Unlock()

		if err := sleep(ctx, timeToWait); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && sw.requests[i].Before(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// Throttle wraps a Limiter with a server-imposed pause. Reddit reports its
// remaining quota in response headers; when the quota runs out the client
// calls PauseUntil with the advertised reset time.
type Throttle struct {
	limiter Limiter

	mu          sync.Mutex
	pausedUntil time.Time
}

// NewThrottle creates a throttle around limiter
func NewThrottle(limiter Limiter) *Throttle {
	return &Throttle{limiter: limiter}
}

// PauseUntil blocks further requests until t. Earlier deadlines never shorten
// an existing pause.
func (t *Throttle) PauseUntil(until time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if until.After(t.pausedUntil) {
		t.pausedUntil = until
	}
}

// Paused reports how long the current pause still lasts
func (t *Throttle) Paused() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d := time.Until(t.pausedUntil); d > 0 {
		return d
	}
	return 0
}

// Allow reports whether a request may proceed right now
func (t *Throttle) Allow() bool {
	if t.Paused() > 0 {
		return false
	}
	return t.limiter.Allow()
}

// Wait blocks until both the pause has elapsed and the limiter admits a request
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		d := t.Paused()
		if d == 0 {
			break
		}
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}
	return t.limiter.Wait(ctx)
}

// Reset clears the pause and the wrapped limiter
func (t *Throttle) Reset() {
	t.mu.Lock()
	t.pausedUntil = time.Time{}
	t.mu.Unlock()
	t.limiter.Reset()
}
