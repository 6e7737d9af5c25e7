package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Allow reports whether a request may proceed now and records it if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset refills the bucket
	Reset()
}

// TokenBucket releases one request every interval with up to burst requests
// saved up
type TokenBucket struct {
	interval time.Duration
	burst    int
	limiter  *rate.Limiter
	now      func() time.Time
	mu       sync.Mutex
}

// NewTokenBucket creates a bucket refilled once per interval
func NewTokenBucket(interval time.Duration, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		interval: interval,
		burst:    burst,
		limiter:  rate.NewLimiter(rate.Every(interval), burst),
		now:      time.Now,
	}
}

// PerMinute returns a limiter spreading n requests evenly over a minute, or
// nil when n <= 0. Callers treat a nil Limiter as unlimited.
func PerMinute(n int) Limiter {
	if n <= 0 {
		return nil
	}
	return NewTokenBucket(time.Minute/time.Duration(n), 1)
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}

// Allow takes a token if one is available
func (tb *TokenBucket) Allow() bool {
	return tb.current().AllowN(tb.now(), 1)
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.current().Wait(ctx)
}

// Reset starts over with a full bucket
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(rate.Every(tb.interval), tb.burst)
}
