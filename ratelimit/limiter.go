// Package ratelimit throttles the delivery of incoming invocations per method.
//
// A connection that forwards server-pushed calls to a hub can be flooded by a
// chatty method. A Limiter decides, per method name, whether the next
// invocation may be delivered now.
//
// Two implementations are provided:
//   - TokenBucket: local, in-memory token bucket per method (golang.org/x/time/rate)
//   - RedisLimiter: fixed window per method shared by every client using the
//     same Redis key prefix
//
// Basic usage:
//
//	// 50 deliveries per second per method, bursts of 10
//	limiter := ratelimit.NewTokenBucket(50, 10,
//	    ratelimit.WithMethodLimit("typing", 5, 1),
//	)
//
//	conn, err := bridge.Connect(ctx, t, "conn-1", hub, bridge.WithLimiter(limiter))
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter decides whether an invocation of method may be delivered.
//
// All implementations must be safe for concurrent use.
type Limiter interface {
	// Allow reports whether an invocation of method can be delivered right
	// now. This is a non-blocking check.
	Allow(ctx context.Context, method string) bool

	// Wait blocks until an invocation of method is allowed or ctx is done.
	Wait(ctx context.Context, method string) error
}

// bucketLimit is the rate and burst of one method
type bucketLimit struct {
	rps   float64
	burst int
}

// TokenBucketOption configures a TokenBucket
type TokenBucketOption func(*TokenBucket)

// WithMethodLimit overrides the default rate and burst for one method
func WithMethodLimit(method string, rps float64, burst int) TokenBucketOption {
	return func(t *TokenBucket) {
		t.overrides[method] = bucketLimit{rps: rps, burst: burst}
	}
}

// TokenBucket keeps one token bucket per method, created on first use.
//
// Tokens are added at the configured rate, at most burst tokens accumulate and
// each delivery consumes one token.
type TokenBucket struct {
	def       bucketLimit
	overrides map[string]bucketLimit

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewTokenBucket creates a per-method token bucket limiter with rps
// deliveries per second and the given burst for every method without an
// override.
func NewTokenBucket(rps float64, burst int, opts ...TokenBucketOption) *TokenBucket {
	t := &TokenBucket{
		def:       bucketLimit{rps: rps, burst: burst},
		overrides: make(map[string]bucketLimit),
		buckets:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TokenBucket) bucket(method string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.buckets[method]; ok {
		return b
	}
	l, ok := t.overrides[method]
	if !ok {
		l = t.def
	}
	b := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	t.buckets[method] = b
	return b
}

// Allow consumes one token of method's bucket if available
func (t *TokenBucket) Allow(ctx context.Context, method string) bool {
	return t.bucket(method).Allow()
}

// Wait blocks until method's bucket has a token or ctx is done
func (t *TokenBucket) Wait(ctx context.Context, method string) error {
	return t.bucket(method).Wait(ctx)
}

// SetLimit updates the rate of one method.
func (t *TokenBucket) SetLimit(method string, rps float64) {
	t.bucket(method).SetLimit(rate.Limit(rps))
}

// Limit returns the current rate of method in deliveries per second
func (t *TokenBucket) Limit(method string) float64 {
	return float64(t.bucket(method).Limit())
}

// Burst returns the current burst size of method
func (t *TokenBucket) Burst(method string) int {
	return t.bucket(method).Burst()
}

// Compile-time check
var _ Limiter = (*TokenBucket)(nil)
