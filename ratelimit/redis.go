package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbaliyan/hubevent/transport"
	"github.com/redis/go-redis/v9"
)

// Client is the subset of a Redis client used by RedisLimiter.
// *redis.Client and *redis.ClusterClient satisfy it.
type Client interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var allowScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[2])
	end
	if current > tonumber(ARGV[1]) then
		return 0
	end
	return 1
`)

// RedisLimiter is a fixed-window limiter per method stored in Redis, so that
// every client sharing the prefix shares the budget.
//
// Each window is a Redis counter incremented with INCR and expired with
// PEXPIRE. A window may admit up to twice the limit around its boundary.
//
// On Redis errors Allow fails open and logs the failure.
//
// Example:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	limiter := ratelimit.NewRedisLimiter(rdb, "chat-clients", 100, time.Second)
type RedisLimiter struct {
	client Client
	prefix string
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewRedisLimiter creates a Redis-backed limiter admitting limit deliveries
// per window for each method.
func NewRedisLimiter(client Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "hubevent:ratelimit:" + prefix + ":",
		limit:  limit,
		window: window,
		logger: transport.Logger("ratelimit>redis"),
	}
}

func (r *RedisLimiter) key(method string) string {
	return r.prefix + method
}

// Allow returns true if an invocation of method can be delivered right now
func (r *RedisLimiter) Allow(ctx context.Context, method string) bool {
	result, err := allowScript.Run(ctx, r.client, []string{r.key(method)}, r.limit, r.window.Milliseconds()).Int()
	if err != nil {
		r.logger.Warn("rate limit check failed, allowing", "method", method, "error", err)
		return true
	}
	return result == 1
}

// Wait polls Allow until method is admitted or ctx is done
func (r *RedisLimiter) Wait(ctx context.Context, method string) error {
	interval := r.window / time.Duration(max(r.limit, 1))
	for {
		if r.Allow(ctx, method) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Remaining returns the number of deliveries of method left in the current window
func (r *RedisLimiter) Remaining(ctx context.Context, method string) (int, error) {
	val, err := r.client.Get(ctx, r.key(method)).Int()
	if errors.Is(err, redis.Nil) {
		return r.limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return max(r.limit-val, 0), nil
}

// Reset clears the window of method
func (r *RedisLimiter) Reset(ctx context.Context, method string) error {
	return r.client.Del(ctx, r.key(method)).Err()
}

// Compile-time check
var _ Limiter = (*RedisLimiter)(nil)
