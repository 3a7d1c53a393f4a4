package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of a Redis client used by RedisStore.
// *redis.Client and *redis.ClusterClient satisfy it.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// DefaultRedisPrefix is the key prefix of a RedisStore
const DefaultRedisPrefix = "hubevent:dedup:"

// RedisStore implements Store with Redis SET NX and an expiry, shared by
// every client using the same prefix.
type RedisStore struct {
	client RedisClient
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis store remembering ids for ttl
func NewRedisStore(client RedisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		prefix: DefaultRedisPrefix,
	}
}

// WithPrefix returns a copy of the store using prefix for its keys
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	c := *s
	c.prefix = prefix
	return &c
}

// Seen marks id with SET NX and reports whether the key already existed
func (s *RedisStore) Seen(ctx context.Context, id string) (bool, error) {
	set, err := s.client.SetNX(ctx, s.prefix+id, time.Now().UnixMilli(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !set, nil
}

// Forget deletes the key of id
func (s *RedisStore) Forget(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Compile-time check
var _ Store = (*RedisStore)(nil)
