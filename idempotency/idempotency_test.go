package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("first delivery is new, second is seen", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()

		if seen, err := store.Seen(ctx, "msg-1"); err != nil || seen {
			t.Errorf("expected new, got seen=%v err=%v", seen, err)
		}
		if seen, _ := store.Seen(ctx, "msg-1"); !seen {
			t.Error("expected msg-1 to be seen")
		}
		if seen, _ := store.Seen(ctx, "msg-2"); seen {
			t.Error("expected msg-2 to be new")
		}
	})

	t.Run("expired entry is new again", func(t *testing.T) {
		store := NewMemoryStore(WithDefaultTTL(10 * time.Millisecond))
		defer store.Close()

		store.Seen(ctx, "msg-1")
		time.Sleep(20 * time.Millisecond)
		if seen, _ := store.Seen(ctx, "msg-1"); seen {
			t.Error("expected expired entry to be new")
		}
	})

	t.Run("Forget", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()

		store.Seen(ctx, "msg-1")
		store.Forget(ctx, "msg-1")
		if seen, _ := store.Seen(ctx, "msg-1"); seen {
			t.Error("expected forgotten entry to be new")
		}
	})

	t.Run("removeExpired", func(t *testing.T) {
		store := NewMemoryStore(WithDefaultTTL(time.Minute))
		defer store.Close()

		store.Seen(ctx, "msg-1")
		store.Seen(ctx, "msg-2")
		store.removeExpired(time.Now().Add(2 * time.Minute))
		if store.Len() != 0 {
			t.Errorf("expected 0 entries, got %d", store.Len())
		}
	})

	t.Run("concurrent Seen admits one", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()

		var fresh atomic.Int32
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if seen, _ := store.Seen(ctx, "msg-1"); !seen {
					fresh.Add(1)
				}
			}()
		}
		wg.Wait()
		if fresh.Load() != 1 {
			t.Errorf("expected exactly one new delivery, got %d", fresh.Load())
		}
	})

	t.Run("options", func(t *testing.T) {
		store := NewMemoryStore(WithDefaultTTL(time.Minute), WithCleanupInterval(5*time.Millisecond))
		defer store.Close()

		if store.ttl != time.Minute {
			t.Errorf("expected ttl 1m, got %v", store.ttl)
		}
		store.mu.Lock()
		store.entries["stale"] = time.Now().Add(-time.Second)
		store.mu.Unlock()

		deadline := time.Now().Add(time.Second)
		for store.Len() != 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if store.Len() != 0 {
			t.Errorf("expected cleanup to drop the stale entry, got %d entries", store.Len())
		}
	})

	t.Run("non-positive options keep defaults", func(t *testing.T) {
		store := NewMemoryStore(WithDefaultTTL(0), WithCleanupInterval(-time.Second))
		defer store.Close()

		if store.ttl != DefaultTTL {
			t.Errorf("expected ttl %v, got %v", DefaultTTL, store.ttl)
		}
	})

	t.Run("Close is idempotent", func(t *testing.T) {
		store := NewMemoryStore()
		store.Close()
		store.Close()
	})
}

// mockRedisClient implements RedisClient
type mockRedisClient struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{keys: make(map[string]time.Duration)}
}

func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewBoolCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	if _, ok := m.keys[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	m.keys[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, k := range keys {
		if _, ok := m.keys[k]; ok {
			delete(m.keys, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Seen uses SET NX with ttl", func(t *testing.T) {
		client := newMockRedisClient()
		store := NewRedisStore(client, time.Hour)

		if seen, err := store.Seen(ctx, "msg-1"); err != nil || seen {
			t.Errorf("expected new, got seen=%v err=%v", seen, err)
		}
		if seen, _ := store.Seen(ctx, "msg-1"); !seen {
			t.Error("expected msg-1 to be seen")
		}
		if ttl := client.keys[DefaultRedisPrefix+"msg-1"]; ttl != time.Hour {
			t.Errorf("expected ttl 1h, got %v", ttl)
		}
	})

	t.Run("WithPrefix", func(t *testing.T) {
		client := newMockRedisClient()
		store := NewRedisStore(client, time.Hour).WithPrefix("chat:")

		store.Seen(ctx, "msg-1")
		if _, ok := client.keys["chat:msg-1"]; !ok {
			t.Errorf("expected prefixed key, got %v", client.keys)
		}
		if err := store.Forget(ctx, "msg-1"); err != nil {
			t.Fatalf("Forget failed: %v", err)
		}
		if len(client.keys) != 0 {
			t.Errorf("expected key deleted, got %v", client.keys)
		}
	})

	t.Run("error", func(t *testing.T) {
		client := newMockRedisClient()
		client.err = errors.New("connection refused")
		store := NewRedisStore(client, time.Hour)

		if _, err := store.Seen(ctx, "msg-1"); !errors.Is(err, client.err) {
			t.Errorf("expected wrapped error, got %v", err)
		}
	})
}
