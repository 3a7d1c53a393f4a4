package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore defaults
const (
	DefaultTTL             = time.Hour
	DefaultCleanupInterval = time.Minute
)

type memoryOptions struct {
	ttl             time.Duration
	cleanupInterval time.Duration
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*memoryOptions)

// WithDefaultTTL sets how long a delivered id is remembered.
// Non-positive values are ignored.
func WithDefaultTTL(ttl time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired entries are dropped.
// Non-positive values are ignored.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) {
		if d > 0 {
			o.cleanupInterval = d
		}
	}
}

// MemoryStore implements Store in memory with a TTL per entry.
//
// Entries are lost on restart and not shared between processes. A background
// goroutine removes expired entries; call Close to stop it.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]time.Time // id -> expiry
	ttl       time.Duration
	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewMemoryStore creates a memory store. Ids are remembered for DefaultTTL
// unless WithDefaultTTL says otherwise.
//
//	store := idempotency.NewMemoryStore(
//	    idempotency.WithDefaultTTL(24*time.Hour),
//	    idempotency.WithCleanupInterval(5*time.Minute),
//	)
//	defer store.Close()
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	o := &memoryOptions{
		ttl:             DefaultTTL,
		cleanupInterval: DefaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &MemoryStore{
		entries: make(map[string]time.Time),
		ttl:     o.ttl,
		stopCh:  make(chan struct{}),
	}
	go s.cleanup(o.cleanupInterval)
	return s
}

// Seen marks id and reports whether it was marked and not yet expired
func (s *MemoryStore) Seen(ctx context.Context, id string) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, ok := s.entries[id]; ok && now.Before(expiry) {
		return true, nil
	}
	s.entries[id] = now.Add(s.ttl)
	return false, nil
}

// Forget removes id
func (s *MemoryStore) Forget(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of tracked ids, expired or not
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopCh) })
	return nil
}

func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.removeExpired(time.Now())
		}
	}
}

func (s *MemoryStore) removeExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, id)
		}
	}
}

// Compile-time check
var _ Store = (*MemoryStore)(nil)
