// Package idempotency remembers which invocation messages were already
// delivered, so that a redelivered message does not fire handlers twice.
//
// Transports may deliver the same message more than once after a reconnect or
// a broker-side retry. A Store tracks message IDs for a TTL:
//
//	store := idempotency.NewMemoryStore(idempotency.WithDefaultTTL(time.Hour))
//	defer store.Close()
//
//	conn, err := bridge.Connect(ctx, t, "conn-1", hub, bridge.WithDeduplication(store))
//
// For several client instances sharing a stream use RedisStore.
package idempotency

import "context"

// Store tracks delivered message IDs.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Seen atomically marks id as delivered and reports whether it was
	// already marked.
	Seen(ctx context.Context, id string) (bool, error)

	// Forget removes id, so that it can be delivered again.
	Forget(ctx context.Context, id string) error
}
