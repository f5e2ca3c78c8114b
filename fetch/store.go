package fetch

import (
	"context"
	"time"
)

// Store is a shared second-level store consulted after the in-memory
// cache misses. Implementations can keep entries in Redis, disk, or other
// storage.
type Store[V any] interface {
	// Get retrieves a value from the store.
	// Returns the value and true if found, zero value and false otherwise.
	Get(ctx context.Context, key string) (V, bool, error)

	// Set stores a value for ttl. A non-positive ttl must leave the key
	// absent.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error

	// Delete removes a key from the store.
	Delete(ctx context.Context, key string) error
}
