// Package cache defines the byte-cache port. The deep analyzer uses it
// to share group-scoped forge responses across workers so repeated
// lookups do not burn API budget.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Close releases the cache's resources. The cache must not be used
	// afterwards.
	Close() error
}
