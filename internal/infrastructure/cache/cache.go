package cache

import (
	"context"
	"time"
)

// Cache is a TTL key/value store for opaque payloads. Entries are never
// refreshed on read; an expired entry is never returned.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
