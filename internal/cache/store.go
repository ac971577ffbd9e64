package cache

import (
	"context"
	"time"
)

// Store is a byte-value cache with per-key TTL. The market-data layer uses
// it for latest-close quotes; a miss always falls through to the database.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
