package repositories

import (
	"context"
	"time"
)

// CacheRepositoryInterface is the slice of the key-value store the workflow
// relies on: atomic counters with expiry.
type CacheRepositoryInterface interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error)
}
