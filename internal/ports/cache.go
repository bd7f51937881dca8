package ports

import (
	"context"
	"time"
)

// Cache defines a generic key-value capability with per-key TTL.
// Adapters may be backed by SQLite/Redis or other stores; the engine uses it
// for distributed rate-limit locks and short-lived status memoization.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
