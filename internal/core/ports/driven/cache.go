package driven

import (
	"context"
	"time"
)

// Cache is a shared byte cache with per-key TTLs and last-writer-wins semantics.
// Values are JSON documents owned by the caller.
type Cache interface {
	// Get returns the value for key, or domain.ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
