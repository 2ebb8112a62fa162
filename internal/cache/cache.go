package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache memoizes model-generated summaries.
type Cache interface {
	// GetSummary retrieves a cached summary by key.
	// ok is false on a cache miss.
	GetSummary(ctx context.Context, key string) (summary string, ok bool, err error)

	// SetSummary stores a summary with TTL. A zero TTL keeps it forever.
	SetSummary(ctx context.Context, key, summary string, ttl time.Duration) error

	// Purge removes every cached summary
	Purge(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// Key derives a cache key from everything that influences a summary:
// model, generation options and the rendered prompt.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
