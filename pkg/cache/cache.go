package cache

import (
	"context"
	"time"
)

// Cache stores hydrated content records keyed by "contenttype:id".
type Cache interface {
	// Get retrieves a value. The second result is false when the key is missing or expired.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value for ttl. A zero ttl uses the cache default.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every value whose key starts with prefix and returns how many were removed
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Clear removes all entries
	Clear(ctx context.Context) error

	// Close releases resources held by the cache
	Close() error

	// Metrics returns cache statistics
	Metrics() *Metrics
}

// Metrics holds cache statistics
type Metrics struct {
	Hits        uint64
	Misses      uint64
	KeysAdded   uint64
	KeysEvicted uint64 // Removed to stay within capacity
	Invalidated uint64 // Removed by Delete or DeletePrefix
}

// HitRate returns the hit rate between 0 and 1
func (m *Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0.0
	}
	return float64(m.Hits) / float64(total)
}
