// Package memorycache is an in-process LRU cache with per-entry TTL.
package memorycache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/asakaida/contentkit/pkg/cache"
)

type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
	size      int64
}

// Sizer estimates the memory footprint of a cached value in bytes
type Sizer func(key string, value interface{}) int64

// DefaultSizer charges a flat 100 bytes per entry plus the key length
func DefaultSizer(key string, value interface{}) int64 {
	return int64(100 + len(key))
}

// Config holds configuration for the memory cache
type Config struct {
	// MaxSizeBytes bounds the total estimated size; least recently used entries are evicted past it
	MaxSizeBytes int64

	// DefaultTTL applies when Set is called with a zero ttl
	DefaultTTL time.Duration

	// EnableMetrics enables hit/miss accounting
	EnableMetrics bool

	// Sizer estimates entry sizes, DefaultSizer when nil
	Sizer Sizer
}

// Cache implements cache.Cache as an LRU list guarded by one mutex
type Cache struct {
	mu sync.Mutex

	items     map[string]*list.Element
	evictList *list.List // front = most recently used

	maxSize     int64
	ttl         time.Duration
	sizer       Sizer
	currentSize int64

	metrics *cache.Metrics
	now     func() time.Time
}

// New creates a new memory cache
func New(config *Config) (*Cache, error) {
	c := &Cache{
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		maxSize:   config.MaxSizeBytes,
		ttl:       config.DefaultTTL,
		sizer:     config.Sizer,
		now:       time.Now,
	}
	if c.sizer == nil {
		c.sizer = DefaultSizer
	}
	if config.EnableMetrics {
		c.metrics = &cache.Metrics{}
	}
	return c, nil
}

// Get retrieves a value and marks it as recently used
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		c.countMiss()
		return nil, false
	}

	ent := elem.Value.(*entry)
	if c.now().After(ent.expiresAt) {
		c.removeElement(elem)
		c.countMiss()
		return nil, false
	}

	c.evictList.MoveToFront(elem)
	if c.metrics != nil {
		c.metrics.Hits++
	}
	return ent.value, true
}

// Set stores a value for ttl, or the default TTL when ttl is zero
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	size := c.sizer(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		ent := elem.Value.(*entry)
		c.currentSize += size - ent.size
		ent.value = value
		ent.expiresAt = c.now().Add(ttl)
		ent.size = size
		c.evictList.MoveToFront(elem)
	} else {
		elem := c.evictList.PushFront(&entry{
			key:       key,
			value:     value,
			expiresAt: c.now().Add(ttl),
			size:      size,
		})
		c.items[key] = elem
		c.currentSize += size
		if c.metrics != nil {
			c.metrics.KeysAdded++
		}
	}

	for c.currentSize > c.maxSize && c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
		if c.metrics != nil {
			c.metrics.KeysEvicted++
		}
	}

	return nil
}

// Delete removes a value
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
		c.countInvalidated(1)
	}
	return nil
}

// DeletePrefix removes every value whose key starts with prefix
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.removeElement(elem)
			removed++
		}
	}
	c.countInvalidated(removed)
	return removed, nil
}

// Clear removes all entries
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.evictList.Init()
	c.currentSize = 0
	return nil
}

// Close is a no-op
func (c *Cache) Close() error {
	return nil
}

// Metrics returns a copy of the cache statistics
func (c *Cache) Metrics() *cache.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.metrics == nil {
		return &cache.Metrics{}
	}
	snapshot := *c.metrics
	return &snapshot
}

// Len returns the number of entries, expired ones included until touched
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Size returns the total estimated size in bytes
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// removeElement must be called with the lock held
func (c *Cache) removeElement(elem *list.Element) {
	c.evictList.Remove(elem)
	ent := elem.Value.(*entry)
	delete(c.items, ent.key)
	c.currentSize -= ent.size
}

func (c *Cache) countMiss() {
	if c.metrics != nil {
		c.metrics.Misses++
	}
}

func (c *Cache) countInvalidated(n int) {
	if c.metrics != nil {
		c.metrics.Invalidated += uint64(n)
	}
}
