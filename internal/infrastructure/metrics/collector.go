package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/asakaida/contentkit/pkg/cache"
	"github.com/asakaida/contentkit/pkg/cache/memorycache"
	"google.golang.org/grpc/codes"
)

// Collector collects and aggregates metrics for the application.
type Collector struct {
	// API metrics
	apiRequests sync.Map // map[string]*uint64 - method -> count
	apiErrors   sync.Map // map[string]*uint64 - method -> error count
	apiDuration sync.Map // map[string]*durationValue - method -> total duration in seconds

	// Change notifications applied to the entity cache
	notifications uint64
	resyncs       uint64

	// Entity cache (optional)
	cache cache.Cache
}

type durationValue struct {
	mu           sync.Mutex
	totalSeconds float64
}

// CacheMetrics holds entity cache metrics.
type CacheMetrics struct {
	Hits        uint64
	Misses      uint64
	HitRate     float64
	KeysCurrent int64
	MemoryBytes int64
	Evictions   uint64
	Invalidated uint64
}

// APIMetrics holds API request metrics.
type APIMetrics struct {
	RequestCounts        map[string]uint64
	ErrorCounts          map[string]uint64
	TotalDurationSeconds map[string]float64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// SetCache sets the entity cache to report on.
func (c *Collector) SetCache(cache cache.Cache) {
	c.cache = cache
}

// RecordRequest records an API request.
func (c *Collector) RecordRequest(method string) {
	atomic.AddUint64(c.counter(&c.apiRequests, method), 1)
}

// RecordError records an API error.
func (c *Collector) RecordError(method string) {
	atomic.AddUint64(c.counter(&c.apiErrors, method), 1)
}

// RecordDuration records the duration of an API call in seconds.
func (c *Collector) RecordDuration(method string, durationSeconds float64) {
	val, _ := c.apiDuration.LoadOrStore(method, &durationValue{})
	dv := val.(*durationValue)

	dv.mu.Lock()
	dv.totalSeconds += durationSeconds
	dv.mu.Unlock()
}

// ObserveRequest records a finished request. Any code but OK counts as an error.
func (c *Collector) ObserveRequest(method string, elapsed time.Duration, code codes.Code) {
	if c == nil {
		return
	}
	c.RecordRequest(method)
	c.RecordDuration(method, elapsed.Seconds())
	if code != codes.OK {
		c.RecordError(method)
	}
}

// RecordChange records a change notification. An empty ref counts as a full cache resync.
func (c *Collector) RecordChange(ref string) {
	if ref == "" {
		atomic.AddUint64(&c.resyncs, 1)
		return
	}
	atomic.AddUint64(&c.notifications, 1)
}

// Changes returns the number of record notifications and full resyncs handled.
func (c *Collector) Changes() (notifications, resyncs uint64) {
	return atomic.LoadUint64(&c.notifications), atomic.LoadUint64(&c.resyncs)
}

// GetCacheMetrics returns current entity cache metrics.
func (c *Collector) GetCacheMetrics() *CacheMetrics {
	if c.cache == nil {
		return &CacheMetrics{}
	}

	metrics := c.cache.Metrics()
	if metrics == nil {
		return &CacheMetrics{}
	}

	result := &CacheMetrics{
		Hits:        metrics.Hits,
		Misses:      metrics.Misses,
		HitRate:     metrics.HitRate(),
		Evictions:   metrics.KeysEvicted,
		Invalidated: metrics.Invalidated,
	}

	if memCache, ok := c.cache.(*memorycache.Cache); ok {
		result.KeysCurrent = int64(memCache.Len())
		result.MemoryBytes = memCache.Size()
	}

	return result
}

// GetAPIMetrics returns current API metrics.
func (c *Collector) GetAPIMetrics() *APIMetrics {
	result := &APIMetrics{
		RequestCounts:        make(map[string]uint64),
		ErrorCounts:          make(map[string]uint64),
		TotalDurationSeconds: make(map[string]float64),
	}

	c.apiRequests.Range(func(key, value interface{}) bool {
		result.RequestCounts[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	c.apiErrors.Range(func(key, value interface{}) bool {
		result.ErrorCounts[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})

	c.apiDuration.Range(func(key, value interface{}) bool {
		dv := value.(*durationValue)
		dv.mu.Lock()
		result.TotalDurationSeconds[key.(string)] = dv.totalSeconds
		dv.mu.Unlock()
		return true
	})

	return result
}

func (c *Collector) counter(m *sync.Map, key string) *uint64 {
	val, _ := m.LoadOrStore(key, new(uint64))
	return val.(*uint64)
}
