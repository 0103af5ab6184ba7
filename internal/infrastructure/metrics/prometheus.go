package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/codes"
)

// PrometheusExporter exports metrics in Prometheus format.
// Cache figures are read from the collector at scrape time; request figures
// are pushed by the interceptor.
type PrometheusExporter struct {
	collector *Collector
	registry  *prometheus.Registry

	grpcRequests *prometheus.CounterVec
	grpcDuration *prometheus.HistogramVec
	grpcErrors   *prometheus.CounterVec
}

// NewPrometheusExporter creates an exporter with its own registry,
// so several exporters can coexist in one process.
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	e := &PrometheusExporter{
		collector: collector,
		registry:  registry,
		grpcRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentkit_grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method"},
		),
		grpcDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contentkit_grpc_request_duration_seconds",
				Help:    "Duration of gRPC requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"method"},
		),
		grpcErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentkit_grpc_errors_total",
				Help: "Total number of gRPC errors by status code",
			},
			[]string{"method", "code"},
		),
	}

	cacheCounter := func(name, help string, read func(*CacheMetrics) uint64) {
		factory.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, func() float64 {
			return float64(read(collector.GetCacheMetrics()))
		})
	}
	cacheCounter("contentkit_entity_cache_hits_total", "Total number of entity cache hits",
		func(m *CacheMetrics) uint64 { return m.Hits })
	cacheCounter("contentkit_entity_cache_misses_total", "Total number of entity cache misses",
		func(m *CacheMetrics) uint64 { return m.Misses })
	cacheCounter("contentkit_entity_cache_evictions_total", "Total number of records evicted to stay within the memory limit",
		func(m *CacheMetrics) uint64 { return m.Evictions })
	cacheCounter("contentkit_entity_cache_invalidations_total", "Total number of records dropped after a change",
		func(m *CacheMetrics) uint64 { return m.Invalidated })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "contentkit_entity_cache_hit_rate",
		Help: "Current entity cache hit rate (0.0 to 1.0)",
	}, func() float64 { return collector.GetCacheMetrics().HitRate })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "contentkit_entity_cache_keys_current",
		Help: "Current number of cached records",
	}, func() float64 { return float64(collector.GetCacheMetrics().KeysCurrent) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "contentkit_entity_cache_memory_bytes",
		Help: "Estimated memory used by cached records in bytes",
	}, func() float64 { return float64(collector.GetCacheMetrics().MemoryBytes) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "contentkit_change_notifications_total",
		Help: "Total number of record change notifications received",
	}, func() float64 {
		n, _ := collector.Changes()
		return float64(n)
	})
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "contentkit_cache_resyncs_total",
		Help: "Total number of full cache drops after a listener reconnect",
	}, func() float64 {
		_, n := collector.Changes()
		return float64(n)
	})

	return e
}

// Registry returns the registry the exporter's metrics live in.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns the HTTP handler serving the metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records a finished request in Prometheus
func (e *PrometheusExporter) ObserveRequest(method string, elapsed time.Duration, code codes.Code) {
	if e == nil {
		return
	}
	e.RecordRequest(method)
	e.RecordDuration(method, elapsed.Seconds())
	if code != codes.OK {
		e.RecordError(method, code)
	}
}

// RecordRequest records a request in Prometheus.
func (e *PrometheusExporter) RecordRequest(method string) {
	e.grpcRequests.WithLabelValues(method).Inc()
}

// RecordDuration records a duration in Prometheus.
func (e *PrometheusExporter) RecordDuration(method string, durationSeconds float64) {
	e.grpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordError records an error with its gRPC status code in Prometheus.
func (e *PrometheusExporter) RecordError(method string, code codes.Code) {
	e.grpcErrors.WithLabelValues(method, code.String()).Inc()
}
