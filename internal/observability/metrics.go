package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the dispatch client and
// scan runner. A nil collector is valid and records nothing, so callers do
// not guard every call site. Safe for concurrent use.
type MetricsCollector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	limiterWait prometheus.Histogram

	vectorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "redcell_requests_total",
				Help: "Total number of chat completion requests sent, by terminal status",
			},
			[]string{"status"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redcell_request_duration_seconds",
				Help:    "Duration of chat completion requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		retriesTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "redcell_retries_total",
				Help: "Total number of retry attempts after retryable failures",
			},
		),
		cacheHits: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "redcell_cache_hits_total",
				Help: "Total number of response cache hits",
			},
		),
		cacheMisses: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "redcell_cache_misses_total",
				Help: "Total number of response cache misses",
			},
		),
		limiterWait: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "redcell_limiter_wait_seconds",
				Help:    "Time spent waiting for rate limiter admission in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		vectorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "redcell_scan_vectors_total",
				Help: "Total number of attack vectors tested, by result",
			},
			[]string{"result"},
		),
	}
}

// RecordRequest records one network send with its terminal status.
// statusCode 0 means the request failed before a response arrived.
func (mc *MetricsCollector) RecordRequest(statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	status := "transport_error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	mc.requestsTotal.WithLabelValues(status).Inc()
	mc.requestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordRetry counts one scheduled retry.
func (mc *MetricsCollector) RecordRetry() {
	if mc == nil {
		return
	}
	mc.retriesTotal.Inc()
}

// RecordCacheHit counts one cache hit.
func (mc *MetricsCollector) RecordCacheHit() {
	if mc == nil {
		return
	}
	mc.cacheHits.Inc()
}

// RecordCacheMiss counts one cache miss.
func (mc *MetricsCollector) RecordCacheMiss() {
	if mc == nil {
		return
	}
	mc.cacheMisses.Inc()
}

// RecordLimiterWait records how long one acquisition waited for admission.
func (mc *MetricsCollector) RecordLimiterWait(d time.Duration) {
	if mc == nil {
		return
	}
	mc.limiterWait.Observe(d.Seconds())
}

// RecordVectorResult counts one tested vector: "vulnerable", "clean", or "error".
func (mc *MetricsCollector) RecordVectorResult(result string) {
	if mc == nil {
		return
	}
	mc.vectorsTotal.WithLabelValues(result).Inc()
}
