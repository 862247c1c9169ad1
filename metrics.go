package rexel

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the client's request
// lifecycle, cache and in-flight tracker. It is safe for concurrent use and
// every method is a no-op on a nil collector.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   prometheus.Gauge

	deduplicationHits *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)
	return &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rexel_api_requests_total",
				Help: "Total number of HTTP requests sent to the backend",
			},
			[]string{"method", "status_code", "route"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rexel_api_request_duration_seconds",
				Help:    "Duration of backend HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "route"},
		),
		requestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rexel_api_requests_in_flight",
				Help: "Number of backend HTTP requests currently in flight",
			},
			[]string{"method", "route"},
		),
		retriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rexel_api_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "route", "attempt"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rexel_api_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"route"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rexel_api_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"route"},
		),
		cacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rexel_api_cache_size",
				Help: "Current number of live entries in the response cache",
			},
		),
		deduplicationHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rexel_api_deduplication_hits_total",
				Help: "Total number of calls that joined an in-flight request",
			},
			[]string{"route"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rexel_api_errors_total",
				Help: "Total number of failed attempts by error code",
			},
			[]string{"code", "method", "route"},
		),
	}
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method string, route RouteClass, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, route.String()).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, route.String()).Observe(duration.Seconds())
}

// RecordRequestStart increments in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method string, route RouteClass) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, route.String()).Inc()
}

// RecordRequestEnd decrements in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method string, route RouteClass) {
	if mc == nil {
		return
	}
	mc.requestsInFlight.WithLabelValues(method, route.String()).Dec()
}

// RecordRetry increments retry counter for an attempt.
func (mc *MetricsCollector) RecordRetry(method string, route RouteClass, attempt int) {
	if mc == nil {
		return
	}
	mc.retriesTotal.WithLabelValues(method, route.String(), strconv.Itoa(attempt)).Inc()
}

func (mc *MetricsCollector) RecordCacheHit(route RouteClass) {
	if mc == nil {
		return
	}
	mc.cacheHits.WithLabelValues(route.String()).Inc()
}

func (mc *MetricsCollector) RecordCacheMiss(route RouteClass) {
	if mc == nil {
		return
	}
	mc.cacheMisses.WithLabelValues(route.String()).Inc()
}

func (mc *MetricsCollector) RecordCacheSize(size int) {
	if mc == nil {
		return
	}
	mc.cacheSize.Set(float64(size))
}

func (mc *MetricsCollector) RecordDeduplicationHit(route RouteClass) {
	if mc == nil {
		return
	}
	mc.deduplicationHits.WithLabelValues(route.String()).Inc()
}

// RecordError increments error counter by code.
func (mc *MetricsCollector) RecordError(code, method string, route RouteClass) {
	if mc == nil {
		return
	}
	mc.errorsTotal.WithLabelValues(code, method, route.String()).Inc()
}
