package service

import (
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

const metricsNamespace = "waste_mgmt"

// MetricsService owns the Prometheus registry and keeps running totals for the JSON snapshot.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	txDuration      *prometheus.HistogramVec
	lifecycleTotal  *prometheus.CounterVec
	eventsTotal     *prometheus.CounterVec
	reportDuration  *prometheus.HistogramVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	txCount              uint64
	txDurationTotal      uint64
	conflictCount        uint64
	eventsSent           uint64
	eventsFailed         uint64
}

func histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
		Buckets:   prometheus.DefBuckets,
	}, labels)
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      name,
		Help:      help,
	}, labels)
}

// NewMetricsService builds a private registry with HTTP, cache, transaction,
// lifecycle, outbox and report collectors plus the Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry:        prometheus.NewRegistry(),
		requestDuration: histogramVec("http_request_duration_seconds", "HTTP request latency by route template", "method", "path", "status"),
		requestTotal:    counterVec("http_requests_total", "HTTP requests by route template", "method", "path", "status"),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_read_seconds",
			Help:      "Latency of cache reads",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_write_seconds",
			Help:      "Latency of cache writes",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cache_hit_ratio",
			Help:      "Cache hits over lookups since start",
		}),
		cacheLookups:   counterVec("cache_lookups_total", "Cache lookups by result", "result"),
		txDuration:     histogramVec("db_transaction_duration_seconds", "Unit-of-work transaction time by outcome", "outcome"),
		lifecycleTotal: counterVec("waste_request_operations_total", "Waste request lifecycle operations by outcome", "operation", "outcome"),
		eventsTotal:    counterVec("outbox_events_total", "Outbox event deliveries by type and outcome", "type", "outcome"),
		reportDuration: histogramVec("report_render_seconds", "Report assembly and rendering time", "type", "format"),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration,
		m.requestTotal,
		m.cacheLatency,
		m.cacheWrite,
		m.cacheHitRatio,
		m.cacheLookups,
		m.txDuration,
		m.lifecycleTotal,
		m.eventsTotal,
		m.reportDuration,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveTransaction records how long a unit of work held its transaction.
func (m *MetricsService) ObserveTransaction(committed bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "commit"
	if !committed {
		outcome = "rollback"
	}
	m.txDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	atomic.AddUint64(&m.txCount, 1)
	atomic.AddUint64(&m.txDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveLifecycle counts a lifecycle operation, classifying err by its error code.
func (m *MetricsService) ObserveLifecycle(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = appErrors.FromError(err).Code
		if errors.Is(err, appErrors.ErrConflict) {
			atomic.AddUint64(&m.conflictCount, 1)
		}
	}
	m.lifecycleTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveEventDelivery counts an outbox delivery attempt.
func (m *MetricsService) ObserveEventDelivery(eventType models.EventType, delivered bool) {
	if m == nil {
		return
	}
	outcome := "delivered"
	if delivered {
		atomic.AddUint64(&m.eventsSent, 1)
	} else {
		outcome = "failed"
		atomic.AddUint64(&m.eventsFailed, 1)
	}
	m.eventsTotal.WithLabelValues(string(eventType), outcome).Inc()
}

// ObserveReport records report rendering time.
func (m *MetricsService) ObserveReport(reportType models.ReportType, format models.ReportFormat, duration time.Duration) {
	if m == nil {
		return
	}
	m.reportDuration.WithLabelValues(string(reportType), string(format)).Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics suitable for the summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	txCount := atomic.LoadUint64(&m.txCount)
	txDuration := atomic.LoadUint64(&m.txDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgTxMs float64
	if txCount > 0 {
		avgTxMs = float64(txDuration) / float64(txCount) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		TransactionCount:         txCount,
		AverageTransactionMs:     avgTxMs,
		LifecycleConflicts:       atomic.LoadUint64(&m.conflictCount),
		EventsDispatched:         atomic.LoadUint64(&m.eventsSent),
		EventsFailed:             atomic.LoadUint64(&m.eventsFailed),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
