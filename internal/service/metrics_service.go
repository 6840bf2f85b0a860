package service

import (
	"fmt"
	"math"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	passDuration    prometheus.Histogram
	casesTotal      *prometheus.CounterVec
	utilization     prometheus.Gauge
	persistFailures prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	passCount            uint64
	passDurationTotal    uint64
	placedCount          uint64
	unplacedCount        uint64
	predictorFailCount   uint64
	persistFailCount     uint64
	utilizationBits      uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	passDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_pass_duration_seconds",
		Help:    "Duration of scheduling passes, predictions included",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	casesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_cases_total",
		Help: "Surgeries processed by scheduling passes",
	}, []string{"status", "reason"})

	utilization := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_slot_utilization",
		Help: "Share of grid slots reserved by the most recent pass",
	})

	persistFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_persistence_failures_total",
		Help: "Schedule runs that could not be stored after all retries",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration,
		passDuration, casesTotal, utilization, persistFailures,
		goroutines,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		dbQueryDuration: dbQueryDuration,
		passDuration:    passDuration,
		casesTotal:      casesTotal,
		utilization:     utilization,
		persistFailures: persistFailures,
	}
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

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
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
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
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
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveSchedulePass records the outcome of one scheduling pass. Unplaced
// cases are counted per reason.
func (m *MetricsService) ObserveSchedulePass(duration time.Duration, placed int, unplaced map[models.UnplacedReason]int, slotsUsed, slotsTotal int) {
	if m == nil {
		return
	}
	m.passDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.passCount, 1)
	atomic.AddUint64(&m.passDurationTotal, uint64(duration.Nanoseconds()))

	if placed > 0 {
		m.casesTotal.WithLabelValues(string(models.PlacementPlaced), "").Add(float64(placed))
		atomic.AddUint64(&m.placedCount, uint64(placed))
	}
	for reason, n := range unplaced {
		if n <= 0 {
			continue
		}
		m.casesTotal.WithLabelValues(string(models.PlacementUnplaced), string(reason)).Add(float64(n))
		atomic.AddUint64(&m.unplacedCount, uint64(n))
		if reason == models.UnplacedPredictorFailure {
			atomic.AddUint64(&m.predictorFailCount, uint64(n))
		}
	}

	if slotsTotal > 0 {
		ratio := float64(slotsUsed) / float64(slotsTotal)
		m.utilization.Set(ratio)
		atomic.StoreUint64(&m.utilizationBits, math.Float64bits(ratio))
	}
}

// RecordPersistenceFailure counts a run that could not be stored.
func (m *MetricsService) RecordPersistenceFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
	atomic.AddUint64(&m.persistFailCount, 1)
}

// Snapshot returns aggregated metrics suitable for the metrics summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)
	passes := atomic.LoadUint64(&m.passCount)
	passDuration := atomic.LoadUint64(&m.passDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: averageMillis(reqDuration, requests),
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		SchedulePasses:           passes,
		AveragePassDurationMs:    averageMillis(passDuration, passes),
		CasesPlaced:              atomic.LoadUint64(&m.placedCount),
		CasesUnplaced:            atomic.LoadUint64(&m.unplacedCount),
		PredictorFailures:        atomic.LoadUint64(&m.predictorFailCount),
		LastUtilization:          math.Float64frombits(atomic.LoadUint64(&m.utilizationBits)),
		PersistenceFailures:      atomic.LoadUint64(&m.persistFailCount),
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: averageMillis(dbDuration, dbCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func averageMillis(totalNanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Millisecond)
}
