package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BladexZN/dashboard-c/internal/models"
)

const metricsNamespace = "dashboard"

// counters mirrors a few Prometheus series as plain atomics so /health can
// report them without scraping the registry.
type counters struct {
	cacheHits          atomic.Uint64
	cacheMisses        atomic.Uint64
	requests           atomic.Uint64
	requestNanos       atomic.Uint64
	transitions        atomic.Uint64
	transitionFailures atomic.Uint64
	notifications      atomic.Uint64
	crossSystemFailed  atomic.Uint64
	staleRefreshes     atomic.Uint64
}

// MetricsService owns the Prometheus registry for the API process. A nil
// *MetricsService is valid and records nothing.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler
	started  time.Time

	httpDuration    *prometheus.HistogramVec
	httpTotal       *prometheus.CounterVec
	cacheLookups    *prometheus.HistogramVec
	cacheWrites     prometheus.Histogram
	transitions     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	crossSystem     *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram

	totals counters
}

// NewMetricsService builds a private registry with the dashboard collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	m := &MetricsService{registry: registry, started: time.Now()}

	m.httpDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	m.httpTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route.",
	}, []string{"method", "route", "status"})

	m.cacheLookups = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "lookup_seconds",
		Help:      "Redis lookups by result.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	}, []string{"result"})
	m.cacheWrites = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "write_seconds",
		Help:      "Redis write latency.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
	})

	m.transitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "status_transitions_total",
		Help:      "Status changes by target status and outcome.",
	}, []string{"status", "outcome"})
	m.notifications = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "notifications_created_total",
		Help:      "Inbox notifications by category.",
	}, []string{"category"})
	m.crossSystem = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "cross_system_deliveries_total",
		Help:      "Deliveries to the master dashboard by outcome.",
	}, []string{"outcome"})

	m.refreshes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "board",
		Name:      "refreshes_total",
		Help:      "Board refreshes by outcome.",
	}, []string{"outcome"})
	m.refreshDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "board",
		Name:      "refresh_duration_seconds",
		Help:      "Time spent loading and projecting the board.",
		Buckets:   prometheus.DefBuckets,
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "goroutines",
		Help:      "Live goroutines.",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, route, code).Inc()
	m.totals.requests.Add(1)
	m.totals.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records one cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.totals.cacheHits.Add(1)
	} else {
		m.totals.cacheMisses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveCacheWrite records one cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(duration.Seconds())
}

// RecordTransition counts one status change attempt. outcome is applied, noop or failed.
func (m *MetricsService) RecordTransition(status models.RequestStatus, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(status), outcome).Inc()
	m.totals.transitions.Add(1)
	if outcome == "failed" {
		m.totals.transitionFailures.Add(1)
	}
}

// RecordNotifications counts created inbox rows.
func (m *MetricsService) RecordNotifications(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.notifications.WithLabelValues(category).Add(float64(n))
	m.totals.notifications.Add(uint64(n))
}

// RecordCrossSystem counts one outbound delivery attempt.
func (m *MetricsService) RecordCrossSystem(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.crossSystem.WithLabelValues("sent").Inc()
		return
	}
	m.crossSystem.WithLabelValues("failed").Inc()
	m.totals.crossSystemFailed.Add(1)
}

// RecordRefresh counts one board refresh. outcome is published, stale or failed.
func (m *MetricsService) RecordRefresh(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(duration.Seconds())
	if outcome == "stale" {
		m.totals.staleRefreshes.Add(1)
	}
}

// Snapshot summarises the process counters.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.totals.cacheHits.Load(), m.totals.cacheMisses.Load()
	requests := m.totals.requests.Load()

	snap := models.SystemMetrics{
		CacheHits:            hits,
		CacheMisses:          misses,
		RequestsTotal:        requests,
		Transitions:          m.totals.transitions.Load(),
		TransitionFailures:   m.totals.transitionFailures.Load(),
		NotificationsCreated: m.totals.notifications.Load(),
		CrossSystemFailures:  m.totals.crossSystemFailed.Load(),
		StaleRefreshes:       m.totals.staleRefreshes.Load(),
		Goroutines:           runtime.NumGoroutine(),
		UptimeSeconds:        int64(time.Since(m.started).Seconds()),
		GeneratedAt:          time.Now().UTC(),
	}
	if lookups := hits + misses; lookups > 0 {
		snap.CacheHitRatio = round1(float64(hits) / float64(lookups) * 100)
	}
	if requests > 0 {
		snap.AverageRequestDurationMs = round1(float64(m.totals.requestNanos.Load()) / float64(requests) / float64(time.Millisecond))
	}
	return snap
}
