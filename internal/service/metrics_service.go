package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/estudaia-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for the health endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	backendErrors   *prometheus.CounterVec
	relayDuration   prometheus.Observer
	relayTotal      *prometheus.CounterVec
	conversations   prometheus.Gauge
	authEvents      *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	backendCount         uint64
	backendErrorCount    uint64
	relayCount           uint64
	relayFailureCount    uint64
	openConversations    int64
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

	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_operation_duration_seconds",
		Help:    "Duration of catalog and profile operations against the active backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	backendErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_operation_errors_total",
		Help: "Failed backend operations",
	}, []string{"operation"})

	relayDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_relay_duration_seconds",
		Help:    "Round-trip time of chat relay calls",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	relayTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_relay_requests_total",
		Help: "Chat relay calls by outcome",
	}, []string{"outcome"})

	conversations := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_conversations_open",
		Help: "Chat conversations currently held in memory",
	})

	authEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_state_events_total",
		Help: "Auth state transitions observed by the session manager",
	}, []string{"event"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, backendDuration, backendErrors, relayDuration, relayTotal, conversations, authEvents, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		backendDuration: backendDuration,
		backendErrors:   backendErrors,
		relayDuration:   relayDuration,
		relayTotal:      relayTotal,
		conversations:   conversations,
		authEvents:      authEvents,
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

// ObserveBackend records one catalog or profile operation.
func (m *MetricsService) ObserveBackend(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.backendDuration.WithLabelValues(operation).Observe(duration.Seconds())
	atomic.AddUint64(&m.backendCount, 1)
	if err != nil {
		m.backendErrors.WithLabelValues(operation).Inc()
		atomic.AddUint64(&m.backendErrorCount, 1)
	}
}

// ObserveRelay records one chat relay call.
func (m *MetricsService) ObserveRelay(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.relayDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.relayCount, 1)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		atomic.AddUint64(&m.relayFailureCount, 1)
	}
	m.relayTotal.WithLabelValues(outcome).Inc()
}

// SetOpenConversations tracks the size of the in-memory conversation map.
func (m *MetricsService) SetOpenConversations(n int) {
	if m == nil {
		return
	}
	m.conversations.Set(float64(n))
	atomic.StoreInt64(&m.openConversations, int64(n))
}

// RecordAuthEvent counts auth-state transitions.
func (m *MetricsService) RecordAuthEvent(event models.AuthEventType) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(string(event)).Inc()
}

// Snapshot returns aggregated metrics suitable for the health endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{Goroutines: runtime.NumGoroutine(), GeneratedAt: time.Now().UTC()}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		BackendCalls:             atomic.LoadUint64(&m.backendCount),
		BackendErrors:            atomic.LoadUint64(&m.backendErrorCount),
		RelayCalls:               atomic.LoadUint64(&m.relayCount),
		RelayFailures:            atomic.LoadUint64(&m.relayFailureCount),
		OpenConversations:        int(atomic.LoadInt64(&m.openConversations)),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
