package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	syncDrained     prometheus.Counter
	syncFailed      prometheus.Counter
	syncPending     prometheus.Gauge
	workflowActions *prometheus.CounterVec
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

	syncDrained := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_items_drained_total",
		Help: "Total queue items replayed successfully",
	})

	syncFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_items_failed_total",
		Help: "Total queue items that failed replay",
	})

	syncPending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sync_items_pending",
		Help: "Queue items awaiting replay after the last drain",
	})

	workflowActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_decisions_total",
		Help: "Total approval workflow decisions",
	}, []string{"decision"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, syncDrained, syncFailed, syncPending, workflowActions, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		syncDrained:     syncDrained,
		syncFailed:      syncFailed,
		syncPending:     syncPending,
		workflowActions: workflowActions,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSyncDrain records the outcome of one queue drain pass.
func (m *MetricsService) ObserveSyncDrain(synced, failed int) {
	if m == nil {
		return
	}
	m.syncDrained.Add(float64(synced))
	m.syncFailed.Add(float64(failed))
	m.syncPending.Set(float64(failed))
}

// ObserveWorkflowDecision counts an approve or reject decision.
func (m *MetricsService) ObserveWorkflowDecision(decision string) {
	if m == nil {
		return
	}
	m.workflowActions.WithLabelValues(decision).Inc()
}
