// Package metrics provides Prometheus metrics for the compass scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the refresh and fit recorders.
const (
	ResultOK               = "ok"
	ResultError            = "error"
	ResultInsufficientData = "insufficient_data"
	ResultSingularMatrix   = "singular_matrix"
)

// Manager manages all Prometheus metrics for the compass service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Pipeline metrics
	refreshRuns     *prometheus.CounterVec
	refreshUpserted prometheus.Counter
	refreshSkipped  prometheus.Counter
	refreshLatency  prometheus.Histogram
	fitRuns         *prometheus.CounterVec
	fitSampleSize   prometheus.Gauge
	fitLatency      prometheus.Histogram
	predictions     prometheus.Counter
	predictedScore  prometheus.Histogram
	clampedScores   prometheus.Counter

	// Store metrics
	storeLatency *prometheus.HistogramVec
	storeRecords *prometheus.GaugeVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "compass",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.refreshRuns = auto.NewCounterVec(m.counter("refresh_runs_total", "Stats refresh runs by result"), []string{"result"})
	m.refreshUpserted = auto.NewCounter(m.counter("refresh_rows_upserted_total", "EventStats rows written by refresh"))
	m.refreshSkipped = auto.NewCounter(m.counter("refresh_rows_skipped_total", "Historical events skipped by refresh because they failed validation"))
	m.refreshLatency = auto.NewHistogram(m.histogram("refresh_latency_milliseconds", "Stats refresh latency in milliseconds", m.histogramBuckets))

	m.fitRuns = auto.NewCounterVec(m.counter("fit_runs_total", "Model fits by result"), []string{"result"})
	m.fitSampleSize = auto.NewGauge(m.gauge("fit_sample_size", "Usable rows seen by the latest fit"))
	m.fitLatency = auto.NewHistogram(m.histogram("fit_latency_milliseconds", "Model fit latency in milliseconds", m.histogramBuckets))

	m.predictions = auto.NewCounter(m.counter("predictions_total", "Predictions served"))
	m.predictedScore = auto.NewHistogram(m.histogram("predicted_score", "Distribution of predicted scores", []float64{1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5}))
	m.clampedScores = auto.NewCounter(m.counter("predictions_clamped_total", "Predictions whose raw value fell outside the score scale"))

	m.storeLatency = auto.NewHistogramVec(m.histogram("store_latency_milliseconds", "Store operation latency in milliseconds", m.histogramBuckets), []string{"store", "operation"})
	m.storeRecords = auto.NewGaugeVec(m.gauge("store_records", "Records held by the store"), []string{"store", "table"})

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total", "Total number of HTTP requests"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_seconds", "HTTP request duration in seconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counter("errors_by_component_total", "Errors by component and type"), []string{"component", "error_type"})
}

// RecordRefresh records one refresh run.
func RecordRefresh(result string, upserted, skipped int, latencyMs float64) {
	globalManager.refreshRuns.WithLabelValues(result).Inc()
	globalManager.refreshUpserted.Add(float64(max(upserted, 0)))
	globalManager.refreshSkipped.Add(float64(max(skipped, 0)))
	globalManager.refreshLatency.Observe(latencyMs)
}

// RecordFit records one model fit.
func RecordFit(result string, sampleSize int, latencyMs float64) {
	globalManager.fitRuns.WithLabelValues(result).Inc()
	globalManager.fitSampleSize.Set(float64(sampleSize))
	globalManager.fitLatency.Observe(latencyMs)
}

// RecordPrediction records a served prediction and whether it was clamped.
func RecordPrediction(score float64, clamped bool) {
	globalManager.predictions.Inc()
	globalManager.predictedScore.Observe(score)
	if clamped {
		globalManager.clampedScores.Inc()
	}
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(store, operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(store, operation).Observe(latencyMs)
}

// UpdateStoreRecords sets the number of records held in a store table.
func UpdateStoreRecords(store, table string, count int) {
	globalManager.storeRecords.WithLabelValues(store, table).Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
