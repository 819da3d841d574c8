// Package metrics provides Prometheus metrics for the coach front end.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeInFlight   = "in_flight"
	OutcomeBusy       = "busy"
	OutcomeTimeout    = "timeout"
	OutcomeTransport  = "transport"
	OutcomeServer     = "server_error"
	OutcomeFailed     = "analysis_failed"
	OutcomeDecode     = "decode_error"
)

// latencyBuckets are in milliseconds; analyses regularly take tens of seconds.
var latencyBuckets = []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 20000, 40000, 60000}

// Manager owns the Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// Analysis submissions
	submissions     *prometheus.CounterVec
	inFlight        prometheus.Gauge
	renderLatency   prometheus.Histogram
	sessionsTracked prometheus.Gauge

	// Upstream analysis service
	upstreamLatency *prometheus.HistogramVec
	backendUp       prometheus.Gauge

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // registry behind /metrics
)

func init() { //nolint:gochecknoinits // global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// registry and returns that registry. Handlers built from GetRegistry before
// the call keep serving the old one.
func Configure(opts ...Option) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts[:len(opts):len(opts)], WithPrometheusRegistry(registry))...)
	customRegistry.Store(registry)
	globalManager.Store(m)
	return registry
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "coach",
		subsystem:        "web",
		histogramBuckets: latencyBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "HTTP errors by endpoint, method and error type",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.submissions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "submissions_total",
			Help:        "Analysis submissions by outcome",
			ConstLabels: labels,
		},
		[]string{"outcome"},
	)

	m.inFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submissions_in_flight",
		Help:        "Analyses currently waiting on the upstream service",
		ConstLabels: labels,
	})

	m.renderLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "render_duration_milliseconds",
		Help:        "Time spent normalizing and rendering an analysis response",
		Buckets:     []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50},
		ConstLabels: labels,
	})

	m.sessionsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sessions_tracked",
		Help:        "Upstream session ids remembered per user",
		ConstLabels: labels,
	})

	m.upstreamLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "upstream_request_duration_milliseconds",
			Help:        "Latency of calls to the analysis service",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"operation", "outcome"},
	)

	m.backendUp = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "backend_up",
		Help:        "1 if the last health probe of the analysis service succeeded",
		ConstLabels: labels,
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "Allocated heap bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutine_count",
		Help:        "Current number of goroutines",
		ConstLabels: labels,
	})
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordSubmission counts one analysis submission with its outcome.
func RecordSubmission(outcome string) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// UpdateInFlight sets the number of analyses waiting on the upstream.
func UpdateInFlight(n int64) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	m.inFlight.Set(float64(n))
}

// RecordRenderLatency records normalize+render time in milliseconds.
func RecordRenderLatency(latencyMs float64) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	m.renderLatency.Observe(latencyMs)
}

// UpdateSessionCount sets the number of remembered upstream sessions.
func UpdateSessionCount(n int) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	m.sessionsTracked.Set(float64(n))
}

// RecordUpstreamLatency records one call to the analysis service.
func RecordUpstreamLatency(operation, outcome string, latencyMs float64) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	m.upstreamLatency.WithLabelValues(operation, outcome).Observe(latencyMs)
}

// SetBackendUp records the result of the last health probe.
func SetBackendUp(up bool) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	if up {
		m.backendUp.Set(1)
		return
	}
	m.backendUp.Set(0)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	m.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	m := globalManager.Load()
	if !m.enabled.Load() {
		return
	}
	m.systemGoroutineCount.Set(float64(count))
}

// SetEnabled toggles recording on the global manager.
func SetEnabled(enabled bool) {
	globalManager.Load().enabled.Store(enabled)
}

// GetRegistry returns the registry of the current global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
