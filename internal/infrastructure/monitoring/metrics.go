package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Admission metrics
	RateDecisions *prometheus.CounterVec
	LimiterKeys   prometheus.Gauge

	// CORS metrics
	PreflightsTotal prometheus.Counter

	// Proxy metrics
	UpstreamErrors prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	registry *prometheus.Registry

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests  int64
	TotalErrors    int64
	RateAllowed    int64
	RateDenied     int64
	Preflights     int64
	UpstreamErrors int64
	TotalDuration  float64 // sum of all request durations
	RequestCount   int64   // count for averaging
}

// NewMetrics creates a new metrics collector with its own registry so
// tests can instantiate collectors side by side.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		startTime: time.Now(),
		registry:  registry,

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		RateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_rate_decisions_total",
				Help: "Rate limiter admission decisions",
			},
			[]string{"outcome"},
		),
		LimiterKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_rate_limiter_keys",
				Help: "Number of client keys tracked by the limiter",
			},
		),

		PreflightsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_cors_preflights_total",
				Help: "Total number of CORS preflight requests",
			},
		),

		UpstreamErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_upstream_errors_total",
				Help: "Total number of upstream proxy failures",
			},
		),

		Uptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_uptime_seconds",
				Help: "Gateway uptime in seconds",
			},
		),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.ResponseSize,
		m.RateDecisions,
		m.LimiterKeys,
		m.PreflightsTotal,
		m.UpstreamErrors,
		m.Uptime,
	)

	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
	m.Uptime.Set(time.Since(m.startTime).Seconds())

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRateDecision records a limiter admission outcome
func (m *Metrics) RecordRateDecision(allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.RateDecisions.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	if allowed {
		m.snapshot.RateAllowed++
	} else {
		m.snapshot.RateDenied++
	}
	m.mu.Unlock()
}

// RecordPreflight records a CORS preflight
func (m *Metrics) RecordPreflight() {
	m.PreflightsTotal.Inc()

	m.mu.Lock()
	m.snapshot.Preflights++
	m.mu.Unlock()
}

// RecordUpstreamError records an upstream proxy failure
func (m *Metrics) RecordUpstreamError() {
	m.UpstreamErrors.Inc()

	m.mu.Lock()
	m.snapshot.UpstreamErrors++
	m.mu.Unlock()
}

// SetLimiterKeys updates the tracked limiter key gauge
func (m *Metrics) SetLimiterKeys(n int) {
	m.LimiterKeys.Set(float64(n))
}

// GetSnapshot returns current metric values for the JSON API
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeSeconds returns seconds since the collector was created
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
