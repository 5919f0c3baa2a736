// Package monitoring collects Prometheus metrics for the gateway.
//
// Metrics cover:
//   - HTTP traffic: request counts, durations, sizes by method/path/status
//   - Admission control: allow/deny decisions, tracked limiter keys
//   - CORS: preflight volume
//   - Proxy: upstream failures
//
// A JSON snapshot of headline numbers is kept alongside the Prometheus
// registry for the /metrics/json endpoint.
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	router.Use(monitoring.Middleware(metrics))
package monitoring
