// Package http provides the gateway's own HTTP handlers: service
// identity, health with an upstream probe, and the metrics JSON API.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/verdantlabs/gatekit/internal/infrastructure/monitoring"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Handlers serves the endpoints the gateway answers itself rather than
// proxying.
type Handlers struct {
	upstreamURL string
	probe       *retryablehttp.Client
	metrics     *monitoring.Metrics
}

// NewHandlers creates the handler set. The upstream probe retries twice
// with a short timeout so a flapping backend does not hang health checks.
func NewHandlers(upstreamURL string, metrics *monitoring.Metrics) *Handlers {
	probe := retryablehttp.NewClient()
	probe.RetryMax = 2
	probe.RetryWaitMin = 100 * time.Millisecond
	probe.RetryWaitMax = 500 * time.Millisecond
	probe.HTTPClient.Timeout = 2 * time.Second
	probe.Logger = nil

	return &Handlers{
		upstreamURL: upstreamURL,
		probe:       probe,
		metrics:     metrics,
	}
}

// Root returns service identity.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": "gatekit",
		"version": Version,
	})
}

// Health reports gateway liveness and upstream reachability. The gateway
// itself is healthy even when the upstream is not; the status field lets
// orchestrators tell the two apart.
func (h *Handlers) Health(c *gin.Context) {
	upstream := "ok"

	req, err := retryablehttp.NewRequestWithContext(c.Request.Context(), http.MethodGet, h.upstreamURL+"/health", nil)
	if err != nil {
		upstream = "unreachable"
	} else if resp, err := h.probe.Do(req); err != nil {
		upstream = "unreachable"
	} else {
		resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			upstream = "degraded"
		}
	}

	overall := "ok"
	if upstream != "ok" {
		overall = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"status":   overall,
		"upstream": upstream,
	})
}

// MetricsJSON returns the snapshot counters for dashboards that do not
// scrape Prometheus.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	snap := h.metrics.GetSnapshot()

	avgMs := 0.0
	if snap.RequestCount > 0 {
		avgMs = snap.TotalDuration / float64(snap.RequestCount) * 1000
	}

	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"metrics": gin.H{
			"total_requests":  snap.TotalRequests,
			"total_errors":    snap.TotalErrors,
			"rate_allowed":    snap.RateAllowed,
			"rate_denied":     snap.RateDenied,
			"preflights":      snap.Preflights,
			"upstream_errors": snap.UpstreamErrors,
			"avg_duration_ms": avgMs,
			"uptime_seconds":  h.metrics.UptimeSeconds(),
		},
	})
}
