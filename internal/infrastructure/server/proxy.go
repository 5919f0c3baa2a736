package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"github.com/verdantlabs/gatekit/internal/infrastructure/logging"
	"github.com/verdantlabs/gatekit/internal/infrastructure/monitoring"
)

// newProxy builds the downstream handler: a reverse proxy that forwards
// requests to the upstream backend without touching bodies. Upstream
// failures are answered with a gateway-authored 502 envelope.
func newProxy(upstream *url.URL, logger *logging.Logger, metrics *monitoring.Metrics) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(upstream)

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("Upstream request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		metrics.RecordUpstreamError()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"ok":false,"error":{"code":"upstream_unavailable","message":"The backend is temporarily unavailable."}}`))
	}

	return proxy
}
