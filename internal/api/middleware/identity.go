package middleware

import (
	"net/http"
	"strings"
)

// UnknownClient is the shared identity for requests carrying none of the
// forwarding headers. Such clients share one rate-limit bucket, which
// coarsens enforcement but never fails the request.
const UnknownClient = "unknown"

// forwarding headers in priority order. All of them are
// client-influenceable unless a trusted proxy strips and re-sets them
// upstream of this process.
const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
	headerPlatformIP   = "CF-Connecting-IP"
)

// ResolveClient derives a best-effort client identity from request
// headers. The left-most X-Forwarded-For entry is the original client;
// failing that the real-IP header, then the platform header, then the
// shared sentinel. It never fails.
func ResolveClient(h http.Header) string {
	if xff := h.Get(headerForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(h.Get(headerRealIP)); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(h.Get(headerPlatformIP)); ip != "" {
		return ip
	}
	return UnknownClient
}
