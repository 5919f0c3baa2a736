package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS negotiation options for API paths.
type CORSConfig struct {
	// APIPrefix limits negotiation to API paths; other paths are left
	// untouched.
	APIPrefix string
	// AllowedOrigins extends the same-origin rule with an explicit
	// allowlist of foreign origins.
	AllowedOrigins []string
	AllowMethods   []string
	AllowHeaders   []string
	MaxAge         time.Duration
}

// DefaultCORSConfig returns production-ready CORS configuration for the
// given API prefix.
func DefaultCORSConfig(apiPrefix string) CORSConfig {
	return CORSConfig{
		APIPrefix:    apiPrefix,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept",
			"Accept-Encoding",
			"Authorization",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
		},
		MaxAge: 12 * time.Hour,
	}
}

// CORS creates the negotiation middleware. A request whose Origin header
// is absent or matches its own origin (or the allowlist) gets the allow
// headers reflected back; a foreign origin gets none of them and the
// browser enforces the block. OPTIONS requests on API paths short-circuit
// to an empty 204 preflight.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, cfg.APIPrefix) {
			c.Next()
			return
		}

		if origin, ok := negotiateOrigin(c.Request, cfg.AllowedOrigins); ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Max-Age", maxAge)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// negotiateOrigin decides which origin, if any, to allow for r. An absent
// Origin header resolves to the request's own origin; a present one is
// allowed when it equals the request's own origin or sits on the
// allowlist.
func negotiateOrigin(r *http.Request, allowlist []string) (string, bool) {
	own := ownOrigin(r)
	origin := r.Header.Get("Origin")
	if origin == "" || origin == own {
		if origin == "" {
			origin = own
		}
		return origin, true
	}
	for _, allowed := range allowlist {
		if origin == allowed {
			return origin, true
		}
	}
	return "", false
}

func ownOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
