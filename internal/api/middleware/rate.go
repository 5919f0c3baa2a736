package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verdantlabs/gatekit/internal/infrastructure/logging"
	"github.com/verdantlabs/gatekit/internal/infrastructure/monitoring"
	"github.com/verdantlabs/gatekit/internal/ratelimit"
)

// RateLimitConfig defines the gate applied to API paths.
type RateLimitConfig struct {
	// APIPrefix marks the paths subject to the limiter.
	APIPrefix string
	// AuthPrefix is exempted; the auth provider applies its own lockout.
	AuthPrefix string
	Policy     ratelimit.Policy
}

// DefaultRateLimitConfig returns the uniform API policy: 60 requests per
// client per minute.
func DefaultRateLimitConfig(apiPrefix, authPrefix string) RateLimitConfig {
	return RateLimitConfig{
		APIPrefix:  apiPrefix,
		AuthPrefix: authPrefix,
		Policy:     ratelimit.Policy{Limit: 60, Window: time.Minute},
	}
}

// RateLimit creates the per-client admission middleware. Requests are
// bucketed by resolved client identity and path, so one noisy route
// cannot starve a client's other calls.
func RateLimit(cfg RateLimitConfig, store ratelimit.Store, logger *logging.Logger, metrics *monitoring.Metrics) gin.HandlerFunc {
	if cfg.Policy.BucketCap > 0 && cfg.Policy.BucketCap < cfg.Policy.Limit {
		// the cap keeps the stored count below the limit, so the limiter
		// can never deny
		logger.Warn("Rate limit bucket cap below limit; limiter cannot deny",
			zap.Int("bucket_cap", cfg.Policy.BucketCap),
			zap.Int("limit", cfg.Policy.Limit),
		)
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, cfg.APIPrefix) || strings.HasPrefix(path, cfg.AuthPrefix) {
			c.Next()
			return
		}

		client := ResolveClient(c.Request.Header)
		key := client + ":" + path

		dec, err := store.Consume(c.Request.Context(), key, cfg.Policy)
		if err != nil {
			// a broken shared counter must not take the edge down with
			// it; admit and let the process-local guards hold the line
			logger.Warn("Rate limit store unavailable, admitting request",
				zap.String("key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}

		setRateHeaders(c, dec)
		if metrics != nil {
			metrics.RecordRateDecision(dec.Allowed)
		}

		if !dec.Allowed {
			logger.Debug("Rate limit exceeded",
				zap.String("client", client),
				zap.String("path", path),
				zap.Int("reset_seconds", dec.Reset),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok": false,
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests. Please try again shortly.",
				},
			})
			return
		}

		c.Next()
	}
}

// setRateHeaders reflects the decision on the response, allowed or denied.
func setRateHeaders(c *gin.Context, dec ratelimit.Decision) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
	h.Set("X-RateLimit-Reset", strconv.Itoa(dec.Reset))
}
