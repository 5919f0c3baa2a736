package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// OverloadConfig defines the process-wide token bucket backstop.
type OverloadConfig struct {
	RequestsPerSecond int
	Burst             int
}

// Overload creates a global rate limiting middleware. Unlike the
// per-client window it protects the process as a whole, answering 503
// when the bucket is drained.
func Overload(cfg OverloadConfig) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"ok": false,
				"error": gin.H{
					"code":    "overloaded",
					"message": "Service is temporarily overloaded. Please retry.",
				},
			})
			return
		}
		c.Next()
	}
}
