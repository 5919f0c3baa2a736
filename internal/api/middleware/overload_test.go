package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestOverloadGuard(t *testing.T) {
	router := setupTestRouter()
	router.Use(Overload(OverloadConfig{RequestsPerSecond: 1, Burst: 2}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// burst capacity admits the first two
	for i := 0; i < 2; i++ {
		w := doRequest(router, "GET", "/test", "")
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(router, "GET", "/test", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "overloaded")
}

func TestRequestID(t *testing.T) {
	router := setupTestRouter()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := doRequest(router, "GET", "/test", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDReusesInbound(t *testing.T) {
	router := setupTestRouter()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req, _ := http.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "front-proxy-id")
	w := doRequestRaw(router, req)
	assert.Equal(t, "front-proxy-id", w.Header().Get("X-Request-ID"))
}
