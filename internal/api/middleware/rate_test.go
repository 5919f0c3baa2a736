package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/gatekit/internal/infrastructure/logging"
	"github.com/verdantlabs/gatekit/internal/ratelimit"
)

func rateRouter(t *testing.T, policy ratelimit.Policy) *gin.Engine {
	t.Helper()
	store := ratelimit.NewMemoryStore()
	t.Cleanup(store.Close)

	cfg := RateLimitConfig{
		APIPrefix:  "/api",
		AuthPrefix: "/api/auth",
		Policy:     policy,
	}

	router := setupTestRouter()
	router.Use(SecurityHeaders())
	router.Use(RateLimit(cfg, store, logging.NewNop(), nil))
	router.Any("/api/chat", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.POST("/api/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func doRequest(router *gin.Engine, method, path, client string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if client != "" {
		req.Header.Set("X-Forwarded-For", client)
	}
	return doRequestRaw(router, req)
}

func doRequestRaw(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowsAndDenies(t *testing.T) {
	router := rateRouter(t, ratelimit.Policy{Limit: 3, Window: time.Minute})

	for i := 1; i <= 3; i++ {
		w := doRequest(router, "GET", "/api/chat", "1.2.3.4")
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := doRequest(router, "GET", "/api/chat", "1.2.3.4")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	var body struct {
		OK    bool `json:"ok"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.OK)
	assert.Equal(t, "rate_limited", body.Error.Code)
	assert.NotEmpty(t, body.Error.Message)

	// denied responses carry the full security-header set too
	for name, value := range PolicyHeaders() {
		assert.Equal(t, value, w.Header().Get(name), "header %s", name)
	}
}

func TestRateLimitHeadersOnAllowedResponses(t *testing.T) {
	router := rateRouter(t, ratelimit.Policy{Limit: 5, Window: time.Minute})

	w := doRequest(router, "GET", "/api/chat", "1.2.3.4")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimitKeysByClientAndPath(t *testing.T) {
	router := rateRouter(t, ratelimit.Policy{Limit: 1, Window: time.Minute})

	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/api/chat", "1.2.3.4").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "GET", "/api/chat", "1.2.3.4").Code)

	// a different client has its own bucket
	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/api/chat", "5.6.6.6").Code)

	// clients without identity headers share the sentinel bucket
	assert.Equal(t, http.StatusOK, doRequest(router, "GET", "/api/chat", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "GET", "/api/chat", "").Code)
}

func TestRateLimitSkipsAuthPath(t *testing.T) {
	router := rateRouter(t, ratelimit.Policy{Limit: 1, Window: time.Minute})

	for i := 0; i < 5; i++ {
		w := doRequest(router, "POST", "/api/auth/login", "1.2.3.4")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitSkipsNonAPIPaths(t *testing.T) {
	router := rateRouter(t, ratelimit.Policy{Limit: 1, Window: time.Minute})

	for i := 0; i < 5; i++ {
		w := doRequest(router, "GET", "/health", "1.2.3.4")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

type failingStore struct{}

func (failingStore) Consume(_ context.Context, _ string, _ ratelimit.Policy) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("counter unreachable")
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	cfg := RateLimitConfig{
		APIPrefix:  "/api",
		AuthPrefix: "/api/auth",
		Policy:     ratelimit.Policy{Limit: 1, Window: time.Minute},
	}

	router := setupTestRouter()
	router.Use(RateLimit(cfg, failingStore{}, logging.NewNop(), nil))
	router.GET("/api/chat", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		w := doRequest(router, "GET", "/api/chat", "1.2.3.4")
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
