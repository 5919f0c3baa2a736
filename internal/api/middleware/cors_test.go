package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func corsRouter(cfg CORSConfig) *gin.Engine {
	router := setupTestRouter()
	router.Use(SecurityHeaders())
	router.Use(CORS(cfg))
	router.Any("/api/chat", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/static/app.js", func(c *gin.Context) {
		c.String(http.StatusOK, "// js")
	})
	return router
}

func TestCORSSameOrigin(t *testing.T) {
	router := corsRouter(DefaultCORSConfig("/api"))

	req := httptest.NewRequest("POST", "http://gateway.local/api/chat", nil)
	req.Host = "gateway.local"
	req.Header.Set("Origin", "http://gateway.local")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://gateway.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Methods"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Headers"))
	assert.NotEmpty(t, w.Header().Get("Access-Control-Max-Age"))
}

func TestCORSAbsentOriginReflectsOwn(t *testing.T) {
	router := corsRouter(DefaultCORSConfig("/api"))

	req := httptest.NewRequest("GET", "http://gateway.local/api/chat", nil)
	req.Host = "gateway.local"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://gateway.local", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSForeignOriginGetsNoAllowHeaders(t *testing.T) {
	router := corsRouter(DefaultCORSConfig("/api"))

	req := httptest.NewRequest("GET", "http://gateway.local/api/chat", nil)
	req.Host = "gateway.local"
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// the request is still served; the browser enforces the block
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, w.Header().Get("Access-Control-Max-Age"))
}

func TestCORSAllowlistedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig("/api")
	cfg.AllowedOrigins = []string{"https://app.example.com"}
	router := corsRouter(cfg)

	req := httptest.NewRequest("GET", "http://gateway.local/api/chat", nil)
	req.Host = "gateway.local"
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	router := corsRouter(DefaultCORSConfig("/api"))

	req := httptest.NewRequest("OPTIONS", "http://gateway.local/api/chat", nil)
	req.Host = "gateway.local"
	req.Header.Set("Origin", "http://gateway.local")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "http://gateway.local", w.Header().Get("Access-Control-Allow-Origin"))
	// preflights carry the security-header set like every other response
	for name, value := range PolicyHeaders() {
		assert.Equal(t, value, w.Header().Get(name), "header %s", name)
	}
}

func TestCORSIgnoresNonAPIPaths(t *testing.T) {
	router := corsRouter(DefaultCORSConfig("/api"))

	req := httptest.NewRequest("GET", "http://gateway.local/static/app.js", nil)
	req.Host = "gateway.local"
	req.Header.Set("Origin", "http://gateway.local")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
