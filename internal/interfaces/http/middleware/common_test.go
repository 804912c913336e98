package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestCORSWithConfig(t *testing.T) {
	const console = "https://console.otahub.test"
	dashboard := DefaultCORSConfig()
	dashboard.AllowOrigins = []string{console}

	tests := []struct {
		name            string
		cfg             CORSConfig
		method, origin  string
		wantStatus      int
		wantOrigin      string
		wantCredentials string
	}{
		{"default config refuses every origin", DefaultCORSConfig(), http.MethodGet, console, http.StatusOK, "", ""},
		{"listed origin gets credentials", dashboard, http.MethodGet, console, http.StatusOK, console, "true"},
		{"unlisted origin is ignored", dashboard, http.MethodGet, "https://evil.test", http.StatusOK, "", ""},
		{"request without origin", dashboard, http.MethodGet, "", http.StatusOK, "", ""},
		{"wildcard never allows credentials", CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true}, http.MethodGet, "https://any.test", http.StatusOK, "*", ""},
		{"preflight stops before the route", dashboard, http.MethodOptions, console, http.StatusNoContent, console, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			newTestRouter(CORSWithConfig(tt.cfg)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredentials, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}

	t.Run("preflight advertises the service key header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/test", nil)
		req.Header.Set("Origin", console)
		w := httptest.NewRecorder()
		newTestRouter(CORSWithConfig(dashboard)).ServeHTTP(w, req)

		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), ServiceKeyHeader)
		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, getRequestID(c))
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
		assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())
	})

	t.Run("keeps caller id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "caller-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "caller-id", w.Body.String())
	})

	t.Run("truncates long caller id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("a", 500))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Len(t, w.Body.String(), MaxRequestIDLength)
	})
}

func TestSecure(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(Secure()).ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}
