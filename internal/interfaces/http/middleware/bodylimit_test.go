package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(limit))
	r.POST("/stats", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "Invalid body"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestBodyLimit(t *testing.T) {
	small := `{"app_id":"com.demo.app","device_id":"d1"}`
	large := `{"app_id":"` + strings.Repeat("x", 256) + `"}`

	tests := []struct {
		name          string
		method        string
		path          string
		body          string
		contentLength int64
		wantStatus    int
		wantBody      string
	}{
		{"within limit", http.MethodPost, "/stats", small, int64(len(small)), http.StatusOK, `"ok"`},
		{"declared length over limit", http.MethodPost, "/stats", large, int64(len(large)), http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE"},
		{"chunked body over limit", http.MethodPost, "/stats", large, -1, http.StatusBadRequest, "Invalid body"},
		{"no body", http.MethodGet, "/health", "", 0, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()

			bodyLimitRouter(128).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}
