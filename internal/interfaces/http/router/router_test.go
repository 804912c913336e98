package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) { c.Status(http.StatusOK) }

func TestSurface_Routes(t *testing.T) {
	engine := gin.New()
	s := NewSurface("members", "/orgs/:org_id").
		GET("/usage", func(c *gin.Context) { c.String(http.StatusOK, c.Param("org_id")) }).
		POST("/segments/sync", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	mountAPI(engine, s)

	for _, tt := range []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/api/v1/orgs/o-1/usage", http.StatusOK},
		{http.MethodPost, "/api/v1/orgs/o-1/segments/sync", http.StatusAccepted},
		{http.MethodGet, "/api/v1/orgs/o-1/segments/sync", http.StatusNotFound},
		{http.MethodGet, "/orgs/o-1/usage", http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, tt.method+" "+tt.path)
	}

	assert.Equal(t, "members", s.Name())
	assert.Equal(t, []string{
		"GET /api/v1/orgs/:org_id/usage",
		"POST /api/v1/orgs/:org_id/segments/sync",
	}, s.Paths(APIPrefix))
}

func TestSurface_GateIsScopedToItsRoutes(t *testing.T) {
	engine := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }

	edge := NewSurface("edge", "/usage", deny).POST("/bandwidth", ok)
	devices := NewSurface("devices", "").POST("/stats", ok)
	mountAPI(engine, edge, devices)

	for path, want := range map[string]int{
		"/api/v1/usage/bandwidth": http.StatusUnauthorized,
		"/api/v1/stats":           http.StatusOK,
	} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, want, w.Code, path)
	}
}

func TestSurface_HandlersRunInOrder(t *testing.T) {
	engine := gin.New()
	var order []string
	step := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) { order = append(order, name); c.Next() }
	}
	mountAPI(engine, NewSurface("s", "/s", step("gate")).GET("/x", step("limit"), step("handler"), ok))

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/s/x", nil))
	assert.Equal(t, []string{"gate", "limit", "handler"}, order)
}
