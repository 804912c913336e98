// Package router assembles the HTTP routes of the OTA backend.
package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// APIPrefix is where every versioned route lives. Health stays at the root for probes.
const APIPrefix = "/api/v1"

// RouteRegistrar is implemented by handlers and surfaces that add routes to a group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Surface is a set of routes reached by one kind of caller. Its gate (the middleware
// proving who the caller is) runs before every route of the surface and nowhere else.
type Surface struct {
	name   string
	prefix string
	gate   []gin.HandlerFunc
	routes []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewSurface starts a surface under prefix, guarded by gate
func NewSurface(name, prefix string, gate ...gin.HandlerFunc) *Surface {
	return &Surface{name: name, prefix: prefix, gate: gate}
}

// Name identifies the surface in logs
func (s *Surface) Name() string { return s.name }

// Handle adds a route. Handlers run after the gate, in order.
func (s *Surface) Handle(method, p string, handlers ...gin.HandlerFunc) *Surface {
	s.routes = append(s.routes, route{method: method, path: p, handlers: handlers})
	return s
}

// GET adds a GET route
func (s *Surface) GET(p string, handlers ...gin.HandlerFunc) *Surface {
	return s.Handle(http.MethodGet, p, handlers...)
}

// POST adds a POST route
func (s *Surface) POST(p string, handlers ...gin.HandlerFunc) *Surface {
	return s.Handle(http.MethodPost, p, handlers...)
}

// Paths lists "METHOD /full/path" for every route, relative to base
func (s *Surface) Paths(base string) []string {
	out := make([]string, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r.method+" "+path.Join(base, s.prefix, r.path))
	}
	return out
}

// RegisterRoutes implements RouteRegistrar
func (s *Surface) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(s.prefix, s.gate...)
	for _, r := range s.routes {
		group.Handle(r.method, r.path, r.handlers...)
	}
}

// mountAPI registers every registrar under APIPrefix
func mountAPI(engine *gin.Engine, registrars ...RouteRegistrar) {
	api := engine.Group(APIPrefix)
	for _, r := range registrars {
		r.RegisterRoutes(api)
	}
}
