package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing returns the otelgin middleware followed by a span enricher. Spans are
// named "METHOD route" and carry request_id, user_id and org_id once known.
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	return []gin.HandlerFunc{otelgin.Middleware(cfg.ServiceName), enrichSpan}
}

// enrichSpan runs inside the otelgin span, so attributes set after c.Next still land
// on an open span. Auth and permission middleware further down supply the ids.
func enrichSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	if id := getRequestID(c); id != "" {
		span.SetAttributes(attribute.String("request_id", id))
	}
	if p, ok := GetPrincipal(c); ok {
		span.SetAttributes(attribute.String("user_id", p.ID.String()))
	}
	if orgID, ok := GetOrgID(c); ok {
		span.SetAttributes(attribute.String("org_id", orgID.String()))
	}

	status := c.Writer.Status()
	if status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
