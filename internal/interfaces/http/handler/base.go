// Package handler holds the gin handlers of the OTA backend.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/interfaces/http/dto"
	"github.com/otahub/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// principal returns the authenticated caller. Routes behind BearerAuth always have one.
func (h *BaseHandler) principal(c *gin.Context) (identity.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
	}
	return p, ok
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Status sends a flat device facing status body
func (h *BaseHandler) Status(c *gin.Context, code int, status string) {
	c.JSON(code, dto.StatusResponse{Status: status})
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError converts an error to an HTTP response by its domain kind.
// Errors carrying no kind are internal and their cause is never echoed.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	code := dto.CodeForError(err)
	h.Error(c, dto.GetHTTPStatus(code), code, dto.MessageForError(err))
}
