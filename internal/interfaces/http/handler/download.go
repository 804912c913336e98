package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otahub/backend/internal/application/download"
	"github.com/otahub/backend/internal/domain/catalog"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/otahub/backend/internal/interfaces/http/dto"
	"github.com/otahub/backend/internal/interfaces/http/middleware"
)

// LinkAuthorizer issues download URLs for authorized requests
type LinkAuthorizer interface {
	Authorize(ctx context.Context, req download.Request) (string, error)
}

// DownloadHandler serves the bundle download link endpoint. The caller's token is
// checked by the authorizer, not by BearerAuth, so every rejection keeps its
// historical body.
type DownloadHandler struct {
	BaseHandler
	authorizer LinkAuthorizer
}

// NewDownloadHandler creates a new DownloadHandler
func NewDownloadHandler(authorizer LinkAuthorizer) *DownloadHandler {
	return &DownloadHandler{authorizer: authorizer}
}

// DownloadLinkRequest is the download link request body
type DownloadLinkRequest struct {
	AppID           string `json:"app_id" binding:"required,max=255"`
	StorageProvider string `json:"storage_provider" binding:"required,storage_provider"`
	ID              int64  `json:"id" binding:"required,gt=0"`
}

// CreateLink handles POST /bundles/download-link. The bearer gate runs before the body is read.
func (h *DownloadHandler) CreateLink(c *gin.Context) {
	authorization := c.GetHeader(middleware.AuthHeaderKey)
	if !download.HasBearer(authorization) {
		h.reject(c, download.NoAuthorization())
		return
	}

	var req DownloadLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Status(c, http.StatusBadRequest, dto.StatusInvalidBody)
		return
	}
	provider, err := catalog.ParseStorageProvider(req.StorageProvider)
	if err != nil {
		h.Status(c, http.StatusBadRequest, dto.StatusInvalidBody)
		return
	}

	c.Request = c.Request.WithContext(logger.WithAppID(c.Request.Context(), req.AppID))

	url, err := h.authorizer.Authorize(c.Request.Context(), download.Request{
		Authorization:   authorization,
		AppID:           req.AppID,
		StorageProvider: provider,
		BundleID:        req.ID,
	})
	if err != nil {
		h.reject(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.URLResponse{URL: url})
}

// reject maps a rejection to its response. Server side faults share one opaque body.
func (h *DownloadHandler) reject(c *gin.Context, err error) {
	_ = c.Error(err)

	var rej *download.Rejection
	if !errors.As(err, &rej) {
		h.Status(c, http.StatusInternalServerError, dto.StatusUnknownError)
		return
	}
	switch rej.Reason {
	case download.ReasonNoAuthorization:
		h.Status(c, http.StatusBadRequest, dto.StatusNoAuthorization)
	case download.ReasonNotAuthorized:
		h.Status(c, http.StatusBadRequest, dto.StatusNotAuthorized)
	case download.ReasonInsufficientRight:
		c.JSON(http.StatusBadRequest, dto.StatusResponse{Status: dto.StatusCannotAccessApp, AppID: rej.AppID})
	default:
		h.Status(c, http.StatusInternalServerError, dto.StatusUnknownError)
	}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *DownloadHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bundles/download-link", h.CreateLink)
}
