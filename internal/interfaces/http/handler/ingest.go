package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	billingapp "github.com/otahub/backend/internal/application/billing"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/otahub/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// UsageSink persists device and bandwidth usage
type UsageSink interface {
	RecordDeviceReport(ctx context.Context, rep billingapp.DeviceReport) error
	RecordBandwidth(ctx context.Context, u *billing.BandwidthUsage) error
}

// IngestHandler receives usage from devices and from the CDN edge
type IngestHandler struct {
	BaseHandler
	usage UsageSink
}

// NewIngestHandler creates a new IngestHandler
func NewIngestHandler(usage UsageSink) *IngestHandler {
	return &IngestHandler{usage: usage}
}

// StatsRequest is one device stats line
type StatsRequest struct {
	AppID         string `json:"app_id" binding:"required,max=255"`
	DeviceID      string `json:"device_id" binding:"required,max=255"`
	Action        string `json:"action" binding:"required"`
	VersionName   string `json:"version_name" binding:"max=255"`
	VersionID     int64  `json:"version_id" binding:"gte=0"`
	Platform      string `json:"platform" binding:"max=32"`
	PluginVersion string `json:"plugin_version" binding:"max=64"`
}

// BandwidthRequest is one download served to a device
type BandwidthRequest struct {
	AppID    string `json:"app_id" binding:"required,max=255"`
	DeviceID string `json:"device_id" binding:"required,max=255"`
	FileSize int64  `json:"file_size" binding:"gte=0"`
}

// PostStats handles POST /stats. Devices cannot act on a storage failure, so once
// the body is valid the answer is always ok and failures are only logged.
func (h *IngestHandler) PostStats(c *gin.Context) {
	var req StatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Status(c, http.StatusBadRequest, dto.StatusInvalidBody)
		return
	}
	action, err := billing.ParseAction(req.Action)
	if err != nil {
		h.Status(c, http.StatusBadRequest, dto.StatusInvalidBody)
		return
	}

	c.Request = c.Request.WithContext(logger.WithAppID(c.Request.Context(), req.AppID))

	err = h.usage.RecordDeviceReport(c.Request.Context(), billingapp.DeviceReport{
		AppID:         req.AppID,
		DeviceID:      req.DeviceID,
		Action:        action,
		VersionName:   req.VersionName,
		VersionID:     req.VersionID,
		Platform:      req.Platform,
		PluginVersion: req.PluginVersion,
	})
	if err != nil {
		logger.L(c.Request.Context()).Warn("device stats not recorded",
			zap.String("action", req.Action),
			zap.Error(err))
	}
	h.Status(c, http.StatusOK, dto.StatusOK)
}

// PostBandwidth handles POST /usage/bandwidth. The caller is a trusted service that
// retries, so a failed write is reported.
func (h *IngestHandler) PostBandwidth(c *gin.Context) {
	var req BandwidthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Status(c, http.StatusBadRequest, dto.StatusInvalidBody)
		return
	}
	u, err := billing.NewBandwidthUsage(req.AppID, req.DeviceID, req.FileSize)
	if err != nil {
		h.Status(c, http.StatusBadRequest, dto.StatusInvalidBody)
		return
	}
	if err := h.usage.RecordBandwidth(c.Request.Context(), u); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Status(c, http.StatusOK, dto.StatusOK)
}
