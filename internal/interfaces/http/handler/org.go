package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	billingapp "github.com/otahub/backend/internal/application/billing"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/domain/segment"
	"github.com/otahub/backend/internal/infrastructure/store"
	"github.com/otahub/backend/internal/interfaces/http/dto"
	"github.com/otahub/backend/internal/interfaces/http/middleware"
)

// UsageReporter evaluates an org's usage against its plan
type UsageReporter interface {
	Report(ctx context.Context, client *store.Client, orgID uuid.UUID) billingapp.UsageReport
}

// BillingReader reads an org's billing state
type BillingReader interface {
	Status(ctx context.Context, client *store.Client, orgID uuid.UUID) (*billing.OrgBilling, error)
}

// SegmentSyncer recomputes and pushes an org's segments
type SegmentSyncer interface {
	SyncOrg(ctx context.Context, orgID uuid.UUID) (segment.Segments, error)
}

// OrgHandler serves the organization scoped endpoints. Routes are mounted behind
// RequireOrgRight, which admits the org before the handler runs.
type OrgHandler struct {
	BaseHandler
	clients  *store.Factory
	usage    UsageReporter
	billing  BillingReader
	segments SegmentSyncer
	now      func() time.Time
}

// OrgHandlerConfig contains the collaborators of an OrgHandler
type OrgHandlerConfig struct {
	Clients  *store.Factory
	Usage    UsageReporter
	Billing  BillingReader
	Segments SegmentSyncer
}

// NewOrgHandler creates a new OrgHandler
func NewOrgHandler(cfg OrgHandlerConfig) *OrgHandler {
	return &OrgHandler{
		clients:  cfg.Clients,
		usage:    cfg.Usage,
		billing:  cfg.Billing,
		segments: cfg.Segments,
		now:      time.Now,
	}
}

// BillingStatusResponse is an org's subscription as shown to its members
type BillingStatusResponse struct {
	Status        string     `json:"status"`
	Paying        bool       `json:"paying"`
	ProductID     string     `json:"product_id,omitempty"`
	PriceID       string     `json:"price_id,omitempty"`
	TrialDaysLeft int        `json:"trial_days_left"`
	CycleStart    time.Time  `json:"cycle_start"`
	CycleEnd      time.Time  `json:"cycle_end"`
	TrialAt       *time.Time `json:"trial_at,omitempty"`
}

// GetUsage handles GET /orgs/:org_id/usage
func (h *OrgHandler) GetUsage(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orgID, _ := middleware.GetOrgID(c)
	h.Success(c, h.usage.Report(c.Request.Context(), h.clients.ForPrincipal(p), orgID))
}

// GetBilling handles GET /orgs/:org_id/billing
func (h *OrgHandler) GetBilling(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orgID, _ := middleware.GetOrgID(c)
	b, err := h.billing.Status(c.Request.Context(), h.clients.ForPrincipal(p), orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	now := h.now()
	start, end := b.Cycle(now)
	h.Success(c, BillingStatusResponse{
		Status:        string(b.Status),
		Paying:        b.IsPaying(),
		ProductID:     b.ProductID,
		PriceID:       b.PriceID,
		TrialDaysLeft: b.TrialDaysLeft(now),
		CycleStart:    start,
		CycleEnd:      end,
		TrialAt:       b.TrialAt,
	})
}

// SyncSegments handles POST /orgs/:org_id/segments/sync
func (h *OrgHandler) SyncSegments(c *gin.Context) {
	orgID, ok := middleware.GetOrgID(c)
	if !ok {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid organization id")
		return
	}
	segs, err := h.segments.SyncOrg(c.Request.Context(), orgID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, segs)
}
