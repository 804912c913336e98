package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/domain/shared"
	infrabilling "github.com/otahub/backend/internal/infrastructure/billing"
	"github.com/otahub/backend/internal/infrastructure/store"
	"go.uber.org/zap"
)

// CustomerCreator provisions a customer in the billing provider
type CustomerCreator interface {
	CreateCustomer(ctx context.Context, input infrabilling.CreateCustomerInput) (string, error)
}

// WebhookParser verifies and decodes billing provider webhooks
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (*infrabilling.SubscriptionChange, error)
}

// ErrInvalidWebhook is returned when a webhook fails signature verification
var ErrInvalidWebhook = shared.NewDomainError(shared.KindValidation, "INVALID_WEBHOOK", "Webhook could not be verified")

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// BillingService applies billing provider state to organizations
type BillingService struct {
	clients  *store.Factory
	customer CustomerCreator
	webhooks WebhookParser
	segments *SegmentService
	logger   *zap.Logger
}

// BillingServiceConfig contains the collaborators of a BillingService
type BillingServiceConfig struct {
	Clients   *store.Factory
	Customers CustomerCreator
	Webhooks  WebhookParser
	Segments  *SegmentService
	Logger    *zap.Logger
}

// NewBillingService creates a new BillingService
func NewBillingService(cfg BillingServiceConfig) *BillingService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &BillingService{
		clients:  cfg.Clients,
		customer: cfg.Customers,
		webhooks: cfg.Webhooks,
		segments: cfg.Segments,
		logger:   cfg.Logger,
	}
}

// EnsureCustomer returns the org's billing customer, creating it when the org has none
func (s *BillingService) EnsureCustomer(ctx context.Context, orgID uuid.UUID) (string, error) {
	admin := s.clients.Elevated()
	org, err := store.Call(ctx, admin, store.GetOrg, store.OrgParams{OrgID: orgID})
	if err != nil {
		return "", fmt.Errorf("load org: %w", err)
	}
	if org.HasCustomer() {
		return org.CustomerID, nil
	}

	customerID, err := s.customer.CreateCustomer(ctx, infrabilling.CreateCustomerInput{
		OrgID: org.ID,
		Email: org.ManagementEmail,
		Name:  org.Name,
	})
	if err != nil {
		return "", shared.ErrTransient.Wrap(err)
	}
	if _, err := store.Call(ctx, admin, store.SetOrgCustomer, store.SetCustomerParams{OrgID: orgID, CustomerID: customerID}); err != nil {
		return "", fmt.Errorf("attach customer %s: %w", customerID, err)
	}

	s.logger.Info("billing customer created",
		zap.String("org_id", orgID.String()),
		zap.String("customer_id", customerID))
	return customerID, nil
}

// HandleWebhook verifies a provider webhook, applies subscription changes to the
// matching org and resyncs its segments. Events for unknown customers are
// acknowledged without changes so the provider stops retrying them.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	change, err := s.webhooks.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("webhook rejected", zap.Error(err))
		return nil, ErrInvalidWebhook.Wrap(err)
	}

	result := &WebhookResult{EventID: change.EventID, EventType: change.EventType, Processed: true}
	log := s.logger.With(zap.String("event_id", change.EventID), zap.String("event_type", change.EventType))

	if change.Kind == infrabilling.EventIgnored {
		log.Debug("webhook event type not handled")
		result.Message = "Event type not handled"
		return result, nil
	}
	if change.CustomerID == "" {
		log.Warn("subscription has no customer, skipping")
		result.Message = "No customer"
		return result, nil
	}

	admin := s.clients.Elevated()
	b, err := store.Call(ctx, admin, store.GetOrgBillingByCustomer, store.CustomerParams{CustomerID: change.CustomerID})
	if shared.KindOf(err) == shared.KindNotFound {
		log.Warn("no org for billing customer", zap.String("customer_id", change.CustomerID))
		result.Message = "Unknown customer"
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load billing of customer %s: %w", change.CustomerID, err)
	}

	if err := change.Apply(b); err != nil {
		return nil, err
	}
	if _, err := store.Call(ctx, admin, store.UpdateOrgBilling, b); err != nil {
		return nil, fmt.Errorf("update billing of org %s: %w", b.OrgID, err)
	}
	log.Info("subscription applied",
		zap.String("org_id", b.OrgID.String()),
		zap.String("status", string(b.Status)),
		zap.String("product_id", b.ProductID))

	// the billing state is committed; a failed push is healed by the next reconcile
	if s.segments != nil {
		if _, err := s.segments.SyncOrg(ctx, b.OrgID); err != nil {
			log.Warn("segment sync after webhook failed", zap.String("org_id", b.OrgID.String()), zap.Error(err))
		}
	}
	return result, nil
}

// Status returns the org's billing state, the zero state when none was recorded
func (s *BillingService) Status(ctx context.Context, client *store.Client, orgID uuid.UUID) (*billing.OrgBilling, error) {
	b, err := store.Call(ctx, client, store.GetOrgBilling, store.OrgParams{OrgID: orgID})
	if shared.KindOf(err) == shared.KindNotFound {
		return billing.NewOrgBilling(orgID, "")
	}
	return b, err
}
