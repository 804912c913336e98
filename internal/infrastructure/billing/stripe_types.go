package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/billing"
)

// CreateCustomerInput contains input for creating a Stripe customer
type CreateCustomerInput struct {
	OrgID uuid.UUID
	Email string
	Name  string
}

// EventKind classifies the webhook events the backend reacts to
type EventKind string

const (
	EventSubscriptionChanged EventKind = "subscription_changed"
	EventSubscriptionDeleted EventKind = "subscription_deleted"
	EventIgnored             EventKind = "ignored"
)

// SubscriptionChange is a verified subscription webhook mapped onto billing state
type SubscriptionChange struct {
	EventID        string
	EventType      string
	Kind           EventKind
	CustomerID     string
	SubscriptionID string
	Status         billing.Status
	ProductID      string
	PriceID        string
	CycleStart     *time.Time
	CycleEnd       *time.Time
	TrialEnd       *time.Time
}

// Apply writes the change onto an org's billing state
func (c *SubscriptionChange) Apply(b *billing.OrgBilling) error {
	if c.TrialEnd != nil {
		b.TrialAt = c.TrialEnd
	}
	return b.ApplySubscription(c.Status, c.ProductID, c.PriceID, c.SubscriptionID, c.CycleStart, c.CycleEnd)
}
