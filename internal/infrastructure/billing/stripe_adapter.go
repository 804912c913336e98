// Package billing talks to the Stripe API: customer provisioning and webhook verification.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/otahub/backend/internal/domain/billing"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// StripeAdapter implements the billing provider operations on Stripe
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger,
	}, nil
}

// CreateCustomer creates a new customer in Stripe tagged with the org id
func (a *StripeAdapter) CreateCustomer(ctx context.Context, input CreateCustomerInput) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(input.Email),
		Name:  stripe.String(input.Name),
		Metadata: map[string]string{
			"org_id": input.OrgID.String(),
		},
	}
	params.Context = ctx

	cust, err := customer.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe customer",
			zap.String("org_id", input.OrgID.String()),
			zap.Error(err))
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	a.logger.Info("Created Stripe customer",
		zap.String("org_id", input.OrgID.String()),
		zap.String("customer_id", cust.ID))
	return cust.ID, nil
}

// ParseWebhook verifies the signature of a webhook payload and maps subscription
// events. Other event types come back with Kind EventIgnored.
func (a *StripeAdapter) ParseWebhook(payload []byte, signature string) (*SubscriptionChange, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, a.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	change := &SubscriptionChange{
		EventID:   event.ID,
		EventType: string(event.Type),
		Kind:      EventIgnored,
	}
	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated, stripe.EventTypeCustomerSubscriptionUpdated:
		change.Kind = EventSubscriptionChanged
	case stripe.EventTypeCustomerSubscriptionDeleted:
		change.Kind = EventSubscriptionDeleted
	default:
		return change, nil
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
	}
	if sub.Customer != nil {
		change.CustomerID = sub.Customer.ID
	}
	change.SubscriptionID = sub.ID
	change.Status = mapStripeSubscriptionStatus(sub.Status)
	if change.Kind == EventSubscriptionDeleted {
		change.Status = billing.StatusCanceled
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		change.PriceID = price.ID
		if price.Product != nil {
			change.ProductID = price.Product.ID
		}
	}
	change.CycleStart = unixPtr(sub.CurrentPeriodStart)
	change.CycleEnd = unixPtr(sub.CurrentPeriodEnd)
	change.TrialEnd = unixPtr(sub.TrialEnd)
	return change, nil
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// mapStripeSubscriptionStatus maps a Stripe subscription status onto the billing status.
// Trials and unfinished checkouts stay created; only an active subscription pays.
func mapStripeSubscriptionStatus(status stripe.SubscriptionStatus) billing.Status {
	switch status {
	case stripe.SubscriptionStatusActive:
		return billing.StatusSucceeded
	case stripe.SubscriptionStatusCanceled:
		return billing.StatusCanceled
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncompleteExpired:
		return billing.StatusFailed
	default:
		return billing.StatusCreated
	}
}
