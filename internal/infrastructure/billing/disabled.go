package billing

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by Disabled for every provider call
var ErrNotConfigured = errors.New("billing provider is not configured")

// Disabled stands in for the provider when no secret key is configured. Webhooks are
// refused and no customer is ever created.
type Disabled struct{}

// CreateCustomer always fails with ErrNotConfigured
func (Disabled) CreateCustomer(context.Context, CreateCustomerInput) (string, error) {
	return "", ErrNotConfigured
}

// ParseWebhook always fails with ErrNotConfigured
func (Disabled) ParseWebhook([]byte, string) (*SubscriptionChange, error) {
	return nil, ErrNotConfigured
}
