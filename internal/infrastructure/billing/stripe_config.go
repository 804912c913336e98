package billing

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/otahub/backend/internal/infrastructure/config"
	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string

	// WebhookSecret verifies webhook signatures (whsec_xxx)
	WebhookSecret string

	// Timeout bounds every API call
	Timeout time.Duration
}

// StripeConfigFrom maps the application configuration section
func StripeConfigFrom(cfg config.StripeConfig) *StripeConfig {
	return &StripeConfig{
		SecretKey:     cfg.SecretKey,
		WebhookSecret: cfg.WebhookSecret,
		Timeout:       cfg.Timeout,
	}
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}
	if !strings.HasPrefix(c.SecretKey, "sk_") && !strings.HasPrefix(c.SecretKey, "rk_") {
		return fmt.Errorf("stripe: secret key must be a secret or restricted key")
	}
	return nil
}

// IsTestMode reports whether the key targets Stripe test mode
func (c *StripeConfig) IsTestMode() bool {
	return strings.Contains(c.SecretKey, "_test_")
}

// InitStripeClient sets the API key and a bounded HTTP client on the global backend
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
	if c.Timeout > 0 {
		stripe.SetBackend(stripe.APIBackend, stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			HTTPClient: &http.Client{Timeout: c.Timeout},
		}))
	}
}
