package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	billingapp "github.com/otahub/backend/internal/application/billing"
	"github.com/otahub/backend/internal/domain/shared"
)

// Maximum webhook payload size (64KB - Stripe webhooks are typically small)
const maxWebhookPayloadSize = 65536

// WebhookProcessor verifies and applies billing provider events
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*billingapp.WebhookResult, error)
}

// BillingWebhookHandler handles the billing provider webhook.
// The provider authenticates by signature, not by bearer token.
type BillingWebhookHandler struct {
	BaseHandler
	webhooks WebhookProcessor
}

// NewBillingWebhookHandler creates a new BillingWebhookHandler
func NewBillingWebhookHandler(webhooks WebhookProcessor) *BillingWebhookHandler {
	return &BillingWebhookHandler{webhooks: webhooks}
}

// WebhookResponse is returned to the billing provider
type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleStripeWebhook handles POST /billing/stripe/webhook. Failures after the
// signature check answer 500 so the provider redelivers the event.
func (h *BillingWebhookHandler) HandleStripeWebhook(c *gin.Context) {
	// the signature covers the raw body
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Failed to read request body"})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
		return
	}
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Missing Stripe-Signature header"})
		return
	}

	result, err := h.webhooks.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		_ = c.Error(err)
		if shared.KindOf(err) == shared.KindValidation {
			c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Webhook signature verification failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, WebhookResponse{Message: "Webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Message:   result.Message,
	})
}
