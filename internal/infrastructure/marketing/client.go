// Package marketing pushes account segments to the marketing automation service.
package marketing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/segment"
	"github.com/otahub/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const segmentsPath = "/v1/contacts/segments"

// ErrDisabled is returned when segment sync is switched off in configuration
var ErrDisabled = errors.New("marketing: segment sync disabled")

// Contact identifies whose segments are pushed
type Contact struct {
	OrgID uuid.UUID
	Email string
}

type segmentRequest struct {
	Email          string   `json:"email"`
	OrgID          string   `json:"org_id"`
	Segments       []string `json:"segments"`
	DeleteSegments []string `json:"deleteSegments"`
}

// Client pushes segments over HTTP, retrying transient failures with exponential backoff
type Client struct {
	http            *http.Client
	baseURL         string
	apiKey          string
	enabled         bool
	maxTries        uint
	initialInterval time.Duration
	logger          *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithInitialInterval sets the first retry delay
func WithInitialInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.initialInterval = d
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client from configuration
func NewClient(cfg config.MarketingConfig, opts ...ClientOption) *Client {
	c := &Client{
		http:            &http.Client{Timeout: cfg.Timeout},
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		enabled:         cfg.Enabled,
		maxTries:        uint(max(cfg.MaxRetries, 0)) + 1,
		initialInterval: 500 * time.Millisecond,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether pushes are sent
func (c *Client) Enabled() bool {
	return c.enabled
}

// PushSegments replaces the contact's segment membership: tags in s.Segments are added,
// tags in s.DeleteSegments removed.
func (c *Client) PushSegments(ctx context.Context, contact Contact, s segment.Segments) error {
	if !c.enabled {
		return ErrDisabled
	}
	body, err := json.Marshal(segmentRequest{
		Email:          contact.Email,
		OrgID:          contact.OrgID.String(),
		Segments:       nonNil(s.Segments),
		DeleteSegments: nonNil(s.DeleteSegments),
	})
	if err != nil {
		return fmt.Errorf("marketing: failed to encode segments: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval

	attempt := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := c.post(ctx, body)
		if err != nil {
			c.logger.Debug("segment push attempt failed",
				zap.String("org_id", contact.OrgID.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return fmt.Errorf("marketing: push segments for org %s: %w", contact.OrgID, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+segmentsPath, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	default:
		return backoff.Permanent(fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)))
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
