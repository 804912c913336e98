package storage

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/otahub/backend/internal/domain/catalog"
)

// StubSigner builds unsigned URLs under BaseURL. Development only, when no bucket is configured.
type StubSigner struct {
	BaseURL string
	Expiry  time.Duration
}

// NewStubSigner creates a new StubSigner
func NewStubSigner(baseURL string) *StubSigner {
	if baseURL == "" {
		baseURL = "http://localhost:9000/bundles"
	}
	return &StubSigner{BaseURL: strings.TrimRight(baseURL, "/"), Expiry: 15 * time.Minute}
}

// SignDownload implements Signer
func (s *StubSigner) SignDownload(_ context.Context, b catalog.OwnedBundle) (string, error) {
	key, err := b.ObjectKey()
	if err != nil {
		return "", err
	}
	q := url.Values{"expires": {time.Now().Add(s.Expiry).UTC().Format(time.RFC3339)}}
	return s.BaseURL + "/" + key + "?" + q.Encode(), nil
}

var _ Signer = (*StubSigner)(nil)
