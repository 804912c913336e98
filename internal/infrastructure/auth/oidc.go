package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/infrastructure/config"
)

// OIDCVerifier verifies ID tokens issued by an external OpenID Connect provider
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	timeout  time.Duration
}

// NewOIDCVerifier discovers the provider at cfg.Issuer and checks tokens against cfg.ClientID
func NewOIDCVerifier(ctx context.Context, cfg config.IdentityConfig) (*OIDCVerifier, error) {
	dctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	provider, err := oidc.NewProvider(dctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover identity provider: %w", err)
	}
	return NewOIDCVerifierFrom(provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}), cfg.Timeout), nil
}

// NewOIDCVerifierFrom wraps an already configured token verifier
func NewOIDCVerifierFrom(v *oidc.IDTokenVerifier, timeout time.Duration) *OIDCVerifier {
	return &OIDCVerifier{verifier: v, timeout: timeout}
}

// Verify implements Verifier
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (identity.Principal, error) {
	if token == "" {
		return identity.Principal{}, ErrMissingToken
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var extra struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&extra); err != nil {
		return identity.Principal{}, ErrInvalidClaims
	}
	c := Claims{Email: extra.Email}
	c.Subject = idToken.Subject
	return c.Principal()
}

var _ Verifier = (*OIDCVerifier)(nil)
