// Package auth verifies the bearer tokens presented by principals.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrMissingToken     = errors.New("missing bearer token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrTokenBlacklisted = errors.New("token has been revoked")
)

// Verifier resolves a bearer token to the principal it was issued to
type Verifier interface {
	Verify(ctx context.Context, token string) (identity.Principal, error)
}

// Claims represents custom JWT claims. The subject is the user UUID.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Principal returns the principal named by the claims
func (c *Claims) Principal() (identity.Principal, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil || id == uuid.Nil {
		return identity.Principal{}, ErrInvalidClaims
	}
	return identity.Principal{ID: id, Email: c.Email}, nil
}

// GetRemainingTTL returns the remaining time until the token expires
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

// JWTService issues and validates HS256 access tokens
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
	blacklist  TokenBlacklist
}

// NewJWTService creates a new JWT service. blacklist may be nil.
func NewJWTService(cfg config.JWTConfig, blacklist TokenBlacklist) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.AccessTokenExpiration,
		issuer:     cfg.Issuer,
		blacklist:  blacklist,
	}
}

// Issue signs an access token for p. A zero ttl uses the configured expiration.
func (s *JWTService) Issue(p identity.Principal, ttl time.Duration) (string, *Claims, error) {
	if p.IsZero() {
		return "", nil, ErrInvalidClaims
	}
	if ttl <= 0 {
		ttl = s.expiration
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   p.ID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: p.Email,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Parse validates the signature and time claims of tokenString
func (s *JWTService) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// Verify implements Verifier. Revoked tokens and tokens issued before a user-wide
// revocation are rejected. A blacklist failure rejects the token.
func (s *JWTService) Verify(ctx context.Context, tokenString string) (identity.Principal, error) {
	if tokenString == "" {
		return identity.Principal{}, ErrMissingToken
	}
	claims, err := s.Parse(tokenString)
	if err != nil {
		return identity.Principal{}, err
	}
	p, err := claims.Principal()
	if err != nil {
		return identity.Principal{}, err
	}
	if s.blacklist == nil {
		return p, nil
	}

	revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
	if err != nil || revoked {
		return identity.Principal{}, ErrTokenBlacklisted
	}
	if claims.IssuedAt != nil {
		invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.Subject, claims.IssuedAt.Time)
		if err != nil || invalidated {
			return identity.Principal{}, ErrTokenBlacklisted
		}
	}
	return p, nil
}

// Revoke blacklists one token until it would have expired
func (s *JWTService) Revoke(ctx context.Context, claims *Claims) error {
	if s.blacklist == nil {
		return nil
	}
	return s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL())
}

var _ Verifier = (*JWTService)(nil)
