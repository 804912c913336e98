package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/infrastructure/auth"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/otahub/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Context keys set by the auth middleware
const (
	PrincipalKey  = "principal"
	AuthHeaderKey = "Authorization"
)

// BearerAuthConfig holds configuration for the bearer token middleware
type BearerAuthConfig struct {
	Verifier auth.Verifier
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	Logger    *zap.Logger
}

// BearerAuth resolves the bearer token to a principal and stores it on the request.
// Requests without a valid token are rejected with 401.
func BearerAuth(cfg BearerAuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		token, ok := BearerToken(c.GetHeader(AuthHeaderKey))
		if !ok {
			abortUnauthorized(c, cfg.Logger, auth.ErrMissingToken)
			return
		}
		p, err := cfg.Verifier.Verify(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c, cfg.Logger, err)
			return
		}

		SetPrincipal(c, p)
		c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value. The scheme
// is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// SetPrincipal stores p on the gin context and binds it to the request logger
func SetPrincipal(c *gin.Context, p identity.Principal) {
	c.Set(PrincipalKey, p)
	c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), p.ID.String()))
}

// GetPrincipal returns the authenticated principal, if any
func GetPrincipal(c *gin.Context) (identity.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return identity.Principal{}, false
	}
	p, ok := v.(identity.Principal)
	return p, ok && !p.IsZero()
}

func abortUnauthorized(c *gin.Context, l *zap.Logger, err error) {
	l.Debug("bearer authentication failed",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
	)

	message := "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		message = "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		message = "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims):
		message = "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, message, getRequestID(c)))
}
