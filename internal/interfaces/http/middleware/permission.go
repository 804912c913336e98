package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/otahub/backend/internal/interfaces/http/dto"
)

// OrgIDParam is the route parameter naming the organization
const (
	OrgIDParam = "org_id"
	OrgIDKey   = "org_id"
)

// OrgRightChecker answers org right questions for a principal
type OrgRightChecker interface {
	CheckOrgRight(ctx context.Context, p identity.Principal, orgID uuid.UUID, required identity.Right, scope *identity.Scope) bool
}

// RequireOrgRight admits the request only when the principal holds at least
// required on the organization named by the :org_id route parameter.
// Must run after BearerAuth.
func RequireOrgRight(checker OrgRightChecker, required identity.Right) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Authentication required", getRequestID(c)))
			return
		}

		orgID, err := uuid.Parse(c.Param(OrgIDParam))
		if err != nil || orgID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidInput, "Invalid organization id", getRequestID(c)))
			return
		}

		if !checker.CheckOrgRight(c.Request.Context(), p, orgID, required, nil) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, "Insufficient rights on this organization", getRequestID(c)))
			return
		}

		c.Set(OrgIDKey, orgID)
		c.Request = c.Request.WithContext(logger.WithOrgID(c.Request.Context(), orgID.String()))
		c.Next()
	}
}

// GetOrgID returns the organization admitted by RequireOrgRight
func GetOrgID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(OrgIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
