// Package access answers whether a principal may act on an app or organization.
package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/otahub/backend/internal/infrastructure/store"
	"go.uber.org/zap"
)

// RightsResolver evaluates a principal's rights. Every lookup failure denies.
type RightsResolver struct {
	clients *store.Factory
	policy  identity.RightPolicy
	logger  *zap.Logger
}

// NewRightsResolver creates a resolver. A nil policy uses the plain right order.
func NewRightsResolver(clients *store.Factory, policy identity.RightPolicy, l *zap.Logger) *RightsResolver {
	if policy == nil {
		policy = identity.OrderedPolicy{}
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &RightsResolver{clients: clients, policy: policy, logger: l}
}

// CheckAppRight reports whether p holds at least required on appID, through the app's owning org
func (r *RightsResolver) CheckAppRight(ctx context.Context, p identity.Principal, appID string, required identity.Right) bool {
	log := logger.WithLogger(ctx, r.logger).With(
		zap.String("app_id", appID),
		zap.Stringer("required", required),
	)
	if p.IsZero() || appID == "" {
		log.Debug("app right denied: missing principal or app")
		return false
	}

	client := r.clients.ForPrincipal(p)
	owner, err := store.Call(ctx, client, store.GetAppOwner, store.AppParams{AppID: appID})
	if err != nil {
		log.Info("app right denied: owner lookup failed", zap.Error(err))
		return false
	}
	return r.checkOrg(ctx, log, client, p, owner, required, identity.AppScope(appID))
}

// CheckOrgRight reports whether p holds at least required in orgID. A non-nil scope
// narrows the check to an app or an app channel.
func (r *RightsResolver) CheckOrgRight(ctx context.Context, p identity.Principal, orgID uuid.UUID, required identity.Right, scope *identity.Scope) bool {
	log := logger.WithLogger(ctx, r.logger).With(
		zap.String("org_id", orgID.String()),
		zap.Stringer("required", required),
	)
	if p.IsZero() || orgID == uuid.Nil {
		log.Debug("org right denied: missing principal or org")
		return false
	}
	return r.checkOrg(ctx, log, r.clients.ForPrincipal(p), p, orgID, required, scope)
}

func (r *RightsResolver) checkOrg(ctx context.Context, log *logger.ContextLogger, client *store.Client, p identity.Principal, orgID uuid.UUID, required identity.Right, scope *identity.Scope) bool {
	org, err := store.Call(ctx, client, store.GetOrg, store.OrgParams{OrgID: orgID})
	if err != nil {
		log.Info("right denied: org lookup failed", zap.Error(err))
		return false
	}
	if org.IsOwner(p) {
		return r.policy.Satisfies(identity.RightAdmin, required)
	}

	grants, err := store.Call(ctx, client, store.GetUserGrants, store.GrantParams{OrgID: orgID, UserID: p.ID})
	if err != nil {
		log.Info("right denied: grant lookup failed", zap.Error(err))
		return false
	}
	held := identity.EffectiveRight(grants, scope)
	ok := r.policy.Satisfies(held, required)
	log.Debug("right evaluated", zap.Stringer("held", held), zap.Bool("allowed", ok))
	return ok
}
