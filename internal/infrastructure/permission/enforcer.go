// Package permission decides whether a held right satisfies a required one with a
// casbin role hierarchy over the right names.
package permission

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/otahub/backend/internal/domain/identity"
	"go.uber.org/zap"
)

var _ identity.RightPolicy = (*Enforcer)(nil)

// rightModel treats every right as a role that inherits the rights below it.
const rightModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// Enforcer is a RightPolicy backed by casbin. Errors from casbin deny.
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewEnforcer builds the admin > write > upload > read hierarchy
func NewEnforcer(logger *zap.Logger) (*Enforcer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := model.NewModelFromString(rightModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	for _, r := range identity.AllRights {
		if _, err := e.AddPolicy(r.String(), r.String()); err != nil {
			return nil, fmt.Errorf("failed to add policy for %s: %w", r, err)
		}
	}
	for i := len(identity.AllRights) - 1; i > 0; i-- {
		higher, lower := identity.AllRights[i], identity.AllRights[i-1]
		if _, err := e.AddGroupingPolicy(higher.String(), lower.String()); err != nil {
			return nil, fmt.Errorf("failed to link %s to %s: %w", higher, lower, err)
		}
	}

	return &Enforcer{enforcer: e, logger: logger}, nil
}

// Satisfies implements identity.RightPolicy
func (e *Enforcer) Satisfies(held, required identity.Right) bool {
	if !held.Valid() || !required.Valid() {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	ok, err := e.enforcer.Enforce(held.String(), required.String())
	if err != nil {
		e.logger.Error("right check failed",
			zap.String("held", held.String()),
			zap.String("required", required.String()),
			zap.Error(err),
		)
		return false
	}
	return ok
}

// Implied lists the rights held implies, lowest first
func (e *Enforcer) Implied(held identity.Right) []identity.Right {
	var out []identity.Right
	for _, r := range identity.AllRights {
		if e.Satisfies(held, r) {
			out = append(out, r)
		}
	}
	return out
}
