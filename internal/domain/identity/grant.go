// Package identity models principals, organizations and the rights they hold.
package identity

import "github.com/google/uuid"

// Principal is an authenticated user issuing a request
type Principal struct {
	ID    uuid.UUID
	Email string
}

// IsZero reports whether no principal was resolved
func (p Principal) IsZero() bool {
	return p.ID == uuid.Nil
}

// Scope narrows a rights check to one app, optionally one channel of that app.
type Scope struct {
	AppID     string
	ChannelID *int64
}

// AppScope returns a scope covering a single app
func AppScope(appID string) *Scope {
	return &Scope{AppID: appID}
}

// ChannelScope returns a scope covering one channel of an app
func ChannelScope(appID string, channelID int64) *Scope {
	return &Scope{AppID: appID, ChannelID: &channelID}
}

// Grant is a right held by a user in an organization.
// A grant with no app applies org-wide; with an app it applies to that app and
// its channels; with an app and a channel it applies to that channel only.
type Grant struct {
	OrgID     uuid.UUID
	UserID    uuid.UUID
	Right     Right
	AppID     string
	ChannelID *int64
}

// OrgWide reports whether the grant is not narrowed to an app
func (g Grant) OrgWide() bool {
	return g.AppID == "" && g.ChannelID == nil
}

// AppliesTo reports whether the grant covers scope. A nil scope means the whole org,
// which only org-wide grants cover.
func (g Grant) AppliesTo(scope *Scope) bool {
	if g.OrgWide() {
		return true
	}
	if scope == nil || g.AppID != scope.AppID {
		return false
	}
	if g.ChannelID == nil {
		return true
	}
	return scope.ChannelID != nil && *scope.ChannelID == *g.ChannelID
}

// EffectiveRight returns the highest right among the grants that cover scope.
// Scoped grants are additive: they can raise the org-wide level for their scope, never lower it.
func EffectiveRight(grants []Grant, scope *Scope) Right {
	best := RightNone
	for _, g := range grants {
		if g.AppliesTo(scope) && g.Right > best {
			best = g.Right
		}
	}
	return best
}
