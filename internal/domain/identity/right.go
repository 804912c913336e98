package identity

import (
	"strings"

	"github.com/otahub/backend/internal/domain/shared"
)

// Right is an ordered capability level over an organization or one of its apps.
// A higher right implies every lower one.
type Right int

const (
	RightNone Right = iota
	RightRead
	RightUpload
	RightWrite
	RightAdmin
)

// AllRights lists the grantable rights from lowest to highest
var AllRights = []Right{RightRead, RightUpload, RightWrite, RightAdmin}

// String returns the stored name of the right
func (r Right) String() string {
	switch r {
	case RightRead:
		return "read"
	case RightUpload:
		return "upload"
	case RightWrite:
		return "write"
	case RightAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Valid reports whether r is a grantable right
func (r Right) Valid() bool {
	return r >= RightRead && r <= RightAdmin
}

// Includes reports whether holding r satisfies required
func (r Right) Includes(required Right) bool {
	return required.Valid() && r >= required
}

// ParseRight parses a stored right name. Pending invitations ("invite_*") confer no right.
func ParseRight(s string) (Right, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(name, "invite_") {
		return RightNone, nil
	}
	switch name {
	case "read":
		return RightRead, nil
	case "upload":
		return RightUpload, nil
	case "write":
		return RightWrite, nil
	case "admin", "super_admin":
		return RightAdmin, nil
	default:
		return RightNone, shared.NewDomainError(shared.KindValidation, "INVALID_RIGHT", "unknown right: "+s)
	}
}

// RightPolicy decides whether a held right satisfies a required one.
type RightPolicy interface {
	Satisfies(held, required Right) bool
}

// OrderedPolicy is the plain total order over rights
type OrderedPolicy struct{}

// Satisfies implements RightPolicy
func (OrderedPolicy) Satisfies(held, required Right) bool {
	return held.Includes(required)
}
