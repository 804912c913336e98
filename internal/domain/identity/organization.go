package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/shared"
)

// Organization is the billing and ownership unit. It owns apps and carries the
// billing customer used for plan resolution.
type Organization struct {
	ID              uuid.UUID
	Name            string
	CreatedBy       uuid.UUID
	ManagementEmail string
	CustomerID      string
	CreatedAt       time.Time
}

// NewOrganization creates an organization owned by createdBy
func NewOrganization(name string, createdBy uuid.UUID, managementEmail string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.KindValidation, "INVALID_NAME", "Organization name cannot be empty")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError(shared.KindValidation, "INVALID_OWNER", "Organization owner is required")
	}
	return &Organization{
		ID:              uuid.New(),
		Name:            name,
		CreatedBy:       createdBy,
		ManagementEmail: strings.TrimSpace(managementEmail),
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// IsOwner reports whether p created the organization. Owners hold admin on everything in it.
func (o *Organization) IsOwner(p Principal) bool {
	return !p.IsZero() && o.CreatedBy == p.ID
}

// HasCustomer reports whether a billing customer is attached
func (o *Organization) HasCustomer() bool {
	return o.CustomerID != ""
}
