package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/identity"
)

// OrgModel is the persistence model for an organization
type OrgModel struct {
	ID              uuid.UUID `gorm:"primaryKey"`
	Name            string    `gorm:"size:200;not null"`
	CreatedBy       uuid.UUID `gorm:"not null;index"`
	ManagementEmail string    `gorm:"size:320"`
	CustomerID      *string   `gorm:"size:100;uniqueIndex"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (OrgModel) TableName() string {
	return "orgs"
}

// ToDomain converts the persistence model to a domain Organization
func (m *OrgModel) ToDomain() *identity.Organization {
	org := &identity.Organization{
		ID:              m.ID,
		Name:            m.Name,
		CreatedBy:       m.CreatedBy,
		ManagementEmail: m.ManagementEmail,
		CreatedAt:       m.CreatedAt,
	}
	if m.CustomerID != nil {
		org.CustomerID = *m.CustomerID
	}
	return org
}

// OrgModelFromDomain builds a persistence model from a domain Organization
func OrgModelFromDomain(o *identity.Organization) *OrgModel {
	m := &OrgModel{
		ID:              o.ID,
		Name:            o.Name,
		CreatedBy:       o.CreatedBy,
		ManagementEmail: o.ManagementEmail,
		CreatedAt:       o.CreatedAt,
	}
	if o.CustomerID != "" {
		c := o.CustomerID
		m.CustomerID = &c
	}
	return m
}

// OrgUserModel is a right held by a user in an organization, optionally scoped
// to an app or an app channel.
type OrgUserModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	OrgID     uuid.UUID `gorm:"not null;index:idx_org_users_org_user"`
	UserID    uuid.UUID `gorm:"not null;index:idx_org_users_org_user"`
	AppID     *string   `gorm:"size:200"`
	ChannelID *int64
	UserRight string    `gorm:"size:30;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (OrgUserModel) TableName() string {
	return "org_users"
}

// ToDomain converts the row to a grant. Rows carrying an unknown right yield ok=false.
func (m *OrgUserModel) ToDomain() (identity.Grant, bool) {
	right, err := identity.ParseRight(m.UserRight)
	if err != nil {
		return identity.Grant{}, false
	}
	g := identity.Grant{
		OrgID:     m.OrgID,
		UserID:    m.UserID,
		Right:     right,
		ChannelID: m.ChannelID,
	}
	if m.AppID != nil {
		g.AppID = *m.AppID
	}
	return g, true
}
