package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/billing"
)

// PlanModel is the persistence model for a billing plan
type PlanModel struct {
	Name            string `gorm:"primaryKey;size:100"`
	MAU             int64  `gorm:"column:mau;not null;default:0"`
	Bandwidth       int64  `gorm:"not null;default:0"`
	Storage         int64  `gorm:"not null;default:0"`
	Get             int64  `gorm:"column:get;not null;default:0"`
	Fail            int64  `gorm:"not null;default:0"`
	Install         int64  `gorm:"not null;default:0"`
	Uninstall       int64  `gorm:"not null;default:0"`
	StripeProductID string `gorm:"column:stripe_product_id;size:100;index"`
	PriceMID        string `gorm:"column:price_m_id;size:100"`
	PriceYID        string `gorm:"column:price_y_id;size:100"`
}

// TableName returns the table name for GORM
func (PlanModel) TableName() string {
	return "plans"
}

// ToDomain converts the persistence model to a domain Plan
func (m *PlanModel) ToDomain() *billing.Plan {
	return (&billing.Plan{Name: m.Name}).
		WithCeilings(m.MAU, m.Bandwidth, m.Storage).
		WithActionCeilings(m.Get, m.Fail, m.Install, m.Uninstall).
		WithPrices(m.StripeProductID, m.PriceMID, m.PriceYID)
}

// PlanModelFromDomain builds a persistence model from a domain Plan
func PlanModelFromDomain(p *billing.Plan) *PlanModel {
	return &PlanModel{
		Name:            p.Name,
		MAU:             p.MAU,
		Bandwidth:       p.Bandwidth,
		Storage:         p.Storage,
		Get:             p.Get,
		Fail:            p.Fail,
		Install:         p.Install,
		Uninstall:       p.Uninstall,
		StripeProductID: p.StripeProductID,
		PriceMID:        p.PriceMonthlyID,
		PriceYID:        p.PriceYearlyID,
	}
}

// OrgBillingModel is the billing provider state of an organization
type OrgBillingModel struct {
	OrgID                   uuid.UUID `gorm:"primaryKey"`
	CustomerID              string    `gorm:"size:100;index"`
	Status                  string    `gorm:"size:20;not null;default:'created'"`
	ProductID               string    `gorm:"size:100"`
	PriceID                 string    `gorm:"size:100"`
	SubscriptionID          string    `gorm:"size:100"`
	TrialAt                 *time.Time
	SubscriptionAnchorStart *time.Time
	SubscriptionAnchorEnd   *time.Time
	UpdatedAt               time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (OrgBillingModel) TableName() string {
	return "org_billing"
}

// ToDomain converts the persistence model to a domain OrgBilling
func (m *OrgBillingModel) ToDomain() *billing.OrgBilling {
	return &billing.OrgBilling{
		OrgID:          m.OrgID,
		CustomerID:     m.CustomerID,
		Status:         billing.Status(m.Status),
		ProductID:      m.ProductID,
		PriceID:        m.PriceID,
		SubscriptionID: m.SubscriptionID,
		TrialAt:        m.TrialAt,
		CycleStart:     m.SubscriptionAnchorStart,
		CycleEnd:       m.SubscriptionAnchorEnd,
		UpdatedAt:      m.UpdatedAt,
	}
}

// OrgBillingModelFromDomain builds a persistence model from a domain OrgBilling
func OrgBillingModelFromDomain(b *billing.OrgBilling) *OrgBillingModel {
	return &OrgBillingModel{
		OrgID:                   b.OrgID,
		CustomerID:              b.CustomerID,
		Status:                  string(b.Status),
		ProductID:               b.ProductID,
		PriceID:                 b.PriceID,
		SubscriptionID:          b.SubscriptionID,
		TrialAt:                 b.TrialAt,
		SubscriptionAnchorStart: b.CycleStart,
		SubscriptionAnchorEnd:   b.CycleEnd,
		UpdatedAt:               b.UpdatedAt,
	}
}
