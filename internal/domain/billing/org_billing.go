package billing

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/shared"
)

// Status is the subscription state reported by the billing provider
type Status string

const (
	StatusCreated   Status = "created"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// IsValid returns true if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// OrgBilling is the billing state of an organization
type OrgBilling struct {
	OrgID          uuid.UUID
	CustomerID     string
	Status         Status
	ProductID      string
	PriceID        string
	SubscriptionID string
	TrialAt        *time.Time
	CycleStart     *time.Time
	CycleEnd       *time.Time
	UpdatedAt      time.Time
}

// NewOrgBilling creates the billing state for a freshly provisioned organization
func NewOrgBilling(orgID uuid.UUID, customerID string) (*OrgBilling, error) {
	if orgID == uuid.Nil {
		return nil, shared.NewDomainError(shared.KindValidation, "INVALID_ORG", "Organization ID cannot be empty")
	}
	return &OrgBilling{
		OrgID:      orgID,
		CustomerID: customerID,
		Status:     StatusCreated,
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

// IsPaying reports whether the subscription is settled
func (b *OrgBilling) IsPaying() bool {
	return b != nil && b.Status == StatusSucceeded
}

// IsCanceled reports whether the subscription was canceled
func (b *OrgBilling) IsCanceled() bool {
	return b != nil && b.Status == StatusCanceled
}

// IsTrial reports whether the organization is still inside its trial at now
func (b *OrgBilling) IsTrial(now time.Time) bool {
	return !b.IsPaying() && b.TrialDaysLeft(now) > 0
}

// TrialDaysLeft returns the number of started days until the trial ends, never negative.
func (b *OrgBilling) TrialDaysLeft(now time.Time) int {
	if b == nil || b.TrialAt == nil {
		return 0
	}
	left := b.TrialAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

// Cycle returns the current billing cycle. Without provider anchors it is the
// calendar month containing now, in UTC.
func (b *OrgBilling) Cycle(now time.Time) (start, end time.Time) {
	if b != nil && b.CycleStart != nil && b.CycleEnd != nil && b.CycleEnd.After(*b.CycleStart) {
		return b.CycleStart.UTC(), b.CycleEnd.UTC()
	}
	return MonthPeriod(now)
}

// ApplySubscription records a subscription change pushed by the billing provider
func (b *OrgBilling) ApplySubscription(status Status, productID, priceID, subscriptionID string, cycleStart, cycleEnd *time.Time) error {
	if !status.IsValid() {
		return shared.NewDomainError(shared.KindValidation, "INVALID_STATUS", "Invalid billing status: "+string(status))
	}
	b.Status = status
	b.ProductID = productID
	b.PriceID = priceID
	b.SubscriptionID = subscriptionID
	b.CycleStart = cycleStart
	b.CycleEnd = cycleEnd
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// MonthPeriod returns the calendar month containing t, in UTC
func MonthPeriod(t time.Time) (start, end time.Time) {
	t = t.UTC()
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
