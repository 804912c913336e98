package billing

import (
	"strings"

	"github.com/otahub/backend/internal/domain/shared"
)

// SoloPlanName is the baseline tier used when an organization has no explicit plan
const SoloPlanName = "Solo"

// Dimension is a metered quantity a plan puts a ceiling on
type Dimension string

const (
	DimensionMAU       Dimension = "mau"
	DimensionBandwidth Dimension = "bandwidth"
	DimensionStorage   Dimension = "storage"
	DimensionGet       Dimension = "get"
	DimensionFail      Dimension = "fail"
	DimensionInstall   Dimension = "install"
	DimensionUninstall Dimension = "uninstall"
)

// AllDimensions lists every metered dimension in reporting order
var AllDimensions = []Dimension{
	DimensionMAU,
	DimensionBandwidth,
	DimensionStorage,
	DimensionGet,
	DimensionFail,
	DimensionInstall,
	DimensionUninstall,
}

// Plan is a billing tier. A ceiling of zero or less leaves the dimension unlimited.
type Plan struct {
	Name            string
	MAU             int64
	Bandwidth       int64
	Storage         int64
	Get             int64
	Fail            int64
	Install         int64
	Uninstall       int64
	StripeProductID string
	PriceMonthlyID  string
	PriceYearlyID   string
}

// NewPlan creates a plan with a trimmed name and no ceilings
func NewPlan(name string) (*Plan, error) {
	n := NormalizePlanName(name)
	if n == "" {
		return nil, shared.NewDomainError(shared.KindValidation, "INVALID_PLAN_NAME", "Plan name cannot be empty")
	}
	return &Plan{Name: n}, nil
}

// WithCeilings sets the mau, bandwidth and storage ceilings
func (p *Plan) WithCeilings(mau, bandwidth, storage int64) *Plan {
	p.MAU = mau
	p.Bandwidth = bandwidth
	p.Storage = storage
	return p
}

// WithActionCeilings sets the stats action ceilings
func (p *Plan) WithActionCeilings(get, fail, install, uninstall int64) *Plan {
	p.Get = get
	p.Fail = fail
	p.Install = install
	p.Uninstall = uninstall
	return p
}

// WithPrices binds the plan to its billing provider product and prices
func (p *Plan) WithPrices(productID, monthly, yearly string) *Plan {
	p.StripeProductID = productID
	p.PriceMonthlyID = monthly
	p.PriceYearlyID = yearly
	return p
}

// Ceiling returns the plan's ceiling for d
func (p *Plan) Ceiling(d Dimension) int64 {
	switch d {
	case DimensionMAU:
		return p.MAU
	case DimensionBandwidth:
		return p.Bandwidth
	case DimensionStorage:
		return p.Storage
	case DimensionGet:
		return p.Get
	case DimensionFail:
		return p.Fail
	case DimensionInstall:
		return p.Install
	case DimensionUninstall:
		return p.Uninstall
	}
	return 0
}

// Allows reports whether usage is strictly inside every bounded ceiling of the plan
func (p *Plan) Allows(usage TotalStats) bool {
	for _, d := range AllDimensions {
		limit := p.Ceiling(d)
		if limit > 0 && usage.Value(d) >= limit {
			return false
		}
	}
	return true
}

// Exceeded lists the dimensions whose usage reached the ceiling
func (p *Plan) Exceeded(usage TotalStats) []Dimension {
	var out []Dimension
	for _, d := range AllDimensions {
		limit := p.Ceiling(d)
		if limit > 0 && usage.Value(d) >= limit {
			out = append(out, d)
		}
	}
	return out
}

// PayingMonthly reports the billing interval of priceID against this plan:
// "true" for the monthly price, "false" for the yearly one and "" when it matches neither.
func (p *Plan) PayingMonthly(priceID string) string {
	switch {
	case priceID == "":
		return ""
	case priceID == p.PriceMonthlyID:
		return "true"
	case priceID == p.PriceYearlyID:
		return "false"
	}
	return ""
}

// NormalizePlanName trims a plan name and keeps its stored spelling, which is also the
// value of the plan tag. Lookups by name are case-insensitive in the store.
func NormalizePlanName(name string) string {
	return strings.TrimSpace(name)
}

// ResolvePlanName returns the explicit plan name, or the baseline tier when there is none
func ResolvePlanName(explicit string) string {
	if n := NormalizePlanName(explicit); n != "" {
		return n
	}
	return SoloPlanName
}
