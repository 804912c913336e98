package billing

import "github.com/shopspring/decimal"

// TotalStats is the aggregated usage of an organization over its billing cycle.
// The zero value is the explicit result for an absent organization.
type TotalStats struct {
	MAU       int64 `json:"mau"`
	Bandwidth int64 `json:"bandwidth"`
	Storage   int64 `json:"storage"`
	Get       int64 `json:"get"`
	Fail      int64 `json:"fail"`
	Install   int64 `json:"install"`
	Uninstall int64 `json:"uninstall"`
}

// Value returns the usage for d
func (s TotalStats) Value(d Dimension) int64 {
	switch d {
	case DimensionMAU:
		return s.MAU
	case DimensionBandwidth:
		return s.Bandwidth
	case DimensionStorage:
		return s.Storage
	case DimensionGet:
		return s.Get
	case DimensionFail:
		return s.Fail
	case DimensionInstall:
		return s.Install
	case DimensionUninstall:
		return s.Uninstall
	}
	return 0
}

// PlanUsagePercent is the share of the plan consumed, in percent rounded to two decimals
type PlanUsagePercent struct {
	TotalPercent     float64 `json:"total_percent"`
	MAUPercent       float64 `json:"mau_percent"`
	BandwidthPercent float64 `json:"bandwidth_percent"`
	StoragePercent   float64 `json:"storage_percent"`
}

// UsagePercent computes the consumed share of plan. The total is the largest of the
// mau, bandwidth and storage shares.
func UsagePercent(usage TotalStats, plan *Plan) PlanUsagePercent {
	if plan == nil {
		return PlanUsagePercent{}
	}
	mau := Percent(usage.MAU, plan.MAU)
	bw := Percent(usage.Bandwidth, plan.Bandwidth)
	st := Percent(usage.Storage, plan.Storage)

	total := decimal.Max(mau, bw, st)
	return PlanUsagePercent{
		TotalPercent:     total.InexactFloat64(),
		MAUPercent:       mau.InexactFloat64(),
		BandwidthPercent: bw.InexactFloat64(),
		StoragePercent:   st.InexactFloat64(),
	}
}

// Percent returns used/limit as a percentage rounded to two decimals.
// An unlimited ceiling (limit <= 0) yields zero.
func Percent(used, limit int64) decimal.Decimal {
	if limit <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(used).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(limit)).
		Round(2)
}
