package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/domain/shared"
	"github.com/otahub/backend/internal/infrastructure/logger"
	"github.com/otahub/backend/internal/infrastructure/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UsageReport is the plan-relative usage of an organization
type UsageReport struct {
	Stats    billing.TotalStats       `json:"stats"`
	Percent  billing.PlanUsagePercent `json:"percent"`
	Plan     string                   `json:"plan"`
	GoodPlan bool                     `json:"good_plan"`
}

// QuotaEvaluator turns an organization's metered usage into plan-relative figures.
// Every read failure degrades to the zero value and is logged.
type QuotaEvaluator struct {
	logger *zap.Logger
	now    func() time.Time
}

// QuotaEvaluatorOption configures a QuotaEvaluator
type QuotaEvaluatorOption func(*QuotaEvaluator)

// WithClock overrides the clock used to pick the billing cycle
func WithClock(now func() time.Time) QuotaEvaluatorOption {
	return func(q *QuotaEvaluator) {
		q.now = now
	}
}

// NewQuotaEvaluator creates a new QuotaEvaluator
func NewQuotaEvaluator(l *zap.Logger, opts ...QuotaEvaluatorOption) *QuotaEvaluator {
	if l == nil {
		l = zap.NewNop()
	}
	q := &QuotaEvaluator{logger: l, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// GetTotalStats returns the org's usage over its current billing cycle.
// A nil org yields the zero stats, the same as an org that used nothing.
func (q *QuotaEvaluator) GetTotalStats(ctx context.Context, client *store.Client, orgID *uuid.UUID) billing.TotalStats {
	if orgID == nil {
		return billing.TotalStats{}
	}
	stats, err := q.totalStats(ctx, client, *orgID)
	if err != nil {
		q.log(ctx, *orgID).Warn("total stats unavailable", zap.Error(err))
		return billing.TotalStats{}
	}
	return stats
}

// GetPlanUsagePercent returns the share of the org's plan consumed this cycle
func (q *QuotaEvaluator) GetPlanUsagePercent(ctx context.Context, client *store.Client, orgID *uuid.UUID) billing.PlanUsagePercent {
	if orgID == nil {
		return billing.PlanUsagePercent{}
	}
	stats, plan, err := q.statsAndPlan(ctx, client, *orgID)
	if err != nil {
		q.log(ctx, *orgID).Warn("plan usage unavailable", zap.Error(err))
		return billing.PlanUsagePercent{}
	}
	return billing.UsagePercent(stats, plan)
}

// IsGoodPlan reports whether the org's usage is strictly inside every ceiling of its plan.
// It answers false when anything cannot be read.
func (q *QuotaEvaluator) IsGoodPlan(ctx context.Context, client *store.Client, orgID uuid.UUID) bool {
	stats, plan, err := q.statsAndPlan(ctx, client, orgID)
	if err != nil {
		q.log(ctx, orgID).Warn("plan check failed closed", zap.Error(err))
		return false
	}
	ok := plan.Allows(stats)
	if !ok {
		q.log(ctx, orgID).Debug("plan exceeded",
			zap.String("plan", plan.Name),
			zap.Any("dimensions", plan.Exceeded(stats)))
	}
	return ok
}

// Report gathers stats, percentages and the plan verdict with one read of each input
func (q *QuotaEvaluator) Report(ctx context.Context, client *store.Client, orgID uuid.UUID) UsageReport {
	stats, plan, err := q.statsAndPlan(ctx, client, orgID)
	if err != nil {
		q.log(ctx, orgID).Warn("usage report degraded", zap.Error(err))
		return UsageReport{Stats: q.GetTotalStats(ctx, client, &orgID)}
	}
	return UsageReport{
		Stats:    stats,
		Percent:  billing.UsagePercent(stats, plan),
		Plan:     plan.Name,
		GoodPlan: plan.Allows(stats),
	}
}

// ResolvePlan returns the org's plan, falling back to the baseline tier when none is bound
func (q *QuotaEvaluator) ResolvePlan(ctx context.Context, client *store.Client, orgID uuid.UUID) (*billing.Plan, error) {
	explicit, err := store.Call(ctx, client, store.GetCurrentPlanName, store.OrgParams{OrgID: orgID})
	if err != nil {
		return nil, err
	}
	return store.Call(ctx, client, store.GetPlan, store.PlanParams{Name: billing.ResolvePlanName(explicit)})
}

func (q *QuotaEvaluator) statsAndPlan(ctx context.Context, client *store.Client, orgID uuid.UUID) (billing.TotalStats, *billing.Plan, error) {
	var (
		stats billing.TotalStats
		plan  *billing.Plan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = q.totalStats(gctx, client, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		plan, err = q.ResolvePlan(gctx, client, orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return billing.TotalStats{}, nil, err
	}
	return stats, plan, nil
}

func (q *QuotaEvaluator) totalStats(ctx context.Context, client *store.Client, orgID uuid.UUID) (billing.TotalStats, error) {
	start, end, err := q.cycle(ctx, client, orgID)
	if err != nil {
		return billing.TotalStats{}, err
	}
	return store.Call(ctx, client, store.GetTotalMetrics, store.MetricsParams{OrgID: orgID, Start: start, End: end})
}

// cycle returns the org's billing window. Orgs without billing state use the calendar month.
func (q *QuotaEvaluator) cycle(ctx context.Context, client *store.Client, orgID uuid.UUID) (time.Time, time.Time, error) {
	b, err := store.Call(ctx, client, store.GetOrgBilling, store.OrgParams{OrgID: orgID})
	switch {
	case shared.KindOf(err) == shared.KindNotFound:
		b = nil
	case err != nil:
		return time.Time{}, time.Time{}, err
	}
	start, end := b.Cycle(q.now())
	return start, end, nil
}

func (q *QuotaEvaluator) log(ctx context.Context, orgID uuid.UUID) *logger.ContextLogger {
	return logger.WithLogger(ctx, q.logger).With(zap.String("org_id", orgID.String()))
}
