package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestQuotaEvaluator_AbsentOrg(t *testing.T) {
	f := setupFixture(t)
	q := NewQuotaEvaluator(zaptest.NewLogger(t))
	client := f.clients.Elevated()

	assert.Equal(t, billing.TotalStats{}, q.GetTotalStats(context.Background(), client, nil))
	assert.Equal(t, billing.PlanUsagePercent{
		TotalPercent:     0,
		MAUPercent:       0,
		BandwidthPercent: 0,
		StoragePercent:   0,
	}, q.GetPlanUsagePercent(context.Background(), client, nil))
}

func TestQuotaEvaluator_SoloFallback(t *testing.T) {
	f := setupFixture(t)
	f.addSolo(t, 4, 0, 1000)
	f.addBundle(t, 125)
	f.addDevices(t, "a", "b", "c")

	q := NewQuotaEvaluator(zaptest.NewLogger(t))
	ctx := context.Background()
	client := f.clients.Elevated()

	stats := q.GetTotalStats(ctx, client, &f.org)
	assert.Equal(t, int64(3), stats.MAU)
	assert.Equal(t, int64(125), stats.Storage)

	pct := q.GetPlanUsagePercent(ctx, client, &f.org)
	assert.Equal(t, 75.0, pct.MAUPercent)
	assert.Equal(t, 0.0, pct.BandwidthPercent, "unbounded ceiling counts as zero")
	assert.Equal(t, 12.5, pct.StoragePercent)
	assert.Equal(t, 75.0, pct.TotalPercent)

	assert.True(t, q.IsGoodPlan(ctx, client, f.org))

	f.addDevices(t, "d")
	assert.False(t, q.IsGoodPlan(ctx, client, f.org), "reaching the ceiling is not strictly inside it")

	r := q.Report(ctx, client, f.org)
	assert.Equal(t, billing.SoloPlanName, r.Plan)
	assert.False(t, r.GoodPlan)
	assert.Equal(t, 100.0, r.Percent.TotalPercent)
}

func TestQuotaEvaluator_ExplicitPlan(t *testing.T) {
	f := setupFixture(t)
	f.addSolo(t, 1, 1, 1)
	f.addPlan(t, (&billing.Plan{Name: "Maker"}).WithCeilings(1000, 0, 0).WithPrices("prod_maker", "price_m", "price_y"))
	f.setBilling(t, func(b *billing.OrgBilling) { b.ProductID = "prod_maker" })
	f.addDevices(t, "a", "b")

	q := NewQuotaEvaluator(zaptest.NewLogger(t))
	plan, err := q.ResolvePlan(context.Background(), f.clients.Elevated(), f.org)
	require.NoError(t, err)
	assert.Equal(t, "Maker", plan.Name)
	assert.True(t, q.IsGoodPlan(context.Background(), f.clients.Elevated(), f.org))
	assert.Equal(t, 0.2, q.GetPlanUsagePercent(context.Background(), f.clients.Elevated(), &f.org).MAUPercent)
}

func TestQuotaEvaluator_UsesBillingCycle(t *testing.T) {
	f := setupFixture(t)
	f.addSolo(t, 0, 0, 0)
	f.addDevices(t, "a", "b")

	start := time.Now().UTC().AddDate(0, -2, 0)
	end := start.AddDate(0, 1, 0)
	f.setBilling(t, func(b *billing.OrgBilling) {
		b.CycleStart, b.CycleEnd = &start, &end
	})

	q := NewQuotaEvaluator(zaptest.NewLogger(t))
	stats := q.GetTotalStats(context.Background(), f.clients.Elevated(), &f.org)
	assert.Zero(t, stats.MAU, "devices seen outside the anchored cycle do not count")
}

func TestQuotaEvaluator_FailsClosed(t *testing.T) {
	f := setupFixture(t)
	// no plans at all, so even the baseline tier cannot be resolved
	f.addDevices(t, "a")

	q := NewQuotaEvaluator(zaptest.NewLogger(t))
	ctx := context.Background()
	client := f.clients.Elevated()

	assert.False(t, q.IsGoodPlan(ctx, client, f.org))
	assert.Equal(t, billing.PlanUsagePercent{}, q.GetPlanUsagePercent(ctx, client, &f.org))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, billing.TotalStats{}, q.GetTotalStats(canceled, client, &f.org))

	unknown := uuid.New()
	assert.Equal(t, billing.TotalStats{}, q.GetTotalStats(ctx, client, &unknown))
}
