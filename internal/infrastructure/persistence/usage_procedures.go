package persistence

import (
	"context"

	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/infrastructure/persistence/models"
	"github.com/otahub/backend/internal/infrastructure/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func insertBandwidthUsage(_ context.Context, db *gorm.DB, u *billing.BandwidthUsage) (store.NoResult, error) {
	return store.NoResult{}, db.Create(models.BandwidthUsageModelFromDomain(u)).Error
}

func insertVersionUsage(_ context.Context, db *gorm.DB, u *billing.VersionUsage) (store.NoResult, error) {
	return store.NoResult{}, db.Create(models.VersionUsageModelFromDomain(u)).Error
}

func insertStats(_ context.Context, db *gorm.DB, e *billing.StatsEvent) (store.NoResult, error) {
	return store.NoResult{}, db.Create(models.StatsModelFromDomain(e)).Error
}

// upsertDevice relies on the database's atomic ON CONFLICT so concurrent heartbeats
// of one device converge on a single row holding the latest write.
func upsertDevice(_ context.Context, db *gorm.DB, d *billing.DeviceRecord) (store.NoResult, error) {
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}, {Name: "app_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"version_id", "version_name", "platform", "plugin_version", "updated_at",
		}),
	}).Create(models.DeviceModelFromDomain(d)).Error
	return store.NoResult{}, err
}

// RegisterProcedures binds every store procedure to its GORM implementation
func RegisterProcedures(gw *store.Gateway) {
	store.Register(gw, store.GetAppOwner, getAppOwner)
	store.Register(gw, store.GetUserGrants, getUserGrants)
	store.Register(gw, store.GetOrg, getOrg)
	store.Register(gw, store.GetBundle, getBundle)
	store.Register(gw, store.GetOrgBilling, getOrgBilling)
	store.Register(gw, store.GetOrgBillingByCustomer, getOrgBillingByCustomer)
	store.Register(gw, store.GetCurrentPlanName, getCurrentPlanName)
	store.Register(gw, store.GetPlan, getPlan)
	store.Register(gw, store.GetTotalMetrics, getTotalMetrics)
	store.Register(gw, store.IsOnboarded, isOnboarded)
	store.Register(gw, store.ListOrgIDs, listOrgIDs)
	store.Register(gw, store.UpdateOrgBilling, updateOrgBilling)
	store.Register(gw, store.SetOrgCustomer, setOrgCustomer)
	store.Register(gw, store.InsertBandwidthUsage, insertBandwidthUsage)
	store.Register(gw, store.InsertVersionUsage, insertVersionUsage)
	store.Register(gw, store.InsertStats, insertStats)
	store.Register(gw, store.UpsertDevice, upsertDevice)
}
