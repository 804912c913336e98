package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/infrastructure/persistence/models"
	"github.com/otahub/backend/internal/infrastructure/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func getOrgBilling(_ context.Context, db *gorm.DB, p store.OrgParams) (*billing.OrgBilling, error) {
	var m models.OrgBillingModel
	if err := db.Where("org_id = ?", p.OrgID).Take(&m).Error; err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func getOrgBillingByCustomer(_ context.Context, db *gorm.DB, p store.CustomerParams) (*billing.OrgBilling, error) {
	var m models.OrgBillingModel
	if err := db.Where("customer_id = ?", p.CustomerID).Take(&m).Error; err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

// getCurrentPlanName returns the plan bound to the org's subscribed product, or ""
// when the org has no subscription or the product matches no plan.
func getCurrentPlanName(_ context.Context, db *gorm.DB, p store.OrgParams) (string, error) {
	var names []string
	err := db.Model(&models.PlanModel{}).
		Joins("JOIN org_billing ON org_billing.product_id = plans.stripe_product_id").
		Where("org_billing.org_id = ? AND org_billing.product_id <> ''", p.OrgID).
		Limit(1).
		Pluck("plans.name", &names).Error
	if err != nil || len(names) == 0 {
		return "", err
	}
	return names[0], nil
}

func getPlan(_ context.Context, db *gorm.DB, p store.PlanParams) (*billing.Plan, error) {
	var m models.PlanModel
	if err := db.Where("LOWER(name) = LOWER(?)", p.Name).Take(&m).Error; err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func orgApps(db *gorm.DB, orgID uuid.UUID) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&models.AppModel{}).
		Select("app_id").
		Where("owner_org = ?", orgID)
}

type actionCounts struct {
	Get       int64
	Fail      int64
	Install   int64
	Uninstall int64
}

// getTotalMetrics aggregates the org's usage over [Start, End). Storage is a point
// in time sum over live bundles and ignores the window.
func getTotalMetrics(_ context.Context, db *gorm.DB, p store.MetricsParams) (billing.TotalStats, error) {
	var s billing.TotalStats

	if err := db.Model(&models.DeviceModel{}).
		Where("app_id IN (?) AND updated_at >= ? AND updated_at < ?", orgApps(db, p.OrgID), p.Start, p.End).
		Distinct("device_id").
		Count(&s.MAU).Error; err != nil {
		return s, err
	}

	if err := db.Model(&models.BandwidthUsageModel{}).
		Select("COALESCE(SUM(file_size), 0)").
		Where("app_id IN (?) AND timestamp >= ? AND timestamp < ?", orgApps(db, p.OrgID), p.Start, p.End).
		Scan(&s.Bandwidth).Error; err != nil {
		return s, err
	}

	if err := db.Model(&models.AppVersionModel{}).
		Select("COALESCE(SUM(size), 0)").
		Where("app_id IN (?) AND deleted = ?", orgApps(db, p.OrgID), false).
		Scan(&s.Storage).Error; err != nil {
		return s, err
	}

	var a actionCounts
	if err := db.Model(&models.StatsModel{}).
		Select(
			"COALESCE(SUM(CASE WHEN action = ? THEN 1 ELSE 0 END), 0) AS get, "+
				"COALESCE(SUM(CASE WHEN action = ? THEN 1 ELSE 0 END), 0) AS fail, "+
				"COALESCE(SUM(CASE WHEN action = ? THEN 1 ELSE 0 END), 0) AS install, "+
				"COALESCE(SUM(CASE WHEN action = ? THEN 1 ELSE 0 END), 0) AS uninstall",
			billing.ActionGet, billing.ActionFail, billing.ActionInstall, billing.ActionUninstall,
		).
		Where("app_id IN (?) AND created_at >= ? AND created_at < ?", orgApps(db, p.OrgID), p.Start, p.End).
		Scan(&a).Error; err != nil {
		return s, err
	}
	s.Get, s.Fail, s.Install, s.Uninstall = a.Get, a.Fail, a.Install, a.Uninstall
	return s, nil
}

// isOnboarded reports whether the org has at least one app with at least one bundle
func isOnboarded(_ context.Context, db *gorm.DB, p store.OrgParams) (bool, error) {
	var n int64
	err := db.Model(&models.AppVersionModel{}).
		Where("app_id IN (?)", orgApps(db, p.OrgID)).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

func listOrgIDs(_ context.Context, db *gorm.DB, _ store.NoParams) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.Model(&models.OrgModel{}).Order("created_at").Pluck("id", &ids).Error
	return ids, err
}

func updateOrgBilling(_ context.Context, db *gorm.DB, b *billing.OrgBilling) (store.NoResult, error) {
	m := models.OrgBillingModelFromDomain(b)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_id", "status", "product_id", "price_id", "subscription_id",
			"trial_at", "subscription_anchor_start", "subscription_anchor_end", "updated_at",
		}),
	}).Create(m).Error
	return store.NoResult{}, err
}

func setOrgCustomer(_ context.Context, db *gorm.DB, p store.SetCustomerParams) (store.NoResult, error) {
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OrgModel{}).Where("id = ?", p.OrgID).Update("customer_id", p.CustomerID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		b := &models.OrgBillingModel{OrgID: p.OrgID, CustomerID: p.CustomerID, Status: string(billing.StatusCreated)}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"customer_id"}),
		}).Create(b).Error
	})
	return store.NoResult{}, err
}
