package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/catalog"
	"github.com/otahub/backend/internal/domain/identity"
	"github.com/otahub/backend/internal/domain/shared"
	"github.com/otahub/backend/internal/infrastructure/persistence/models"
	"github.com/otahub/backend/internal/infrastructure/store"
	"gorm.io/gorm"
)

func getAppOwner(_ context.Context, db *gorm.DB, p store.AppParams) (uuid.UUID, error) {
	var app models.AppModel
	if err := db.Select("app_id", "owner_org").Where("app_id = ?", p.AppID).Take(&app).Error; err != nil {
		return uuid.Nil, err
	}
	return app.OwnerOrg, nil
}

func getUserGrants(_ context.Context, db *gorm.DB, p store.GrantParams) ([]identity.Grant, error) {
	var rows []models.OrgUserModel
	if err := db.Where("org_id = ? AND user_id = ?", p.OrgID, p.UserID).Find(&rows).Error; err != nil {
		return nil, err
	}
	grants := make([]identity.Grant, 0, len(rows))
	for i := range rows {
		// unknown right names grant nothing
		if g, ok := rows[i].ToDomain(); ok {
			grants = append(grants, g)
		}
	}
	return grants, nil
}

func getOrg(_ context.Context, db *gorm.DB, p store.OrgParams) (*identity.Organization, error) {
	var org models.OrgModel
	if err := db.Where("id = ?", p.OrgID).Take(&org).Error; err != nil {
		return nil, err
	}
	return org.ToDomain(), nil
}

// ownedBundleRow is a bundle joined with the owner of its app. OwnerOrg is nil when
// the app row is missing.
type ownedBundleRow struct {
	models.AppVersionModel
	OwnerOrg *uuid.UUID
}

func getBundle(_ context.Context, db *gorm.DB, p store.BundleParams) (*catalog.OwnedBundle, error) {
	var row ownedBundleRow
	err := db.Model(&models.AppVersionModel{}).
		Select("app_versions.*, apps.owner_org").
		Joins("LEFT JOIN apps ON apps.app_id = app_versions.app_id").
		Where("app_versions.app_id = ? AND app_versions.id = ? AND app_versions.deleted = ?", p.AppID, p.BundleID, false).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	if row.OwnerOrg == nil || *row.OwnerOrg == uuid.Nil {
		return nil, shared.ErrIntegrity.WithResource(p.AppID)
	}
	return &catalog.OwnedBundle{Bundle: row.AppVersionModel.ToDomain(), OwnerOrg: *row.OwnerOrg}, nil
}
