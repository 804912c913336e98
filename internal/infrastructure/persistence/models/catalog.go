package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/catalog"
)

// AppModel is the persistence model for an app
type AppModel struct {
	AppID     string    `gorm:"primaryKey;size:200"`
	OwnerOrg  uuid.UUID `gorm:"not null;index"`
	Name      string    `gorm:"size:200"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (AppModel) TableName() string {
	return "apps"
}

// ToDomain converts the persistence model to a domain App
func (m *AppModel) ToDomain() *catalog.App {
	return &catalog.App{
		AppID:     m.AppID,
		OwnerOrg:  m.OwnerOrg,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}

// AppVersionModel is the persistence model for a bundle
type AppVersionModel struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	AppID           string    `gorm:"size:200;not null;index"`
	Name            string    `gorm:"size:100;not null"`
	StorageProvider string    `gorm:"size:20;not null"`
	R2Path          string    `gorm:"column:r2_path;size:500"`
	ExternalURL     string    `gorm:"size:1000"`
	Size            int64     `gorm:"not null;default:0"`
	Checksum        string    `gorm:"size:128"`
	Deleted         bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (AppVersionModel) TableName() string {
	return "app_versions"
}

// ToDomain converts the persistence model to a domain Bundle
func (m *AppVersionModel) ToDomain() catalog.Bundle {
	return catalog.Bundle{
		ID:              m.ID,
		AppID:           m.AppID,
		Name:            m.Name,
		StorageProvider: catalog.StorageProvider(m.StorageProvider),
		StoragePath:     m.R2Path,
		ExternalURL:     m.ExternalURL,
		Size:            m.Size,
		Checksum:        m.Checksum,
		Deleted:         m.Deleted,
		CreatedAt:       m.CreatedAt,
	}
}

// AppVersionModelFromDomain builds a persistence model from a domain Bundle
func AppVersionModelFromDomain(b catalog.Bundle) *AppVersionModel {
	return &AppVersionModel{
		ID:              b.ID,
		AppID:           b.AppID,
		Name:            b.Name,
		StorageProvider: string(b.StorageProvider),
		R2Path:          b.StoragePath,
		ExternalURL:     b.ExternalURL,
		Size:            b.Size,
		Checksum:        b.Checksum,
		Deleted:         b.Deleted,
		CreatedAt:       b.CreatedAt,
	}
}
