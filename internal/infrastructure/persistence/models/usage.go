package models

import (
	"time"

	"github.com/otahub/backend/internal/domain/billing"
)

// BandwidthUsageModel is one bandwidth row. Rows are never updated.
type BandwidthUsageModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	AppID     string    `gorm:"size:200;not null;index"`
	DeviceID  string    `gorm:"size:200;not null"`
	FileSize  int64     `gorm:"not null"`
	Timestamp time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (BandwidthUsageModel) TableName() string {
	return "bandwidth_usage"
}

// BandwidthUsageModelFromDomain builds a row from a bandwidth event
func BandwidthUsageModelFromDomain(u *billing.BandwidthUsage) *BandwidthUsageModel {
	return &BandwidthUsageModel{
		AppID:     u.AppID,
		DeviceID:  u.DeviceID,
		FileSize:  u.FileSize,
		Timestamp: u.Timestamp,
	}
}

// VersionUsageModel is one version usage row. Rows are never updated.
type VersionUsageModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	AppID     string    `gorm:"size:200;not null;index"`
	VersionID int64     `gorm:"not null"`
	Action    string    `gorm:"size:20;not null"`
	Timestamp time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (VersionUsageModel) TableName() string {
	return "version_usage"
}

// VersionUsageModelFromDomain builds a row from a version usage event
func VersionUsageModelFromDomain(u *billing.VersionUsage) *VersionUsageModel {
	return &VersionUsageModel{
		AppID:     u.AppID,
		VersionID: u.VersionID,
		Action:    string(u.Action),
		Timestamp: u.Timestamp,
	}
}

// StatsModel is one device log row. Rows are never updated.
type StatsModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	AppID       string    `gorm:"size:200;not null;index"`
	DeviceID    string    `gorm:"size:200;not null"`
	Action      string    `gorm:"size:20;not null"`
	VersionName string    `gorm:"size:100"`
	VersionID   int64     `gorm:"not null;default:0"`
	Platform    string    `gorm:"size:20"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StatsModel) TableName() string {
	return "stats"
}

// StatsModelFromDomain builds a row from a stats event
func StatsModelFromDomain(e *billing.StatsEvent) *StatsModel {
	return &StatsModel{
		AppID:       e.AppID,
		DeviceID:    e.DeviceID,
		Action:      string(e.Action),
		VersionName: e.VersionName,
		VersionID:   e.VersionID,
		Platform:    e.Platform,
		CreatedAt:   e.CreatedAt,
	}
}

// DeviceModel is the latest heartbeat of a device for an app
type DeviceModel struct {
	DeviceID      string    `gorm:"primaryKey;size:200"`
	AppID         string    `gorm:"primaryKey;size:200"`
	VersionID     int64     `gorm:"not null;default:0"`
	VersionName   string    `gorm:"size:100"`
	Platform      string    `gorm:"size:20"`
	PluginVersion string    `gorm:"size:50"`
	UpdatedAt     time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (DeviceModel) TableName() string {
	return "devices"
}

// ToDomain converts the row to a domain DeviceRecord
func (m *DeviceModel) ToDomain() *billing.DeviceRecord {
	return &billing.DeviceRecord{
		DeviceID:      m.DeviceID,
		AppID:         m.AppID,
		VersionID:     m.VersionID,
		VersionName:   m.VersionName,
		Platform:      m.Platform,
		PluginVersion: m.PluginVersion,
		UpdatedAt:     m.UpdatedAt,
	}
}

// DeviceModelFromDomain builds a row from a heartbeat
func DeviceModelFromDomain(d *billing.DeviceRecord) *DeviceModel {
	return &DeviceModel{
		DeviceID:      d.DeviceID,
		AppID:         d.AppID,
		VersionID:     d.VersionID,
		VersionName:   d.VersionName,
		Platform:      d.Platform,
		PluginVersion: d.PluginVersion,
		UpdatedAt:     d.UpdatedAt,
	}
}

// All lists every model, in dependency order, for test schemas
func All() []any {
	return []any{
		&OrgModel{},
		&OrgUserModel{},
		&AppModel{},
		&AppVersionModel{},
		&PlanModel{},
		&OrgBillingModel{},
		&BandwidthUsageModel{},
		&VersionUsageModel{},
		&StatsModel{},
		&DeviceModel{},
	}
}
