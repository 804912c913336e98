package billing

import (
	"strings"
	"time"

	"github.com/otahub/backend/internal/domain/shared"
)

// Action is a device-reported bundle lifecycle action
type Action string

const (
	ActionGet       Action = "get"
	ActionFail      Action = "fail"
	ActionInstall   Action = "install"
	ActionUninstall Action = "uninstall"
	ActionSet       Action = "set"
	ActionReset     Action = "reset"
	ActionDelete    Action = "delete"
)

// ParseAction validates an action sent by a device
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionGet, ActionFail, ActionInstall, ActionUninstall, ActionSet, ActionReset, ActionDelete:
		return a, nil
	default:
		return "", shared.NewDomainError(shared.KindValidation, "INVALID_ACTION", "Invalid action: "+s)
	}
}

// Metered reports whether the action counts toward a plan dimension
func (a Action) Metered() bool {
	switch a {
	case ActionGet, ActionFail, ActionInstall, ActionUninstall:
		return true
	}
	return false
}

// BandwidthUsage records bytes served to a device
type BandwidthUsage struct {
	AppID     string
	DeviceID  string
	FileSize  int64
	Timestamp time.Time
}

// NewBandwidthUsage validates and creates a bandwidth event
func NewBandwidthUsage(appID, deviceID string, fileSize int64) (*BandwidthUsage, error) {
	if err := requireIDs(appID, deviceID); err != nil {
		return nil, err
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError(shared.KindValidation, "INVALID_SIZE", "File size cannot be negative")
	}
	return &BandwidthUsage{
		AppID:     appID,
		DeviceID:  deviceID,
		FileSize:  fileSize,
		Timestamp: time.Now().UTC(),
	}, nil
}

// VersionUsage records an action against a bundle version
type VersionUsage struct {
	AppID     string
	VersionID int64
	Action    Action
	Timestamp time.Time
}

// NewVersionUsage validates and creates a version usage event
func NewVersionUsage(appID string, versionID int64, action Action) (*VersionUsage, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, shared.NewDomainError(shared.KindValidation, "INVALID_APP", "App ID cannot be empty")
	}
	if !action.Metered() {
		return nil, shared.NewDomainError(shared.KindValidation, "INVALID_ACTION", "Action is not metered: "+string(action))
	}
	return &VersionUsage{
		AppID:     appID,
		VersionID: versionID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}, nil
}

// StatsEvent is a device log line
type StatsEvent struct {
	AppID       string
	DeviceID    string
	Action      Action
	VersionName string
	VersionID   int64
	Platform    string
	CreatedAt   time.Time
}

// NewStatsEvent validates and creates a stats event
func NewStatsEvent(appID, deviceID string, action Action, versionName string, versionID int64) (*StatsEvent, error) {
	if err := requireIDs(appID, deviceID); err != nil {
		return nil, err
	}
	return &StatsEvent{
		AppID:       appID,
		DeviceID:    deviceID,
		Action:      action,
		VersionName: versionName,
		VersionID:   versionID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// WithPlatform sets the device platform
func (e *StatsEvent) WithPlatform(platform string) *StatsEvent {
	e.Platform = platform
	return e
}

// DeviceRecord is the latest known state of a device for an app
type DeviceRecord struct {
	DeviceID      string
	AppID         string
	VersionID     int64
	VersionName   string
	Platform      string
	PluginVersion string
	UpdatedAt     time.Time
}

// NewDeviceRecord validates and creates a heartbeat
func NewDeviceRecord(appID, deviceID string, versionID int64, versionName string) (*DeviceRecord, error) {
	if err := requireIDs(appID, deviceID); err != nil {
		return nil, err
	}
	return &DeviceRecord{
		DeviceID:    deviceID,
		AppID:       appID,
		VersionID:   versionID,
		VersionName: versionName,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// WithClient sets the platform and plugin version reported by the device
func (d *DeviceRecord) WithClient(platform, pluginVersion string) *DeviceRecord {
	d.Platform = platform
	d.PluginVersion = pluginVersion
	return d
}

func requireIDs(appID, deviceID string) error {
	if strings.TrimSpace(appID) == "" {
		return shared.NewDomainError(shared.KindValidation, "INVALID_APP", "App ID cannot be empty")
	}
	if strings.TrimSpace(deviceID) == "" {
		return shared.NewDomainError(shared.KindValidation, "INVALID_DEVICE", "Device ID cannot be empty")
	}
	return nil
}
