package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/infrastructure/store"
)

// DeviceReport is one stats line sent by a device
type DeviceReport struct {
	AppID         string
	DeviceID      string
	Action        billing.Action
	VersionName   string
	VersionID     int64
	Platform      string
	PluginVersion string
}

// UsageRecorder appends usage events and keeps device heartbeats current.
// It writes with the elevated client; callers decide whether a failure matters.
type UsageRecorder struct {
	clients *store.Factory
}

// NewUsageRecorder creates a new UsageRecorder
func NewUsageRecorder(clients *store.Factory) *UsageRecorder {
	return &UsageRecorder{clients: clients}
}

// RecordBandwidth inserts one bandwidth row
func (r *UsageRecorder) RecordBandwidth(ctx context.Context, u *billing.BandwidthUsage) error {
	_, err := store.Call(ctx, r.clients.Elevated(), store.InsertBandwidthUsage, u)
	return wrapWrite("bandwidth", err)
}

// RecordVersion inserts one version usage row
func (r *UsageRecorder) RecordVersion(ctx context.Context, u *billing.VersionUsage) error {
	_, err := store.Call(ctx, r.clients.Elevated(), store.InsertVersionUsage, u)
	return wrapWrite("version usage", err)
}

// RecordStats inserts one stats row
func (r *UsageRecorder) RecordStats(ctx context.Context, e *billing.StatsEvent) error {
	_, err := store.Call(ctx, r.clients.Elevated(), store.InsertStats, e)
	return wrapWrite("stats", err)
}

// RecordHeartbeat upserts the device row keyed by device and app
func (r *UsageRecorder) RecordHeartbeat(ctx context.Context, d *billing.DeviceRecord) error {
	_, err := store.Call(ctx, r.clients.Elevated(), store.UpsertDevice, d)
	return wrapWrite("device", err)
}

// RecordDeviceReport stores a device stats line: the stats row, the heartbeat and,
// for metered actions, a version usage row. Every write is attempted; the failures
// are joined.
func (r *UsageRecorder) RecordDeviceReport(ctx context.Context, rep DeviceReport) error {
	stats, err := billing.NewStatsEvent(rep.AppID, rep.DeviceID, rep.Action, rep.VersionName, rep.VersionID)
	if err != nil {
		return err
	}
	device, err := billing.NewDeviceRecord(rep.AppID, rep.DeviceID, rep.VersionID, rep.VersionName)
	if err != nil {
		return err
	}

	errs := []error{
		r.RecordStats(ctx, stats.WithPlatform(rep.Platform)),
		r.RecordHeartbeat(ctx, device.WithClient(rep.Platform, rep.PluginVersion)),
	}
	if rep.Action.Metered() && rep.VersionID > 0 {
		v, err := billing.NewVersionUsage(rep.AppID, rep.VersionID, rep.Action)
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, r.RecordVersion(ctx, v))
		}
	}
	return errors.Join(errs...)
}

func wrapWrite(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("record %s: %w", what, err)
}
