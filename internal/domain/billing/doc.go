// Package billing provides domain models for usage metering and plan entitlement.
//
// This package implements the metering bounded context, which is responsible for:
//   - Recording usage events (bandwidth, bundle version actions, device stats, heartbeats)
//   - Aggregating usage of an organization over its billing cycle
//   - Comparing aggregated usage with the ceilings of the organization's plan
//
// Key types:
//   - Plan: a billing tier with one ceiling per metered dimension
//   - OrgBilling: the billing provider state of an organization (status, trial, cycle)
//   - TotalStats / PlanUsagePercent: aggregated usage and its share of the plan
//
// Usage events (BandwidthUsage, VersionUsage, StatsEvent) are immutable and write-once.
// DeviceRecord is the only mutable record; it is keyed by (device id, app id) and the
// latest heartbeat wins.
package billing
