package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/otahub/backend/internal/domain/billing"
	"github.com/otahub/backend/internal/domain/catalog"
	"github.com/otahub/backend/internal/domain/identity"
)

// NoResult is the result of procedures that only write
type NoResult struct{}

// NoParams is the parameter of procedures that take none
type NoParams struct{}

// AppParams selects an app
type AppParams struct {
	AppID string
}

// OrgParams selects an organization
type OrgParams struct {
	OrgID uuid.UUID
}

// GrantParams selects the grants of one user in one organization
type GrantParams struct {
	OrgID  uuid.UUID
	UserID uuid.UUID
}

// BundleParams selects a bundle of an app
type BundleParams struct {
	AppID    string
	BundleID int64
}

// PlanParams selects a plan by name
type PlanParams struct {
	Name string
}

// MetricsParams selects the usage of an organization in [Start, End)
type MetricsParams struct {
	OrgID uuid.UUID
	Start time.Time
	End   time.Time
}

// CustomerParams selects billing state by provider customer id
type CustomerParams struct {
	CustomerID string
}

// SetCustomerParams attaches a provider customer to an organization
type SetCustomerParams struct {
	OrgID      uuid.UUID
	CustomerID string
}

// Reads available to a principal's least-privilege client.
var (
	GetAppOwner        = Define[AppParams, uuid.UUID]("get_app_owner", ScopeUser)
	GetUserGrants      = Define[GrantParams, []identity.Grant]("get_user_grants", ScopeUser)
	GetOrg             = Define[OrgParams, *identity.Organization]("get_org", ScopeUser)
	GetOrgBilling      = Define[OrgParams, *billing.OrgBilling]("get_org_billing", ScopeUser)
	GetCurrentPlanName = Define[OrgParams, string]("get_current_plan_name", ScopeUser)
	GetPlan            = Define[PlanParams, *billing.Plan]("get_plan", ScopeUser)
	GetTotalMetrics    = Define[MetricsParams, billing.TotalStats]("get_total_metrics", ScopeUser)
	IsOnboarded        = Define[OrgParams, bool]("is_onboarded", ScopeUser)
)

// Operations reserved to trusted server-side code.
var (
	GetBundle               = Define[BundleParams, *catalog.OwnedBundle]("get_bundle", ScopeElevated)
	GetOrgBillingByCustomer = Define[CustomerParams, *billing.OrgBilling]("get_org_billing_by_customer", ScopeElevated)
	InsertBandwidthUsage    = Define[*billing.BandwidthUsage, NoResult]("insert_bandwidth_usage", ScopeElevated)
	InsertVersionUsage      = Define[*billing.VersionUsage, NoResult]("insert_version_usage", ScopeElevated)
	InsertStats             = Define[*billing.StatsEvent, NoResult]("insert_stats", ScopeElevated)
	UpsertDevice            = Define[*billing.DeviceRecord, NoResult]("upsert_device", ScopeElevated)
	ListOrgIDs              = Define[NoParams, []uuid.UUID]("list_org_ids", ScopeElevated)
	UpdateOrgBilling        = Define[*billing.OrgBilling, NoResult]("update_org_billing", ScopeElevated)
	SetOrgCustomer          = Define[SetCustomerParams, NoResult]("set_org_customer", ScopeElevated)
)

// procedureNames lists every declared procedure. Gateway.Missing reports the ones
// without a handler.
var procedureNames = []string{
	GetAppOwner.Name(),
	GetUserGrants.Name(),
	GetOrg.Name(),
	GetOrgBilling.Name(),
	GetCurrentPlanName.Name(),
	GetPlan.Name(),
	GetTotalMetrics.Name(),
	IsOnboarded.Name(),
	GetBundle.Name(),
	GetOrgBillingByCustomer.Name(),
	InsertBandwidthUsage.Name(),
	InsertVersionUsage.Name(),
	InsertStats.Name(),
	UpsertDevice.Name(),
	ListOrgIDs.Name(),
	UpdateOrgBilling.Name(),
	SetOrgCustomer.Name(),
}
