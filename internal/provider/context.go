package provider

import (
	"github.com/google/uuid"
)

// DefaultTenant is the implicit tenant used when a request carries no
// tenant context, i.e. single-tenant deployments.
const DefaultTenant = "default"

// IsolationLevel describes how strictly a tenant's resources are
// separated from other tenants.
type IsolationLevel string

const (
	IsolationStrict   IsolationLevel = "strict"
	IsolationStandard IsolationLevel = "standard"
	IsolationShared   IsolationLevel = "shared"
)

// Permissions declares what a tenant's client is allowed to do and the
// optional resource quotas enforced at creation time. A nil quota means
// unlimited.
type Permissions struct {
	CanCreate bool
	CanRead   bool
	CanUpdate bool
	CanDelete bool
	CanList   bool
	MaxUsers  *int
	MaxGroups *int
}

// FullPermissions grants every operation with no quotas
func FullPermissions() Permissions {
	return Permissions{
		CanCreate: true,
		CanRead:   true,
		CanUpdate: true,
		CanDelete: true,
		CanList:   true,
	}
}

// TenantContext identifies the tenant a request acts on behalf of
type TenantContext struct {
	TenantID    string
	ClientID    string
	Permissions Permissions
	Isolation   IsolationLevel
}

// RequestContext carries per-request identity. Transport adapters
// construct it from their own protocol; the engine performs no
// authentication.
type RequestContext struct {
	RequestID string
	Tenant    *TenantContext
}

// NewRequestContext builds a context for the implicit single tenant
func NewRequestContext() RequestContext {
	return RequestContext{RequestID: uuid.NewString()}
}

// NewTenantRequestContext builds a context scoped to a tenant
func NewTenantRequestContext(tenant TenantContext) RequestContext {
	return RequestContext{
		RequestID: uuid.NewString(),
		Tenant:    &tenant,
	}
}

// EffectiveTenant resolves the tenant the request operates on
func (rc RequestContext) EffectiveTenant() string {
	if rc.Tenant != nil && rc.Tenant.TenantID != "" {
		return rc.Tenant.TenantID
	}
	return DefaultTenant
}

// permissions resolves the effective permission set; requests without a
// tenant context get full permissions.
func (rc RequestContext) permissions() Permissions {
	if rc.Tenant != nil {
		return rc.Tenant.Permissions
	}
	return FullPermissions()
}
