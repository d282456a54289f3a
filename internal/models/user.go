package models

// Role constants carried in access token claims
const (
	RoleLandlord   = "landlord"
	RoleTenant     = "tenant"
	RoleSuperadmin = "superadmin"
)

// WorkspaceContext is the caller identity resolved once per request and passed to every service call
type WorkspaceContext struct {
	WorkspaceID   uint
	OwnerUserID   uint
	UserID        uint
	Role          string
	Plan          string
	WorkspaceType string
	// TenantID is set when the caller is a tenant with a linked account
	TenantID *uint

	IPAddress string
	UserAgent string
}

// IsLandlord returns true if the caller manages the workspace
func (w WorkspaceContext) IsLandlord() bool {
	return w.Role == RoleLandlord
}

// IsTenant returns true if the caller is a renter using the portal
func (w WorkspaceContext) IsTenant() bool {
	return w.Role == RoleTenant
}

// IsSuperadmin returns true for platform operators
func (w WorkspaceContext) IsSuperadmin() bool {
	return w.Role == RoleSuperadmin
}

// Features returns the plan features of the workspace
func (w WorkspaceContext) Features() PlanFeatures {
	return FeaturesFor(w.Plan)
}

// AllowsDormBilling mirrors Workspace.AllowsDormBilling for a resolved context
func (w WorkspaceContext) AllowsDormBilling() bool {
	return w.WorkspaceType == WorkspaceTypeDormitory || w.Features().DormMode
}
