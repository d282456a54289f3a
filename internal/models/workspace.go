package models

import (
	"time"
)

// Workspace is the tenant-isolated account boundary owned by one landlord
type Workspace struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	OwnerUserID       uint      `gorm:"not null;index" json:"owner_user_id"`
	Name              string    `gorm:"not null" json:"name"`
	Slug              string    `gorm:"uniqueIndex;not null" json:"slug"`
	WorkspaceType     string    `gorm:"default:homes_apartments;not null" json:"workspace_type"`
	PlanType          string    `gorm:"default:starter;not null" json:"plan_type"`
	UnitCap           int       `gorm:"default:10" json:"unit_cap"`
	BillingStatus     string    `gorm:"default:active" json:"billing_status"`
	IsActive          bool      `gorm:"not null" json:"is_active"`
	KillSwitchEnabled bool      `gorm:"not null" json:"kill_switch_enabled"`
	KillSwitchReason  *string   `json:"kill_switch_reason"`
	ContactPhone      *string   `json:"contact_phone"`
	ContactEmail      *string   `json:"contact_email"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for Workspace
func (Workspace) TableName() string {
	return "workspaces"
}

// Workspace types
const (
	WorkspaceTypeHomes     = "homes_apartments"
	WorkspaceTypeDormitory = "dormitory"
)

// Plan types
const (
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEmpire       = "empire"
)

// PlanFeatures lists the capabilities unlocked by a subscription plan
type PlanFeatures struct {
	TenantPortal bool
	DormMode     bool
	MaxUnits     int
}

var planFeatures = map[string]PlanFeatures{
	PlanStarter:      {TenantPortal: false, DormMode: false, MaxUnits: 10},
	PlanProfessional: {TenantPortal: true, DormMode: false, MaxUnits: 50},
	PlanEmpire:       {TenantPortal: true, DormMode: true, MaxUnits: 999},
}

// FeaturesFor returns the features of a plan. Unknown plans get starter features.
func FeaturesFor(plan string) PlanFeatures {
	if f, ok := planFeatures[plan]; ok {
		return f
	}
	return planFeatures[PlanStarter]
}

// IsSuspended reports whether the workspace must be blocked for landlord and tenant access
func (w *Workspace) IsSuspended() bool {
	return w.KillSwitchEnabled || !w.IsActive
}

// AllowsDormBilling is true for dormitory workspaces and plans that include dorm mode
func (w *Workspace) AllowsDormBilling() bool {
	return w.WorkspaceType == WorkspaceTypeDormitory || FeaturesFor(w.PlanType).DormMode
}
