package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TenantAccount is a renter inside a workspace. UserID is set once the tenant has a portal login.
type TenantAccount struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	WorkspaceID uint       `gorm:"not null;index" json:"workspace_id"`
	UserID      *uint      `gorm:"index" json:"user_id"`
	FullName    string     `gorm:"not null" json:"full_name"`
	Email       *string    `json:"email"`
	Phone       string     `gorm:"not null" json:"phone"`
	Status      string     `gorm:"default:active;not null" json:"status"`
	MoveInDate  *time.Time `gorm:"type:date" json:"move_in_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Bindings []TenantBinding `gorm:"foreignKey:TenantID" json:"bindings,omitempty"`
}

// TableName specifies the table name for TenantAccount
func (TenantAccount) TableName() string {
	return "tenant_accounts"
}

// Tenant account status constants
const (
	TenantStatusActive   = "active"
	TenantStatusInactive = "inactive"
	TenantStatusArchived = "archived"
)

// TenantBinding associates a tenant to a unit or a bed with the agreed monthly rent
type TenantBinding struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	WorkspaceID uint            `gorm:"not null;index" json:"workspace_id"`
	TenantID    uint            `gorm:"not null;index" json:"tenant_id"`
	UnitID      *uint           `gorm:"index" json:"unit_id"`
	BedID       *uint           `gorm:"index" json:"bed_id"`
	BindingType string          `gorm:"not null" json:"binding_type"`
	MonthlyRent decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"monthly_rent"`
	StartDate   time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate     *time.Time      `gorm:"type:date" json:"end_date"`
	Status      string          `gorm:"default:active;not null;index" json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Tenant TenantAccount `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	Unit   *Unit         `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Bed    *Bed          `gorm:"foreignKey:BedID" json:"bed,omitempty"`
}

// TableName specifies the table name for TenantBinding
func (TenantBinding) TableName() string {
	return "tenant_bindings"
}

// Binding constants
const (
	BindingTypeUnit = "unit"
	BindingTypeBed  = "bed"

	BindingStatusActive     = "active"
	BindingStatusPending    = "pending"
	BindingStatusEnded      = "ended"
	BindingStatusTerminated = "terminated"
)

// IsActive returns true if the binding can be used as a rent source
func (b *TenantBinding) IsActive() bool {
	return b.Status == BindingStatusActive
}
