package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is a rentable apartment, house or room inside a property
type Unit struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	WorkspaceID     uint            `gorm:"not null;index" json:"workspace_id"`
	PropertyID      uint            `gorm:"not null;index" json:"property_id"`
	UnitNumber      string          `gorm:"not null" json:"unit_number"`
	BaseRent        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"base_rent"`
	OccupancyStatus string          `gorm:"default:vacant" json:"occupancy_status"`
	IsActive        bool            `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Unit
func (Unit) TableName() string {
	return "units"
}

// Room is a shared dormitory room holding beds
type Room struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WorkspaceID uint      `gorm:"not null;index" json:"workspace_id"`
	PropertyID  uint      `gorm:"not null;index" json:"property_id"`
	RoomNumber  string    `gorm:"not null" json:"room_number"`
	MaxBeds     int       `gorm:"not null" json:"max_beds"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Beds []Bed `gorm:"foreignKey:RoomID" json:"beds,omitempty"`
}

// TableName specifies the table name for Room
func (Room) TableName() string {
	return "rooms"
}

// Bed is a single bed in a dormitory room
type Bed struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	WorkspaceID     uint             `gorm:"not null;index" json:"workspace_id"`
	RoomID          uint             `gorm:"not null;index" json:"room_id"`
	BedNumber       string           `gorm:"not null" json:"bed_number"`
	MonthlyRate     *decimal.Decimal `gorm:"type:decimal(12,2)" json:"monthly_rate"`
	OccupancyStatus string           `gorm:"default:vacant" json:"occupancy_status"`
	IsActive        bool             `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// TableName specifies the table name for Bed
func (Bed) TableName() string {
	return "beds"
}

// Occupancy status constants
const (
	OccupancyVacant      = "vacant"
	OccupancyOccupied    = "occupied"
	OccupancyReserved    = "reserved"
	OccupancyMaintenance = "maintenance"
)

// Boarder is a tenant occupying a bed in a dormitory room, with the rent of its binding
type Boarder struct {
	TenantID  uint            `json:"tenant_id"`
	FullName  string          `json:"full_name"`
	BedID     uint            `json:"bed_id"`
	BedNumber string          `json:"bed_number"`
	BindingID uint            `json:"binding_id"`
	Rent      decimal.Decimal `json:"rent"`
}
