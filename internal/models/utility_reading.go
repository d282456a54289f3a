package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UtilityReading is a meter reading for a unit with the charge it produces
type UtilityReading struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	WorkspaceID     uint            `gorm:"not null;index" json:"workspace_id"`
	UnitID          uint            `gorm:"not null;index:idx_reading_unit_type" json:"unit_id"`
	UtilityType     string          `gorm:"not null;index:idx_reading_unit_type" json:"utility_type"`
	PreviousReading decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"previous_reading"`
	CurrentReading  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"current_reading"`
	Consumption     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"consumption"`
	RatePerUnit     decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"rate_per_unit"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	ReadingDate     time.Time       `gorm:"type:date;not null;index" json:"reading_date"`
	RecordedBy      uint            `json:"recorded_by"`
	Notes           *string         `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for UtilityReading
func (UtilityReading) TableName() string {
	return "utility_readings"
}

// Utility types
const (
	UtilityTypeElectricity = "electricity"
	UtilityTypeWater       = "water"
)
