package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt acknowledges a verified payment
type Receipt struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	WorkspaceID    uint            `gorm:"not null;index" json:"workspace_id"`
	PaymentID      uint            `gorm:"uniqueIndex;not null" json:"payment_id"`
	TenantID       uint            `gorm:"not null;index" json:"tenant_id"`
	ReceiptNumber  string          `gorm:"uniqueIndex;not null" json:"receipt_number"`
	AmountReceived decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount_received"`
	ReceiptDate    time.Time       `gorm:"type:date;not null" json:"receipt_date"`
	IssuedBy       uint            `json:"issued_by"`
	CreatedAt      time.Time       `json:"created_at"`

	Payment Payment       `gorm:"foreignKey:PaymentID" json:"-"`
	Tenant  TenantAccount `gorm:"foreignKey:TenantID" json:"-"`
}

// TableName specifies the table name for Receipt
func (Receipt) TableName() string {
	return "receipts"
}
