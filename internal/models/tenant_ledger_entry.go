package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TenantLedgerEntry is a single movement on a tenant's running account
type TenantLedgerEntry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	WorkspaceID uint            `gorm:"not null;index" json:"workspace_id"`
	TenantID    uint            `gorm:"not null;index" json:"tenant_id"`
	BillID      *uint           `gorm:"index" json:"bill_id,omitempty"`
	PaymentID   *uint           `gorm:"index" json:"payment_id,omitempty"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	EntryType   string          `gorm:"size:20;not null;index" json:"entry_type"`
	Description string          `gorm:"type:text" json:"description"`
	EntryDate   time.Time       `gorm:"not null;index" json:"entry_date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for TenantLedgerEntry
func (TenantLedgerEntry) TableName() string {
	return "tenant_ledger_entries"
}

// Ledger entry type constants
const (
	LedgerEntryTypeCharge   = "charge"
	LedgerEntryTypePayment  = "payment"
	LedgerEntryTypeCredit   = "credit"
	LedgerEntryTypeReversal = "reversal"
)
