package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bill is a charge issued to a tenant for a billing period
type Bill struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	WorkspaceID    uint            `gorm:"not null;index" json:"workspace_id"`
	TenantID       uint            `gorm:"not null;index" json:"tenant_id"`
	BindingID      *uint           `gorm:"index" json:"binding_id"`
	BillNumber     string          `gorm:"uniqueIndex;not null" json:"bill_number"`
	BillingPeriod  string          `gorm:"not null;index" json:"billing_period"`
	IdempotencyKey *string         `gorm:"uniqueIndex" json:"-"`
	IssueDate      time.Time       `gorm:"type:date;not null" json:"issue_date"`
	DueDate        time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount_paid"`
	Balance        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance"`
	Status         string          `gorm:"default:pending;not null;index" json:"status"`
	DaysOverdue    int             `gorm:"default:0" json:"days_overdue"`
	Version        int             `gorm:"not null;default:1" json:"version"`
	Notes          *string         `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// Associations
	LineItems []BillLineItem `gorm:"foreignKey:BillID" json:"line_items,omitempty"`
	Tenant    TenantAccount  `gorm:"foreignKey:TenantID" json:"-"`
}

// TableName specifies the table name for Bill
func (Bill) TableName() string {
	return "bills"
}

// BeforeCreate starts the optimistic lock counter
func (b *Bill) BeforeCreate(tx *gorm.DB) error {
	if b.Version == 0 {
		b.Version = 1
	}
	return nil
}

// Bill status constants
const (
	BillStatusDraft     = "draft"
	BillStatusPending   = "pending"
	BillStatusPartial   = "partial"
	BillStatusPaid      = "paid"
	BillStatusOverdue   = "overdue"
	BillStatusCancelled = "cancelled"
)

// MayApplyPayment returns true if the bill still accepts money
func (b *Bill) MayApplyPayment() bool {
	return b.Status == BillStatusPending || b.Status == BillStatusPartial || b.Status == BillStatusOverdue
}

// MayCancel returns true if the bill can be cancelled. Bills with money applied must be refunded first.
func (b *Bill) MayCancel() bool {
	switch b.Status {
	case BillStatusDraft, BillStatusPending, BillStatusOverdue:
		return b.AmountPaid.IsZero()
	}
	return false
}

// MayMarkOverdue returns true for open bills past their due date
func (b *Bill) MayMarkOverdue(today time.Time) bool {
	if b.Status != BillStatusPending && b.Status != BillStatusPartial {
		return false
	}
	return b.DueDate.Before(today)
}

// MayReverse returns true if a previously applied amount can be taken back
func (b *Bill) MayReverse() bool {
	switch b.Status {
	case BillStatusPaid, BillStatusPartial, BillStatusOverdue:
		return b.AmountPaid.IsPositive()
	}
	return false
}

// OverdueDaysAt returns the whole days elapsed since the due date
func (b *Bill) OverdueDaysAt(today time.Time) int {
	if !b.DueDate.Before(today) {
		return 0
	}
	return int(today.Sub(b.DueDate).Hours() / 24)
}

// BillLineItem is an immutable component of a bill total
type BillLineItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	BillID      uint            `gorm:"not null;index" json:"bill_id"`
	Description string          `gorm:"not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	ItemType    string          `gorm:"not null" json:"item_type"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName specifies the table name for BillLineItem
func (BillLineItem) TableName() string {
	return "bill_line_items"
}

// Line item types
const (
	LineItemTypeRent    = "rent"
	LineItemTypeUtility = "utility"
)

// BillResponse is the JSON response format for bills
type BillResponse struct {
	ID            uint            `json:"id"`
	BillNumber    string          `json:"bill_number"`
	TenantID      uint            `json:"tenant_id"`
	TenantName    string          `json:"tenant_name,omitempty"`
	BillingPeriod string          `json:"billing_period"`
	IssueDate     time.Time       `json:"issue_date"`
	DueDate       time.Time       `json:"due_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
	DaysOverdue   int             `json:"days_overdue"`
	Notes         *string         `json:"notes"`
	LineItems     []BillLineItem  `json:"line_items"`
}

// ToResponse converts Bill to BillResponse
func (b *Bill) ToResponse() BillResponse {
	resp := BillResponse{
		ID:            b.ID,
		BillNumber:    b.BillNumber,
		TenantID:      b.TenantID,
		BillingPeriod: b.BillingPeriod,
		IssueDate:     b.IssueDate,
		DueDate:       b.DueDate,
		TotalAmount:   b.TotalAmount,
		AmountPaid:    b.AmountPaid,
		Balance:       b.Balance,
		Status:        b.Status,
		DaysOverdue:   b.DaysOverdue,
		Notes:         b.Notes,
		LineItems:     b.LineItems,
	}
	if resp.LineItems == nil {
		resp.LineItems = []BillLineItem{}
	}
	if b.Tenant.ID != 0 {
		resp.TenantName = b.Tenant.FullName
	}
	return resp
}
