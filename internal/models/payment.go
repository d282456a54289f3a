package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is money received from a tenant, optionally against a bill
type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	WorkspaceID     uint            `gorm:"not null;index" json:"workspace_id"`
	TenantID        uint            `gorm:"not null;index" json:"tenant_id"`
	BillID          *uint           `gorm:"index" json:"bill_id"`
	PaymentNumber   string          `gorm:"uniqueIndex;not null" json:"payment_number"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	AppliedAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"applied_amount"`
	ExcessAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"excess_amount"`
	PaymentMethod   string          `gorm:"not null" json:"payment_method"`
	ReferenceNumber *string         `json:"reference_number"`
	ProofPath       *string         `json:"-"`
	Status          string          `gorm:"default:pending;not null;index" json:"status"`
	VerifiedBy      *uint           `gorm:"index" json:"verified_by"`
	VerifiedAt      *time.Time      `json:"verified_at"`
	RejectionReason *string         `gorm:"type:text" json:"rejection_reason,omitempty"`
	PaymentDate     time.Time       `gorm:"type:date;not null;index" json:"payment_date"`
	Notes           *string         `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Associations
	Bill   *Bill         `gorm:"foreignKey:BillID" json:"bill,omitempty"`
	Tenant TenantAccount `gorm:"foreignKey:TenantID" json:"-"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment status constants
const (
	PaymentStatusPending  = "pending"
	PaymentStatusVerified = "verified"
	PaymentStatusRejected = "rejected"
	PaymentStatusRefunded = "refunded"
)

// Payment method constants
const (
	PaymentMethodCash         = "cash"
	PaymentMethodGCash        = "gcash"
	PaymentMethodMaya         = "maya"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCheck        = "check"
	PaymentMethodOther        = "other"
)

// PaymentMethods lists the accepted payment methods
var PaymentMethods = []string{
	PaymentMethodCash, PaymentMethodGCash, PaymentMethodMaya,
	PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodOther,
}

// MayVerify returns true if the payment is waiting for landlord review
func (p *Payment) MayVerify() bool {
	return p.Status == PaymentStatusPending
}

// MayReject returns true if payment can be rejected
func (p *Payment) MayReject() bool {
	return p.Status == PaymentStatusPending
}

// MayRefund returns true if a verified payment can be given back
func (p *Payment) MayRefund() bool {
	return p.Status == PaymentStatusVerified
}

// PaymentResponse is the JSON response format for payments
type PaymentResponse struct {
	ID              uint            `json:"id"`
	PaymentNumber   string          `json:"payment_number"`
	TenantID        uint            `json:"tenant_id"`
	TenantName      string          `json:"tenant_name,omitempty"`
	BillID          *uint           `json:"bill_id"`
	BillNumber      string          `json:"bill_number,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	AppliedAmount   decimal.Decimal `json:"applied_amount"`
	ExcessAmount    decimal.Decimal `json:"excess_amount"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber *string         `json:"reference_number"`
	Status          string          `json:"status"`
	PaymentDate     time.Time       `json:"payment_date"`
	VerifiedAt      *time.Time      `json:"verified_at"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	HasProof        bool            `json:"has_proof"`
	IsPDF           bool            `json:"is_pdf"`
	Notes           *string         `json:"notes"`
}

// ToResponse converts Payment to PaymentResponse
func (p *Payment) ToResponse() PaymentResponse {
	resp := PaymentResponse{
		ID:              p.ID,
		PaymentNumber:   p.PaymentNumber,
		TenantID:        p.TenantID,
		BillID:          p.BillID,
		Amount:          p.Amount,
		AppliedAmount:   p.AppliedAmount,
		ExcessAmount:    p.ExcessAmount,
		PaymentMethod:   p.PaymentMethod,
		ReferenceNumber: p.ReferenceNumber,
		Status:          p.Status,
		PaymentDate:     p.PaymentDate,
		VerifiedAt:      p.VerifiedAt,
		RejectionReason: p.RejectionReason,
		HasProof:        p.ProofPath != nil && *p.ProofPath != "",
		IsPDF:           p.ProofPath != nil && strings.HasSuffix(strings.ToLower(*p.ProofPath), ".pdf"),
		Notes:           p.Notes,
	}
	if p.Tenant.ID != 0 {
		resp.TenantName = p.Tenant.FullName
	}
	if p.Bill != nil && p.Bill.ID != 0 {
		resp.BillNumber = p.Bill.BillNumber
	}
	return resp
}
