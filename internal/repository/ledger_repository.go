package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/upahan/upahan-api/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository defines the interface for tenant ledger data access
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.TenantLedgerEntry) error
	FindByTenantID(ctx context.Context, workspaceID, tenantID uint) ([]models.TenantLedgerEntry, error)
	FindByPaymentID(ctx context.Context, paymentID uint) ([]models.TenantLedgerEntry, error)
	CreditBalance(ctx context.Context, workspaceID, tenantID uint) (decimal.Decimal, error)
}

// ledgerRepository handles database operations for tenant ledger entries
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create creates a new ledger entry
func (r *ledgerRepository) Create(ctx context.Context, entry *models.TenantLedgerEntry) error {
	return conn(ctx, r.db).Create(entry).Error
}

// FindByTenantID retrieves all ledger entries for a tenant
func (r *ledgerRepository) FindByTenantID(ctx context.Context, workspaceID, tenantID uint) ([]models.TenantLedgerEntry, error) {
	var entries []models.TenantLedgerEntry
	err := conn(ctx, r.db).
		Where("workspace_id = ? AND tenant_id = ?", workspaceID, tenantID).
		Order("entry_date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// FindByPaymentID retrieves all ledger entries for a payment
func (r *ledgerRepository) FindByPaymentID(ctx context.Context, paymentID uint) ([]models.TenantLedgerEntry, error) {
	var entries []models.TenantLedgerEntry
	err := conn(ctx, r.db).
		Where("payment_id = ?", paymentID).
		Order("entry_date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// CreditBalance is the money held for a tenant from overpayments. Credit entries are
// positive and their reversals negative; neither is linked to a bill.
func (r *ledgerRepository) CreditBalance(ctx context.Context, workspaceID, tenantID uint) (decimal.Decimal, error) {
	var entries []models.TenantLedgerEntry
	err := conn(ctx, r.db).
		Select("amount").
		Where("workspace_id = ? AND tenant_id = ? AND entry_type IN ?", workspaceID, tenantID,
			[]string{models.LedgerEntryTypeCredit, models.LedgerEntryTypeReversal}).
		Where("bill_id IS NULL").
		Find(&entries).Error
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.Amount)
	}
	return balance, nil
}
