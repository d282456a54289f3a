package repository

import (
	"context"

	"github.com/upahan/upahan-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReceiptRepository defines the interface for receipt data access
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	FindByPaymentID(ctx context.Context, workspaceID, paymentID uint) (*models.Receipt, error)
}

type receiptRepository struct {
	db *gorm.DB
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	return conn(ctx, r.db).Omit(clause.Associations).Create(receipt).Error
}

func (r *receiptRepository) FindByPaymentID(ctx context.Context, workspaceID, paymentID uint) (*models.Receipt, error) {
	var receipt models.Receipt
	err := conn(ctx, r.db).
		Preload("Payment.Bill").
		Preload("Tenant").
		Where("workspace_id = ? AND payment_id = ?", workspaceID, paymentID).
		First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
