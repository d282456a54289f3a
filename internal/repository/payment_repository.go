package repository

import (
	"context"

	"github.com/upahan/upahan-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	FindByID(ctx context.Context, workspaceID, id uint) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	List(ctx context.Context, workspaceID uint, query *ListQuery) ([]models.Payment, int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindByID(ctx context.Context, workspaceID, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := conn(ctx, r.db).
		Preload("Bill").
		Preload("Tenant").
		Where("workspace_id = ?", workspaceID).
		First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return conn(ctx, r.db).Omit(clause.Associations).Create(payment).Error
}

func (r *paymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	return conn(ctx, r.db).Omit(clause.Associations).Save(payment).Error
}

func (r *paymentRepository) List(ctx context.Context, workspaceID uint, query *ListQuery) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	db := conn(ctx, r.db).Model(&models.Payment{}).Where("payments.workspace_id = ?", workspaceID)

	if status := query.Filters["status"]; status != "" {
		db = db.Where("payments.status IN ?", statusList(status))
	}
	if tenantID := query.Filters["tenant_id"]; tenantID != "" {
		db = db.Where("payments.tenant_id = ?", tenantID)
	}
	if billID := query.Filters["bill_id"]; billID != "" {
		db = db.Where("payments.bill_id = ?", billID)
	}
	if method := query.Filters["payment_method"]; method != "" {
		db = db.Where("payments.payment_method = ?", method)
	}
	if val := query.Filters["start_date"]; val != "" {
		db = db.Where("payments.payment_date >= ?", val)
	}
	if val := query.Filters["end_date"]; val != "" {
		db = db.Where("payments.payment_date <= ?", val)
	}
	if query.Search != "" {
		term := "%" + query.Search + "%"
		db = db.Joins("JOIN tenant_accounts ON tenant_accounts.id = payments.tenant_id").
			Where("LOWER(tenant_accounts.full_name) LIKE LOWER(?) OR LOWER(payments.payment_number) LIKE LOWER(?) OR LOWER(COALESCE(payments.reference_number, '')) LIKE LOWER(?)",
				term, term, term)
	}

	countDb := db.Session(&gorm.Session{})
	if err := countDb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// pending payments need landlord attention, so they come first
	db = db.Order("(CASE WHEN payments.status = '" + models.PaymentStatusPending + "' THEN 0 ELSE 1 END) ASC")
	db = orderBy(db, query, map[string]string{
		"payment_date": "payments.payment_date",
		"created_at":   "payments.created_at",
		"amount":       "payments.amount",
	}, "payments.payment_date DESC, payments.id DESC")

	err := paginate(db, query).
		Select("payments.*").
		Preload("Bill").
		Preload("Tenant").
		Find(&payments).Error

	return payments, total, err
}
