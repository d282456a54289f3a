package repository

import (
	"context"
	"errors"
	"time"

	"github.com/upahan/upahan-api/internal/models"

	"gorm.io/gorm"
)

// ErrStaleVersion is returned when a versioned update finds the row changed by someone else
var ErrStaleVersion = errors.New("row version changed since it was read")

// BillRepository defines the interface for bill data access
type BillRepository interface {
	FindByID(ctx context.Context, workspaceID, id uint) (*models.Bill, error)
	FindByIdempotencyKeys(ctx context.Context, keys []string) ([]models.Bill, error)
	Create(ctx context.Context, bill *models.Bill) error
	UpdateVersioned(ctx context.Context, bill *models.Bill) error
	List(ctx context.Context, workspaceID uint, query *ListQuery) ([]models.Bill, int64, error)
	FindOverdueCandidates(ctx context.Context, today time.Time) ([]models.Bill, error)
	RefreshDaysOverdue(ctx context.Context, today time.Time) (int64, error)
}

type billRepository struct {
	db *gorm.DB
}

// NewBillRepository creates a new bill repository
func NewBillRepository(db *gorm.DB) BillRepository {
	return &billRepository{db: db}
}

func (r *billRepository) FindByID(ctx context.Context, workspaceID, id uint) (*models.Bill, error) {
	var bill models.Bill
	err := conn(ctx, r.db).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Tenant").
		Where("workspace_id = ?", workspaceID).
		First(&bill, id).Error
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) FindByIdempotencyKeys(ctx context.Context, keys []string) ([]models.Bill, error) {
	var bills []models.Bill
	if len(keys) == 0 {
		return bills, nil
	}
	err := conn(ctx, r.db).Where("idempotency_key IN ?", keys).Find(&bills).Error
	return bills, err
}

// Create inserts the bill and its line items
func (r *billRepository) Create(ctx context.Context, bill *models.Bill) error {
	return conn(ctx, r.db).Omit("Tenant").Create(bill).Error
}

// UpdateVersioned writes the mutable columns only if nobody changed the bill since it was read
func (r *billRepository) UpdateVersioned(ctx context.Context, bill *models.Bill) error {
	result := conn(ctx, r.db).
		Model(&models.Bill{}).
		Where("id = ? AND version = ?", bill.ID, bill.Version).
		Updates(map[string]any{
			"amount_paid":     bill.AmountPaid,
			"balance":         bill.Balance,
			"status":          bill.Status,
			"days_overdue":    bill.DaysOverdue,
			"idempotency_key": bill.IdempotencyKey,
			"notes":           bill.Notes,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleVersion
	}
	bill.Version++
	return nil
}

func (r *billRepository) List(ctx context.Context, workspaceID uint, query *ListQuery) ([]models.Bill, int64, error) {
	var bills []models.Bill
	var total int64

	db := conn(ctx, r.db).Model(&models.Bill{}).Where("bills.workspace_id = ?", workspaceID)

	if status := query.Filters["status"]; status != "" {
		db = db.Where("bills.status IN ?", statusList(status))
	}
	if tenantID := query.Filters["tenant_id"]; tenantID != "" {
		db = db.Where("bills.tenant_id = ?", tenantID)
	}
	if period := query.Filters["billing_period"]; period != "" {
		db = db.Where("LOWER(bills.billing_period) = LOWER(?)", period)
	}
	if val := query.Filters["start_date"]; val != "" {
		db = db.Where("bills.due_date >= ?", val)
	}
	if val := query.Filters["end_date"]; val != "" {
		db = db.Where("bills.due_date <= ?", val)
	}
	if query.Search != "" {
		term := "%" + query.Search + "%"
		db = db.Joins("JOIN tenant_accounts ON tenant_accounts.id = bills.tenant_id").
			Where("LOWER(tenant_accounts.full_name) LIKE LOWER(?) OR LOWER(bills.bill_number) LIKE LOWER(?)", term, term)
	}

	countDb := db.Session(&gorm.Session{})
	if err := countDb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = orderBy(db, query, map[string]string{
		"due_date":     "bills.due_date",
		"created_at":   "bills.created_at",
		"total_amount": "bills.total_amount",
		"balance":      "bills.balance",
		"status":       "bills.status",
	}, "bills.due_date DESC, bills.id DESC")

	err := paginate(db, query).
		Select("bills.*").
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Tenant").
		Find(&bills).Error

	return bills, total, err
}

// FindOverdueCandidates returns open bills whose due date has passed, across all workspaces
func (r *billRepository) FindOverdueCandidates(ctx context.Context, today time.Time) ([]models.Bill, error) {
	var bills []models.Bill
	err := conn(ctx, r.db).
		Preload("Tenant").
		Where("status IN ? AND due_date < ?", []string{models.BillStatusPending, models.BillStatusPartial}, today).
		Order("due_date ASC").
		Find(&bills).Error
	return bills, err
}

// RefreshDaysOverdue recomputes days_overdue for every overdue bill
func (r *billRepository) RefreshDaysOverdue(ctx context.Context, today time.Time) (int64, error) {
	var bills []models.Bill
	if err := conn(ctx, r.db).
		Select("id", "due_date", "days_overdue").
		Where("status = ?", models.BillStatusOverdue).
		Find(&bills).Error; err != nil {
		return 0, err
	}

	var updated int64
	for i := range bills {
		days := bills[i].OverdueDaysAt(today)
		if days == bills[i].DaysOverdue {
			continue
		}
		if err := conn(ctx, r.db).Model(&models.Bill{}).
			Where("id = ?", bills[i].ID).
			UpdateColumn("days_overdue", days).Error; err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
