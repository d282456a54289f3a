package repository

import (
	"context"

	"github.com/upahan/upahan-api/internal/models"

	"gorm.io/gorm"
)

// AuditRepository defines the interface for audit log data access
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return conn(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, query *ListQuery) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := conn(ctx, r.db).Model(&models.AuditLog{})
	if ws := query.Filters["workspace_id"]; ws != "" {
		db = db.Where("workspace_id = ?", ws)
	}
	if entity := query.Filters["entity"]; entity != "" {
		db = db.Where("entity = ?", entity)
	}
	if action := query.Filters["action"]; action != "" {
		db = db.Where("action = ?", action)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(db.Order("created_at DESC, id DESC"), query).Find(&logs).Error
	return logs, total, err
}
