package repository

import (
	"context"

	"github.com/upahan/upahan-api/internal/models"

	"gorm.io/gorm"
)

// UtilityReadingRepository defines the interface for meter reading data access
type UtilityReadingRepository interface {
	Create(ctx context.Context, reading *models.UtilityReading) error
	FindLatest(ctx context.Context, workspaceID, unitID uint, utilityType string) (*models.UtilityReading, error)
	List(ctx context.Context, workspaceID uint, query *ListQuery) ([]models.UtilityReading, int64, error)
}

type utilityReadingRepository struct {
	db *gorm.DB
}

// NewUtilityReadingRepository creates a new utility reading repository
func NewUtilityReadingRepository(db *gorm.DB) UtilityReadingRepository {
	return &utilityReadingRepository{db: db}
}

func (r *utilityReadingRepository) Create(ctx context.Context, reading *models.UtilityReading) error {
	return conn(ctx, r.db).Create(reading).Error
}

// FindLatest returns the most recent reading of a meter
func (r *utilityReadingRepository) FindLatest(ctx context.Context, workspaceID, unitID uint, utilityType string) (*models.UtilityReading, error) {
	var reading models.UtilityReading
	err := conn(ctx, r.db).
		Where("workspace_id = ? AND unit_id = ? AND utility_type = ?", workspaceID, unitID, utilityType).
		Order("reading_date DESC, id DESC").
		First(&reading).Error
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *utilityReadingRepository) List(ctx context.Context, workspaceID uint, query *ListQuery) ([]models.UtilityReading, int64, error) {
	var readings []models.UtilityReading
	var total int64

	db := conn(ctx, r.db).Model(&models.UtilityReading{}).Where("workspace_id = ?", workspaceID)

	if unitID := query.Filters["unit_id"]; unitID != "" {
		db = db.Where("unit_id = ?", unitID)
	}
	if utilityType := query.Filters["utility_type"]; utilityType != "" {
		db = db.Where("utility_type = ?", utilityType)
	}
	if val := query.Filters["start_date"]; val != "" {
		db = db.Where("reading_date >= ?", val)
	}
	if val := query.Filters["end_date"]; val != "" {
		db = db.Where("reading_date <= ?", val)
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = orderBy(db, query, map[string]string{
		"reading_date": "reading_date",
		"total_amount": "total_amount",
	}, "reading_date DESC, id DESC")

	err := paginate(db, query).Find(&readings).Error
	return readings, total, err
}
