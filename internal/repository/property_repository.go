package repository

import (
	"context"

	"github.com/upahan/upahan-api/internal/models"

	"gorm.io/gorm"
)

// PropertyRepository defines read access to units, rooms and beds
type PropertyRepository interface {
	FindUnitByID(ctx context.Context, workspaceID, id uint) (*models.Unit, error)
	FindRoomByID(ctx context.Context, workspaceID, id uint) (*models.Room, error)
}

type propertyRepository struct {
	db *gorm.DB
}

// NewPropertyRepository creates a new property repository
func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) FindUnitByID(ctx context.Context, workspaceID, id uint) (*models.Unit, error) {
	var unit models.Unit
	err := conn(ctx, r.db).Where("workspace_id = ?", workspaceID).First(&unit, id).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *propertyRepository) FindRoomByID(ctx context.Context, workspaceID, id uint) (*models.Room, error) {
	var room models.Room
	err := conn(ctx, r.db).
		Preload("Beds", func(db *gorm.DB) *gorm.DB { return db.Order("bed_number ASC") }).
		Where("workspace_id = ?", workspaceID).
		First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}
