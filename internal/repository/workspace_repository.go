package repository

import (
	"context"

	"github.com/upahan/upahan-api/internal/models"

	"gorm.io/gorm"
)

// WorkspaceRepository defines the interface for workspace data access
type WorkspaceRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Workspace, error)
	UpdateKillSwitch(ctx context.Context, id uint, enabled bool, reason *string) error
}

type workspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new workspace repository
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) FindByID(ctx context.Context, id uint) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := conn(ctx, r.db).First(&workspace, id).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

func (r *workspaceRepository) UpdateKillSwitch(ctx context.Context, id uint, enabled bool, reason *string) error {
	result := conn(ctx, r.db).Model(&models.Workspace{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"kill_switch_enabled": enabled,
			"kill_switch_reason":  reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
