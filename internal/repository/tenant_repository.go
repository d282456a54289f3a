package repository

import (
	"context"

	"github.com/upahan/upahan-api/internal/models"

	"gorm.io/gorm"
)

// TenantRepository defines read access to tenants and their rent bindings
type TenantRepository interface {
	FindByID(ctx context.Context, workspaceID, id uint) (*models.TenantAccount, error)
	FindByUserID(ctx context.Context, workspaceID, userID uint) (*models.TenantAccount, error)
	FindByIDs(ctx context.Context, workspaceID uint, ids []uint) ([]models.TenantAccount, error)
	FindActiveBindings(ctx context.Context, workspaceID uint, tenantIDs []uint) ([]models.TenantBinding, error)
	FindActiveBedBindingsInRoom(ctx context.Context, workspaceID, roomID uint) ([]models.TenantBinding, error)
}

type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) FindByID(ctx context.Context, workspaceID, id uint) (*models.TenantAccount, error) {
	var tenant models.TenantAccount
	err := conn(ctx, r.db).Where("workspace_id = ?", workspaceID).First(&tenant, id).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) FindByUserID(ctx context.Context, workspaceID, userID uint) (*models.TenantAccount, error) {
	var tenant models.TenantAccount
	err := conn(ctx, r.db).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) FindByIDs(ctx context.Context, workspaceID uint, ids []uint) ([]models.TenantAccount, error) {
	var tenants []models.TenantAccount
	if len(ids) == 0 {
		return tenants, nil
	}
	err := conn(ctx, r.db).
		Where("workspace_id = ? AND id IN ?", workspaceID, ids).
		Find(&tenants).Error
	return tenants, err
}

// FindActiveBindings returns the active bindings of the tenants, most recent first
func (r *tenantRepository) FindActiveBindings(ctx context.Context, workspaceID uint, tenantIDs []uint) ([]models.TenantBinding, error) {
	var bindings []models.TenantBinding
	if len(tenantIDs) == 0 {
		return bindings, nil
	}
	err := conn(ctx, r.db).
		Preload("Tenant").
		Where("workspace_id = ? AND tenant_id IN ? AND status = ?", workspaceID, tenantIDs, models.BindingStatusActive).
		Order("start_date DESC, id DESC").
		Find(&bindings).Error
	return bindings, err
}

// FindActiveBedBindingsInRoom returns the active bed bindings for beds of a room
func (r *tenantRepository) FindActiveBedBindingsInRoom(ctx context.Context, workspaceID, roomID uint) ([]models.TenantBinding, error) {
	var bindings []models.TenantBinding
	err := conn(ctx, r.db).
		Preload("Tenant").
		Preload("Bed").
		Joins("JOIN beds ON beds.id = tenant_bindings.bed_id").
		Where("tenant_bindings.workspace_id = ? AND beds.room_id = ? AND tenant_bindings.binding_type = ? AND tenant_bindings.status = ?",
			workspaceID, roomID, models.BindingTypeBed, models.BindingStatusActive).
		Order("beds.bed_number ASC").
		Select("tenant_bindings.*").
		Find(&bindings).Error
	return bindings, err
}
