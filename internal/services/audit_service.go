package services

import (
	"context"

	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/pkg/logger"
)

type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records an audit entry for the caller. A failed write is logged, never returned,
// so auditing cannot undo a committed billing operation.
func (s *AuditService) Log(ctx context.Context, wc models.WorkspaceContext, action, entity string, entityID uint, details string) {
	entry := &models.AuditLog{
		WorkspaceID: wc.WorkspaceID,
		UserID:      wc.UserID,
		Action:      action,
		Entity:      entity,
		EntityID:    entityID,
		Details:     details,
		IPAddress:   wc.IPAddress,
		UserAgent:   wc.UserAgent,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logger.FromContext(ctx).Error("[Audit] Failed to write audit log", "action", action, "entity", entity, "entity_id", entityID, "error", err)
	}
}

// List retrieves audit logs. Landlords only see their own workspace.
func (s *AuditService) List(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) ([]models.AuditLog, int64, error) {
	if !wc.IsSuperadmin() {
		if !wc.IsLandlord() {
			return nil, 0, newError(ErrForbidden, "audit logs are only available to the landlord")
		}
		query.Filters["workspace_id"] = uintString(wc.WorkspaceID)
	}
	return s.repo.List(ctx, query)
}
