package services

import (
	"context"

	"github.com/upahan/upahan-api/internal/jobs"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
)

type NotificationService struct {
	repo   repository.NotificationRepository
	worker *jobs.Worker
}

func NewNotificationService(repo repository.NotificationRepository, worker *jobs.Worker) *NotificationService {
	return &NotificationService{repo: repo, worker: worker}
}

func (s *NotificationService) FindByUser(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) ([]models.Notification, int64, error) {
	return s.repo.FindByUser(ctx, wc.WorkspaceID, wc.UserID, query)
}

func (s *NotificationService) CountUnread(ctx context.Context, wc models.WorkspaceContext) (int64, error) {
	return s.repo.CountUnread(ctx, wc.WorkspaceID, wc.UserID)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, wc models.WorkspaceContext, id uint) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "notification")
	}
	if notification.WorkspaceID != wc.WorkspaceID || notification.UserID != wc.UserID {
		return nil, newError(ErrNotFound, "notification not found")
	}
	if notification.IsRead() {
		return notification, nil
	}
	notification.MarkAsRead()
	if err := s.repo.Update(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, wc models.WorkspaceContext) error {
	return s.repo.MarkAllAsRead(ctx, wc.WorkspaceID, wc.UserID)
}

func (s *NotificationService) NotifyUser(ctx context.Context, workspaceID, userID uint, title, message, notifType string) error {
	notification := &models.Notification{
		WorkspaceID:      workspaceID,
		UserID:           userID,
		Title:            title,
		Message:          message,
		NotificationType: &notifType,
	}
	return s.repo.Create(ctx, notification)
}

// NotifyTenant notifies a tenant through the portal. Tenants without a login are skipped.
func (s *NotificationService) NotifyTenant(tenant *models.TenantAccount, title, message, notifType string) {
	if tenant == nil || tenant.UserID == nil {
		return
	}
	s.enqueue(tenant.WorkspaceID, *tenant.UserID, title, message, notifType)
}

// NotifyLandlord notifies the owner of the workspace
func (s *NotificationService) NotifyLandlord(wc models.WorkspaceContext, title, message, notifType string) {
	if wc.OwnerUserID == 0 {
		return
	}
	s.enqueue(wc.WorkspaceID, wc.OwnerUserID, title, message, notifType)
}

func (s *NotificationService) enqueue(workspaceID, userID uint, title, message, notifType string) {
	job := func(ctx context.Context) error {
		return s.NotifyUser(ctx, workspaceID, userID, title, message, notifType)
	}
	if s.worker == nil {
		_ = job(context.Background())
		return
	}
	s.worker.EnqueueAsync("notify_"+notifType, job)
}
