package repository

import (
	"context"
	"strings"
	"time"

	"github.com/upahan/upahan-api/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Notification, error)
	FindByUser(ctx context.Context, workspaceID, userID uint, query *ListQuery) ([]models.Notification, int64, error)
	Create(ctx context.Context, notification *models.Notification) error
	Update(ctx context.Context, notification *models.Notification) error
	MarkAllAsRead(ctx context.Context, workspaceID, userID uint) error
	CountUnread(ctx context.Context, workspaceID, userID uint) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) FindByID(ctx context.Context, id uint) (*models.Notification, error) {
	var notification models.Notification
	err := conn(ctx, r.db).First(&notification, id).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) FindByUser(ctx context.Context, workspaceID, userID uint, query *ListQuery) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	db := conn(ctx, r.db).Model(&models.Notification{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID)

	if status, ok := query.Filters["status"]; ok && status != "" {
		switch strings.ToLower(status) {
		case "unread":
			db = db.Where("read_at IS NULL")
		case "read":
			db = db.Where("read_at IS NOT NULL")
		}
	}

	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	db = db.Order("created_at DESC, id DESC")

	err := paginate(db, query).Find(&notifications).Error
	return notifications, total, err
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return conn(ctx, r.db).Create(notification).Error
}

func (r *notificationRepository) Update(ctx context.Context, notification *models.Notification) error {
	return conn(ctx, r.db).Save(notification).Error
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, workspaceID, userID uint) error {
	return conn(ctx, r.db).Model(&models.Notification{}).
		Where("workspace_id = ? AND user_id = ? AND read_at IS NULL", workspaceID, userID).
		Update("read_at", time.Now()).Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, workspaceID, userID uint) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Notification{}).
		Where("workspace_id = ? AND user_id = ? AND read_at IS NULL", workspaceID, userID).
		Count(&count).Error
	return count, err
}
