package models

import (
	"time"
)

// AuditLog represents a billing audit entry
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WorkspaceID uint      `gorm:"index" json:"workspace_id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Action      string    `gorm:"size:50;not null" json:"action"` // GENERATE, VERIFY, REJECT, REFUND, CANCEL, KILL_SWITCH
	Entity      string    `gorm:"size:50;not null" json:"entity"` // Bill, Payment, Workspace
	EntityID    uint      `json:"entity_id"`
	Details     string    `gorm:"type:text" json:"details"` // JSON or text description
	IPAddress   string    `gorm:"size:45" json:"ip_address"`
	UserAgent   string    `gorm:"size:255" json:"user_agent"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
