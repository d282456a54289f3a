package repository

import (
	"context"

	"github.com/upahan/upahan-api/internal/database"
	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Workspace    WorkspaceRepository
	Tenant       TenantRepository
	Property     PropertyRepository
	Bill         BillRepository
	Payment      PaymentRepository
	Utility      UtilityReadingRepository
	Ledger       LedgerRepository
	Receipt      ReceiptRepository
	Notification NotificationRepository
	Audit        AuditRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Workspace:    NewWorkspaceRepository(db),
		Tenant:       NewTenantRepository(db),
		Property:     NewPropertyRepository(db),
		Bill:         NewBillRepository(db),
		Payment:      NewPaymentRepository(db),
		Utility:      NewUtilityReadingRepository(db),
		Ledger:       NewLedgerRepository(db),
		Receipt:      NewReceiptRepository(db),
		Notification: NewNotificationRepository(db),
		Audit:        NewAuditRepository(db),
	}
}

// conn binds queries to the transaction in ctx when there is one
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	return database.Conn(ctx, db)
}
