package services

import (
	"strconv"

	"github.com/upahan/upahan-api/internal/config"
	"github.com/upahan/upahan-api/internal/database"
	"github.com/upahan/upahan-api/internal/jobs"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/storage"
	"gorm.io/gorm"
)

// Services holds all service instances
type Services struct {
	Workspace    *WorkspaceService
	Bill         *BillService
	Payment      *PaymentService
	Utility      *UtilityService
	Notification *NotificationService
	Report       *ReportService
	Audit        *AuditService
	Job          *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, storage *storage.LocalStorage, cfg *config.Config, db *gorm.DB) *Services {
	tx := database.NewTxManager(db)
	loc := cfg.Location()

	notificationSvc := NewNotificationService(repos.Notification, worker)
	auditSvc := NewAuditService(repos.Audit)
	billSvc := NewBillService(tx, repos.Bill, repos.Tenant, repos.Property, repos.Ledger, notificationSvc, auditSvc, loc)
	paymentSvc := NewPaymentService(tx, repos.Payment, repos.Bill, repos.Tenant, repos.Ledger, repos.Receipt,
		notificationSvc, auditSvc, storage, loc, cfg.PaymentMaxRetries)

	return &Services{
		Workspace:    NewWorkspaceService(repos.Workspace, repos.Tenant, auditSvc, notificationSvc, cfg.WorkspaceCacheTTL),
		Bill:         billSvc,
		Payment:      paymentSvc,
		Utility:      NewUtilityService(repos.Utility, repos.Property, loc),
		Notification: notificationSvc,
		Report:       NewReportService(repos.Bill, repos.Payment, repos.Ledger, repos.Receipt, cfg.Currency),
		Audit:        auditSvc,
		Job:          NewJobService(worker, billSvc),
	}
}

// scopeToTenant restricts a list query to the caller's own records when the caller is a tenant
func scopeToTenant(wc models.WorkspaceContext, query *repository.ListQuery) error {
	if !wc.IsTenant() {
		return nil
	}
	if wc.TenantID == nil {
		return newError(ErrForbidden, "no tenant account is linked to this login")
	}
	query.Filters["tenant_id"] = uintString(*wc.TenantID)
	return nil
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
