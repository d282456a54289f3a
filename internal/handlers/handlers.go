package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/upahan/upahan-api/internal/services"
	"github.com/upahan/upahan-api/internal/storage"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Bill         *BillHandler
	Payment      *PaymentHandler
	Utility      *UtilityHandler
	Notification *NotificationHandler
	Report       *ReportHandler
	Audit        *AuditHandler
	Admin        *AdminHandler
	Job          *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, storage *storage.LocalStorage) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Bill:         NewBillHandler(svcs.Bill),
		Payment:      NewPaymentHandler(svcs.Payment, svcs.Report, storage),
		Utility:      NewUtilityHandler(svcs.Utility),
		Notification: NewNotificationHandler(svcs.Notification),
		Report:       NewReportHandler(svcs.Report),
		Audit:        NewAuditHandler(svcs.Audit),
		Admin:        NewAdminHandler(svcs.Workspace),
		Job:          NewJobHandler(svcs.Job),
	}
}

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// @Summary Health Check
// @Description Checks if the API is running
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "upahan-api",
		"version": "1.0.0",
	})
}
