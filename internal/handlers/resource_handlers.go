package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/upahan/upahan-api/internal/middleware"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// @Summary List Notifications
// @Description Get a paginated list of notifications for the current user
// @Tags Notifications
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) Index(c *gin.Context) {
	query := listQuery(c)

	notifications, total, err := h.notificationService.FindByUser(c.Request.Context(), middleware.GetWorkspaceContext(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, notifications[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{"notifications": responses, "pagination": pagination(query.Page, query.PerPage, total)})
}

// @Summary Unread Notification Count
// @Tags Notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Security BearerAuth
// @Router /notifications/unread_count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notificationService.CountUnread(c.Request.Context(), middleware.GetWorkspaceContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// @Summary Mark Notification Read
// @Description Mark a notification as read
// @Tags Notifications
// @Accept json
// @Produce json
// @Param notification_id path int true "Notification ID"
// @Success 200 {object} models.NotificationResponse
// @Security BearerAuth
// @Router /notifications/{notification_id}/mark_as_read [post]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, ok := pathID(c, "notification_id")
	if !ok {
		return
	}
	notification, err := h.notificationService.MarkAsRead(c.Request.Context(), middleware.GetWorkspaceContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notification": notification.ToResponse()})
}

// @Summary Mark All Notifications Read
// @Description Mark all notifications as read for current user
// @Tags Notifications
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /notifications/mark_all_as_read [post]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	if err := h.notificationService.MarkAllAsRead(c.Request.Context(), middleware.GetWorkspaceContext(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// reportFilters are the bill filters accepted by the report downloads
var reportFilters = []string{"status", "tenant_id", "billing_period", "start_date", "end_date"}

// @Summary Bills Report
// @Description Download the bills matching the filters as CSV
// @Tags Reports
// @Produce text/csv
// @Param status query string false "Filter by status"
// @Param billing_period query string false "Filter by billing period"
// @Success 200 {file} file "bills_report.csv"
// @Security BearerAuth
// @Router /reports/bills_csv [get]
func (h *ReportHandler) BillsCSV(c *gin.Context) {
	buf, err := h.reportService.BillsCSV(c.Request.Context(), middleware.GetWorkspaceContext(c), listQuery(c, reportFilters...))
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("bills_report_%s.csv", time.Now().Format(DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// @Summary Bills Spreadsheet
// @Description Download the bills matching the filters as an XLSX workbook with a totals row
// @Tags Reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file "bills_report.xlsx"
// @Security BearerAuth
// @Router /reports/bills_xlsx [get]
func (h *ReportHandler) BillsXLSX(c *gin.Context) {
	data, filename, err := h.reportService.BillsXLSX(c.Request.Context(), middleware.GetWorkspaceContext(c), listQuery(c, reportFilters...))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// @Summary Payments Report
// @Description Download the payments matching the filters as CSV
// @Tags Reports
// @Produce text/csv
// @Param status query string false "Filter by status"
// @Param tenant_id query int false "Filter by tenant"
// @Param payment_method query string false "Filter by payment method"
// @Param start_date query string false "Paid on or after (YYYY-MM-DD)"
// @Param end_date query string false "Paid on or before (YYYY-MM-DD)"
// @Success 200 {file} file "payments_report.csv"
// @Security BearerAuth
// @Router /reports/payments_csv [get]
func (h *ReportHandler) PaymentsCSV(c *gin.Context) {
	query := listQuery(c, "status", "tenant_id", "bill_id", "payment_method", "start_date", "end_date")
	buf, err := h.reportService.PaymentsCSV(c.Request.Context(), middleware.GetWorkspaceContext(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("payments_report_%s.csv", time.Now().Format(DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// @Summary Outstanding Balances Report
// @Description Download what each tenant owes on open bills, net of unapplied credit, as CSV
// @Tags Reports
// @Produce text/csv
// @Param tenant_id query int false "Filter by tenant"
// @Param billing_period query string false "Filter by billing period"
// @Success 200 {file} file "balances_report.csv"
// @Security BearerAuth
// @Router /reports/balances_csv [get]
func (h *ReportHandler) BalancesCSV(c *gin.Context) {
	query := listQuery(c, "tenant_id", "billing_period")
	buf, err := h.reportService.BalancesCSV(c.Request.Context(), middleware.GetWorkspaceContext(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("balances_report_%s.csv", time.Now().Format(DateLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary List Audit Logs
// @Description Get a paginated list of audit logs. Landlords see their workspace, the superadmin sees all.
// @Tags Audit
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param entity query string false "Filter by entity"
// @Param action query string false "Filter by action"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audits [get]
func (h *AuditHandler) Index(c *gin.Context) {
	query := listQuery(c, "workspace_id", "entity", "action")

	logs, total, err := h.auditService.List(c.Request.Context(), middleware.GetWorkspaceContext(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	c.JSON(http.StatusOK, gin.H{"audits": logs, "pagination": pagination(query.Page, query.PerPage, total)})
}
