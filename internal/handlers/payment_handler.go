package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/upahan/upahan-api/internal/middleware"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/services"
	"github.com/upahan/upahan-api/internal/storage"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	reportService  *services.ReportService
	storage        *storage.LocalStorage
}

func NewPaymentHandler(paymentService *services.PaymentService, reportService *services.ReportService, storage *storage.LocalStorage) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, reportService: reportService, storage: storage}
}

// RecordPaymentRequest is money the landlord received
type RecordPaymentRequest struct {
	TenantID        uint            `json:"tenant_id" binding:"required"`
	BillID          *uint           `json:"bill_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method" binding:"required"`
	ReferenceNumber *string         `json:"reference_number"`
	PaymentDate     string          `json:"payment_date"`
	Notes           *string         `json:"notes"`
}

// TenantPaymentRequest is a payment submitted through the tenant portal
type TenantPaymentRequest struct {
	BillID          *uint           `json:"bill_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method" binding:"required"`
	ReferenceNumber *string         `json:"reference_number"`
	PaymentDate     string          `json:"payment_date"`
	Notes           *string         `json:"notes"`
}

// ReasonRequest carries the reason of a rejection or refund
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func paymentsResponse(payments []models.Payment) []models.PaymentResponse {
	responses := make([]models.PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}
	return responses
}

func (r RecordPaymentRequest) toService() (services.PaymentRequest, error) {
	date, err := parseDate(r.PaymentDate)
	if err != nil {
		return services.PaymentRequest{}, err
	}
	return services.PaymentRequest{
		TenantID:        r.TenantID,
		BillID:          r.BillID,
		Amount:          r.Amount,
		PaymentMethod:   r.PaymentMethod,
		ReferenceNumber: r.ReferenceNumber,
		PaymentDate:     date,
		Notes:           r.Notes,
	}, nil
}

// @Summary Record Payment
// @Description Record money the landlord received. It is applied to the bill immediately; any excess is credited to the tenant.
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body RecordPaymentRequest true "Payment"
// @Success 201 {object} models.PaymentResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req RecordPaymentRequest
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	svcReq, err := req.toService()
	if err != nil {
		badRequest(c, "payment_date must be YYYY-MM-DD")
		return
	}

	payment, err := h.paymentService.RecordLandlordPayment(c.Request.Context(), middleware.GetWorkspaceContext(c), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment.ToResponse(), "message": "Payment recorded"})
}

// @Summary List Payments
// @Description Get a paginated list of payments. Tenants only see their own.
// @Tags Payments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param tenant_id query int false "Filter by tenant"
// @Param bill_id query int false "Filter by bill"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /payments [get]
func (h *PaymentHandler) Index(c *gin.Context) {
	query := listQuery(c, "status", "tenant_id", "bill_id", "payment_method", "start_date", "end_date")

	payments, total, err := h.paymentService.List(c.Request.Context(), middleware.GetWorkspaceContext(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments":   paymentsResponse(payments),
		"pagination": pagination(query.Page, query.PerPage, total),
	})
}

// @Summary Get Payment
// @Description Get a payment by ID
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} models.PaymentResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /payments/{payment_id} [get]
func (h *PaymentHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	payment, err := h.paymentService.FindByID(c.Request.Context(), middleware.GetWorkspaceContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse()})
}

// @Summary Verify Payment
// @Description Accept a payment submitted through the tenant portal and apply it to its bill
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} models.PaymentResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /payments/{payment_id}/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	payment, err := h.paymentService.VerifyPayment(c.Request.Context(), middleware.GetWorkspaceContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse(), "message": "Payment verified"})
}

// @Summary Reject Payment
// @Description Reject a submitted payment. The reason is sent to the tenant.
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Param body body ReasonRequest true "Rejection reason"
// @Success 200 {object} models.PaymentResponse
// @Security BearerAuth
// @Router /payments/{payment_id}/reject [post]
func (h *PaymentHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	var req ReasonRequest
	_ = c.ShouldBindJSON(&req)

	payment, err := h.paymentService.RejectPayment(c.Request.Context(), middleware.GetWorkspaceContext(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse(), "message": "Payment rejected"})
}

// @Summary Refund Payment
// @Description Give back a verified payment. The applied amount returns to the bill balance and any credit it produced is reversed.
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Param body body ReasonRequest false "Refund reason"
// @Success 200 {object} models.PaymentResponse
// @Security BearerAuth
// @Router /payments/{payment_id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	var req ReasonRequest
	_ = c.ShouldBindJSON(&req)

	payment, err := h.paymentService.RefundPayment(c.Request.Context(), middleware.GetWorkspaceContext(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse(), "message": "Payment refunded"})
}

// @Summary Download Receipt
// @Description Download the official receipt of a verified payment as PDF
// @Tags Payments
// @Produce application/pdf
// @Param payment_id path int true "Payment ID"
// @Success 200 {file} file "receipt.pdf"
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /payments/{payment_id}/receipt [get]
func (h *PaymentHandler) Receipt(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	pdf, filename, err := h.reportService.ReceiptPDF(c.Request.Context(), middleware.GetWorkspaceContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// @Summary Download Payment Proof
// @Description Download the proof uploaded with a tenant payment
// @Tags Payments
// @Produce application/octet-stream
// @Param payment_id path int true "Payment ID"
// @Success 200 {file} file "proof"
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /payments/{payment_id}/proof [get]
func (h *PaymentHandler) Proof(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	payment, err := h.paymentService.FindByID(c.Request.Context(), middleware.GetWorkspaceContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if payment.ProofPath == nil || !h.storage.Exists(*payment.ProofPath) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Proof not found"})
		return
	}
	c.File(h.storage.GetFullPath(*payment.ProofPath))
}

// @Summary Tenant Credit
// @Description Get the overpayment credit held for a tenant
// @Tags Payments
// @Produce json
// @Param tenant_id path int true "Tenant ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tenants/{tenant_id}/credit [get]
func (h *PaymentHandler) Credit(c *gin.Context) {
	id, ok := pathID(c, "tenant_id")
	if !ok {
		return
	}
	h.respondCredit(c, id)
}

func (h *PaymentHandler) respondCredit(c *gin.Context, tenantID uint) {
	credit, err := h.paymentService.CreditBalance(c.Request.Context(), middleware.GetWorkspaceContext(c), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant_id": tenantID, "credit": credit})
}

// @Summary Submit Payment (Tenant)
// @Description Submit a payment through the tenant portal, as JSON or multipart with a "proof" file (JPEG, PNG or PDF). It waits for landlord verification.
// @Tags Tenant Portal
// @Accept json,mpfd
// @Produce json
// @Param request body TenantPaymentRequest true "Payment"
// @Param proof formData file false "Proof of payment"
// @Success 201 {object} models.PaymentResponse
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /tenant/payments [post]
func (h *PaymentHandler) Submit(c *gin.Context) {
	var req TenantPaymentRequest
	var proof *services.Proof

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req.BillID = formUint(c, "bill_id")
		amount, err := decimal.NewFromString(c.PostForm("amount"))
		if err != nil {
			badRequest(c, "amount must be a number")
			return
		}
		req.Amount = amount
		req.PaymentMethod = c.PostForm("payment_method")
		req.PaymentDate = c.PostForm("payment_date")
		if ref := c.PostForm("reference_number"); ref != "" {
			req.ReferenceNumber = &ref
		}
		if notes := c.PostForm("notes"); notes != "" {
			req.Notes = &notes
		}

		if header, err := c.FormFile("proof"); err == nil {
			if header.Size > storage.MaxFileSize() {
				badRequest(c, "File exceeds the 10 MB limit")
				return
			}
			file, err := header.Open()
			if err != nil {
				badRequest(c, "Could not read the proof file")
				return
			}
			defer file.Close()
			proof = &services.Proof{Reader: file, Filename: header.Filename}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	svcReq, err := RecordPaymentRequest{
		BillID:          req.BillID,
		Amount:          req.Amount,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		PaymentDate:     req.PaymentDate,
		Notes:           req.Notes,
	}.toService()
	if err != nil {
		badRequest(c, "payment_date must be YYYY-MM-DD")
		return
	}

	payment, err := h.paymentService.SubmitTenantPayment(c.Request.Context(), middleware.GetWorkspaceContext(c), svcReq, proof)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment.ToResponse(), "message": "Payment submitted for verification"})
}

// @Summary My Credit (Tenant)
// @Description Get the overpayment credit held for the signed-in tenant
// @Tags Tenant Portal
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tenant/credit [get]
func (h *PaymentHandler) MyCredit(c *gin.Context) {
	wc := middleware.GetWorkspaceContext(c)
	if wc.TenantID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "No tenant account is linked to this login"})
		return
	}
	h.respondCredit(c, *wc.TenantID)
}

func formUint(c *gin.Context, key string) *uint {
	v, err := strconv.ParseUint(c.PostForm(key), 10, 32)
	if err != nil || v == 0 {
		return nil
	}
	id := uint(v)
	return &id
}
