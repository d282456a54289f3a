package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/upahan/upahan-api/internal/middleware"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/services"
)

type BillHandler struct {
	billService *services.BillService
}

func NewBillHandler(billService *services.BillService) *BillHandler {
	return &BillHandler{billService: billService}
}

// GenerateBillsRequest is the body of flat-rent generation
type GenerateBillsRequest struct {
	TenantIDs     []uint  `json:"tenant_ids" binding:"required,min=1"`
	BillingPeriod string  `json:"billing_period" binding:"required"`
	DueDate       string  `json:"due_date" binding:"required,notpast"`
	Notes         *string `json:"notes"`
}

// GenerateDormBillsRequest is the body of dormitory generation
type GenerateDormBillsRequest struct {
	RoomID          uint            `json:"room_id" binding:"required"`
	TenantIDs       []uint          `json:"tenant_ids" binding:"required,min=1"`
	ElectricityBill decimal.Decimal `json:"electricity_bill"`
	WaterBill       decimal.Decimal `json:"water_bill"`
	BillingPeriod   string          `json:"billing_period" binding:"required"`
	DueDate         string          `json:"due_date" binding:"required,notpast"`
	Notes           *string         `json:"notes"`
}

// CancelBillRequest is the body of a bill cancellation
type CancelBillRequest struct {
	Reason string `json:"reason"`
}

func billsResponse(bills []models.Bill) []models.BillResponse {
	responses := make([]models.BillResponse, 0, len(bills))
	for i := range bills {
		responses = append(responses, bills[i].ToResponse())
	}
	return responses
}

func generationResponse(result *services.GenerationResult) gin.H {
	return gin.H{
		"bills":   billsResponse(result.Bills),
		"created": len(result.Bills),
		"skipped": result.Skipped,
	}
}

// @Summary Generate Flat-Rent Bills
// @Description Create one rent bill per selected tenant for a billing period. Tenants already billed for the period are skipped.
// @Tags Bills
// @Accept json
// @Produce json
// @Param request body GenerateBillsRequest true "Tenants and period"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /bills/generate [post]
func (h *BillHandler) Generate(c *gin.Context) {
	var req GenerateBillsRequest
	if err := BindNestedOrFlat(c, "bill", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		badRequest(c, "due_date must be YYYY-MM-DD")
		return
	}

	result, err := h.billService.GenerateFlatRent(c.Request.Context(), middleware.GetWorkspaceContext(c), services.FlatRentRequest{
		TenantIDs:     req.TenantIDs,
		BillingPeriod: req.BillingPeriod,
		DueDate:       dueDate,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, generationResponse(result))
}

// @Summary Generate Dormitory Bills
// @Description Create bed rent plus an equal share of the room's electricity and water for each selected boarder
// @Tags Bills
// @Accept json
// @Produce json
// @Param request body GenerateDormBillsRequest true "Room, boarders, utilities and period"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /bills/generate_dorm [post]
func (h *BillHandler) GenerateDorm(c *gin.Context) {
	var req GenerateDormBillsRequest
	if err := BindNestedOrFlat(c, "bill", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		badRequest(c, "due_date must be YYYY-MM-DD")
		return
	}

	result, err := h.billService.GenerateDorm(c.Request.Context(), middleware.GetWorkspaceContext(c), services.DormRequest{
		RoomID:        req.RoomID,
		TenantIDs:     req.TenantIDs,
		Electricity:   req.ElectricityBill,
		Water:         req.WaterBill,
		BillingPeriod: req.BillingPeriod,
		DueDate:       dueDate,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, generationResponse(result))
}

// listQuery reads the common list parameters
func listQuery(c *gin.Context, filters ...string) *repository.ListQuery {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if query.PerPage <= 0 || query.PerPage > 100 {
		query.PerPage = 20
	}
	query.Search = c.Query("search_term")

	// Parse sort parameter (format: field-direction)
	if sort := c.Query("sort"); sort != "" {
		parts := strings.Split(sort, "-")
		query.SortBy = parts[0]
		if len(parts) > 1 {
			query.SortDir = parts[1]
		}
	}

	for _, f := range filters {
		if v := c.Query(f); v != "" {
			query.Filters[f] = v
		}
	}
	return query
}

// @Summary List Bills
// @Description Get a paginated list of bills. Tenants only see their own.
// @Tags Bills
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status, e.g. pending,overdue"
// @Param tenant_id query int false "Filter by tenant"
// @Param billing_period query string false "Filter by billing period"
// @Param sort query string false "Sort, e.g. due_date-desc"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /bills [get]
func (h *BillHandler) Index(c *gin.Context) {
	query := listQuery(c, "status", "tenant_id", "billing_period", "start_date", "end_date")

	bills, total, err := h.billService.List(c.Request.Context(), middleware.GetWorkspaceContext(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bills":      billsResponse(bills),
		"pagination": pagination(query.Page, query.PerPage, total),
	})
}

// @Summary Get Bill
// @Description Get a bill with its line items
// @Tags Bills
// @Produce json
// @Param bill_id path int true "Bill ID"
// @Success 200 {object} models.BillResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /bills/{bill_id} [get]
func (h *BillHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "bill_id")
	if !ok {
		return
	}
	bill, err := h.billService.FindByID(c.Request.Context(), middleware.GetWorkspaceContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bill": bill.ToResponse()})
}

// @Summary Cancel Bill
// @Description Cancel a bill that has received no payment. The tenant can be billed again for the period.
// @Tags Bills
// @Accept json
// @Produce json
// @Param bill_id path int true "Bill ID"
// @Param body body CancelBillRequest false "Reason"
// @Success 200 {object} models.BillResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /bills/{bill_id}/cancel [post]
func (h *BillHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "bill_id")
	if !ok {
		return
	}
	var req CancelBillRequest
	_ = c.ShouldBindJSON(&req)

	bill, err := h.billService.Cancel(c.Request.Context(), middleware.GetWorkspaceContext(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bill": bill.ToResponse(), "message": "Bill cancelled"})
}

// @Summary List Room Boarders
// @Description List the boarders of a dormitory room with their bed rent, for choosing who shares the utilities
// @Tags Bills
// @Produce json
// @Param room_id path int true "Room ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /rooms/{room_id}/boarders [get]
func (h *BillHandler) Boarders(c *gin.Context) {
	id, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	boarders, err := h.billService.ListBoarders(c.Request.Context(), middleware.GetWorkspaceContext(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"boarders": boarders})
}
