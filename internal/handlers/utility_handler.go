package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/upahan/upahan-api/internal/middleware"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/services"
)

type UtilityHandler struct {
	utilityService *services.UtilityService
}

func NewUtilityHandler(utilityService *services.UtilityService) *UtilityHandler {
	return &UtilityHandler{utilityService: utilityService}
}

// RecordReadingRequest is a meter reading. previous_reading defaults to the last reading of the meter.
type RecordReadingRequest struct {
	UnitID          uint             `json:"unit_id" binding:"required"`
	UtilityType     string           `json:"utility_type" binding:"required,oneof=electricity water"`
	PreviousReading *decimal.Decimal `json:"previous_reading"`
	CurrentReading  decimal.Decimal  `json:"current_reading"`
	RatePerUnit     decimal.Decimal  `json:"rate_per_unit"`
	ReadingDate     string           `json:"reading_date"`
	Notes           *string          `json:"notes"`
}

// @Summary Record Utility Reading
// @Description Record a meter reading for a unit. Consumption and charge are computed; the reading is not added to any bill.
// @Tags Utilities
// @Accept json
// @Produce json
// @Param request body RecordReadingRequest true "Reading"
// @Success 201 {object} models.UtilityReading
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /utility_readings [post]
func (h *UtilityHandler) Create(c *gin.Context) {
	var req RecordReadingRequest
	if err := BindNestedOrFlat(c, "utility_reading", &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	readingDate, err := parseDate(req.ReadingDate)
	if err != nil {
		badRequest(c, "reading_date must be YYYY-MM-DD")
		return
	}

	reading, err := h.utilityService.RecordReading(c.Request.Context(), middleware.GetWorkspaceContext(c), services.ReadingRequest{
		UnitID:          req.UnitID,
		UtilityType:     req.UtilityType,
		PreviousReading: req.PreviousReading,
		CurrentReading:  req.CurrentReading,
		RatePerUnit:     req.RatePerUnit,
		ReadingDate:     readingDate,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"utility_reading": reading})
}

// @Summary List Utility Readings
// @Description Get a paginated list of meter readings
// @Tags Utilities
// @Produce json
// @Param unit_id query int false "Filter by unit"
// @Param utility_type query string false "electricity or water"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /utility_readings [get]
func (h *UtilityHandler) Index(c *gin.Context) {
	query := listQuery(c, "unit_id", "utility_type", "start_date", "end_date")

	readings, total, err := h.utilityService.ListReadings(c.Request.Context(), middleware.GetWorkspaceContext(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	if readings == nil {
		readings = []models.UtilityReading{}
	}

	c.JSON(http.StatusOK, gin.H{
		"utility_readings": readings,
		"pagination":       pagination(query.Page, query.PerPage, total),
	})
}
