package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/upahan/upahan-api/internal/services"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Status returns the current worker status
// @Summary Get background job status
// @Description Get statistics about background jobs (active, completed, failed)
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /jobs/status [get]
func (h *JobHandler) Status(c *gin.Context) {
	status := h.jobService.GetStatus()
	c.JSON(http.StatusOK, status)
}

// SweepOverdue queues an overdue sweep outside the schedule
// @Summary Run overdue sweep
// @Description Queue a pass that marks bills past their due date as overdue
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 202 {object} map[string]string
// @Router /admin/jobs/overdue_sweep [post]
func (h *JobHandler) SweepOverdue(c *gin.Context) {
	h.jobService.TriggerOverdueSweep()
	c.JSON(http.StatusAccepted, gin.H{"message": "Overdue sweep queued"})
}
