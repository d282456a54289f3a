package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/upahan/upahan-api/internal/middleware"
	"github.com/upahan/upahan-api/internal/services"
)

type AdminHandler struct {
	workspaceService *services.WorkspaceService
}

func NewAdminHandler(workspaceService *services.WorkspaceService) *AdminHandler {
	return &AdminHandler{workspaceService: workspaceService}
}

// KillSwitchRequest toggles a workspace suspension
type KillSwitchRequest struct {
	Enabled *bool  `json:"enabled" binding:"required"`
	Reason  string `json:"reason"`
}

// @Summary Toggle Kill Switch
// @Description Suspend or restore a workspace. Suspended workspaces are refused for landlords and tenants. A reason is required to suspend.
// @Tags Admin
// @Accept json
// @Produce json
// @Param workspace_id path int true "Workspace ID"
// @Param request body KillSwitchRequest true "State and reason"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /admin/workspaces/{workspace_id}/kill_switch [put]
func (h *AdminHandler) KillSwitch(c *gin.Context) {
	id, ok := pathID(c, "workspace_id")
	if !ok {
		return
	}
	var req KillSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ws, err := h.workspaceService.SetKillSwitch(c.Request.Context(), middleware.GetWorkspaceContext(c), id, *req.Enabled, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Workspace restored"
	if ws.KillSwitchEnabled {
		message = "Workspace suspended"
	}
	c.JSON(http.StatusOK, gin.H{"workspace": ws, "message": message})
}
