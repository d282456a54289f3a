package middleware

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/services"
	"github.com/upahan/upahan-api/pkg/logger"
)

const workspaceContextKey = "workspaceContext"

// WorkspaceResolver turns a token identity into a request context
type WorkspaceResolver interface {
	Resolve(ctx context.Context, id services.Identity) (models.WorkspaceContext, error)
}

// Workspace resolves the caller's workspace once per request. Suspended workspaces
// and callers without access are stopped here with 403.
func Workspace(resolver WorkspaceResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		wc, err := resolver.Resolve(c.Request.Context(), services.Identity{
			UserID:      GetUserID(c),
			Role:        GetUserRole(c),
			WorkspaceID: GetWorkspaceID(c),
			IPAddress:   c.ClientIP(),
			UserAgent:   c.Request.UserAgent(),
		})
		if err != nil {
			if errors.IsAny(err, services.ErrWorkspaceSuspended, services.ErrForbidden) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": services.Hint(err, "You do not have access to this workspace"),
				})
				return
			}
			logger.FromContext(c.Request.Context()).Error("[Workspace] Failed to resolve workspace", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
			return
		}

		c.Set(workspaceContextKey, wc)
		c.Next()
	}
}

// GetWorkspaceContext returns the context resolved by Workspace
func GetWorkspaceContext(c *gin.Context) models.WorkspaceContext {
	wc, exists := c.Get(workspaceContextKey)
	if !exists {
		return models.WorkspaceContext{}
	}
	return wc.(models.WorkspaceContext)
}
