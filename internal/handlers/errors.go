package handlers

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/upahan/upahan-api/internal/services"
	"github.com/upahan/upahan-api/pkg/logger"
)

// statusFor maps a service error onto its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.IsAny(err, services.ErrPrecondition, services.ErrPlanFeature):
		return http.StatusUnprocessableEntity
	case errors.IsAny(err, services.ErrDuplicate, services.ErrVersionConflict, services.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.IsAny(err, services.ErrForbidden, services.ErrWorkspaceSuspended):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": msg}. Unexpected errors are logged and sent to Sentry
// and their details are not shown to the caller.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Request failed", "path", c.FullPath(), "error", err)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		} else if hub := sentry.CurrentHub(); hub.Client() != nil {
			hub.CaptureException(err)
		}
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": services.Hint(err, err.Error())})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// pathID parses a numeric path parameter
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func pagination(page, perPage int, total int64) gin.H {
	totalPages := int64(0)
	if perPage > 0 {
		totalPages = (total + int64(perPage) - 1) / int64(perPage)
	}
	return gin.H{
		"page":        page,
		"per_page":    perPage,
		"total":       total,
		"total_pages": totalPages,
	}
}
