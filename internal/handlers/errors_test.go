package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upahan/upahan-api/internal/services"
)

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.Mark(errors.New("amount must be positive"), services.ErrValidation), http.StatusBadRequest},
		{errors.Mark(errors.New("no binding"), services.ErrPrecondition), http.StatusUnprocessableEntity},
		{errors.Mark(errors.New("dorm"), services.ErrPlanFeature), http.StatusUnprocessableEntity},
		{errors.Mark(errors.New("dup"), services.ErrDuplicate), http.StatusConflict},
		{errors.Mark(errors.New("stale"), services.ErrVersionConflict), http.StatusConflict},
		{errors.Mark(errors.New("paid"), services.ErrInvalidState), http.StatusConflict},
		{errors.Wrap(services.ErrNotFound, "bill"), http.StatusNotFound},
		{errors.Mark(errors.New("nope"), services.ErrForbidden), http.StatusForbidden},
		{errors.Mark(errors.New("unpaid"), services.ErrWorkspaceSuspended), http.StatusForbidden},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, fmt.Errorf("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body["error"])
}
