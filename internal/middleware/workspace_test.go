package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/services"
	"github.com/upahan/upahan-api/internal/testutil"
)

const testSecret = "test-secret"

func newRouter(t *testing.T, workspaces *services.WorkspaceService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID())
	protected := router.Group("/api/v1")
	protected.Use(Auth(testSecret), Workspace(workspaces))
	protected.GET("/bills", func(c *gin.Context) {
		wc := GetWorkspaceContext(c)
		c.JSON(http.StatusOK, gin.H{"workspace_id": wc.WorkspaceID, "role": wc.Role})
	})
	return router
}

func token(t *testing.T, userID uint, role string, workspaceID uint) string {
	t.Helper()
	signed, err := SignToken(Claims{
		UserID:      userID,
		Role:        role,
		WorkspaceID: workspaceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)
	require.NoError(t, err)
	return signed
}

func get(router *gin.Engine, bearer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bills", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestWorkspaceMiddleware_KillSwitch(t *testing.T) {
	db := testutil.NewTestDB(t)
	repos := repository.NewRepositories(db)
	auditSvc := services.NewAuditService(repos.Audit)
	workspaces := services.NewWorkspaceService(repos.Workspace, repos.Tenant, auditSvc,
		services.NewNotificationService(repos.Notification, nil), time.Minute)
	router := newRouter(t, workspaces)

	ws := testutil.Workspace(t, db, models.PlanProfessional, models.WorkspaceTypeHomes)
	userID := uint(42)
	testutil.Tenant(t, db, ws, "Portal Tenant", &userID)
	landlord := token(t, ws.OwnerUserID, models.RoleLandlord, ws.ID)
	tenant := token(t, userID, models.RoleTenant, ws.ID)

	w := get(router, landlord)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	admin := models.WorkspaceContext{UserID: 900, Role: models.RoleSuperadmin}
	_, err := workspaces.SetKillSwitch(context.Background(), admin, ws.ID, true, "unpaid subscription")
	require.NoError(t, err)

	for _, bearer := range []string{landlord, tenant} {
		w = get(router, bearer)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "unpaid subscription")
	}

	_, err = workspaces.SetKillSwitch(context.Background(), admin, ws.ID, false, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(router, tenant).Code)
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/v1/bills", Auth(testSecret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	expired, err := SignToken(Claims{
		UserID: 1,
		Role:   models.RoleLandlord,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, testSecret)
	require.NoError(t, err)

	forged, err := SignToken(Claims{UserID: 1, Role: models.RoleLandlord}, "other-secret")
	require.NoError(t, err)

	tests := []struct {
		name   string
		bearer string
	}{
		{"missing", ""},
		{"expired", expired},
		{"wrong secret", forged},
		{"garbage", "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, get(router, tt.bearer).Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/v1/bills", Auth(testSecret), RequireRole(models.RoleLandlord), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, get(router, token(t, 1, models.RoleLandlord, 1)).Code)
	assert.Equal(t, http.StatusForbidden, get(router, token(t, 2, models.RoleTenant, 1)).Code)
}
