package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/patrickmn/go-cache"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/pkg/logger"
	"gorm.io/gorm"
)

// Identity is what the access token says about the caller
type Identity struct {
	UserID      uint
	Role        string
	WorkspaceID uint
	IPAddress   string
	UserAgent   string
}

// WorkspaceService resolves request contexts and manages the workspace kill switch
type WorkspaceService struct {
	repo            repository.WorkspaceRepository
	tenantRepo      repository.TenantRepository
	auditSvc        *AuditService
	notificationSvc *NotificationService
	cache           *cache.Cache
}

func NewWorkspaceService(
	repo repository.WorkspaceRepository,
	tenantRepo repository.TenantRepository,
	auditSvc *AuditService,
	notificationSvc *NotificationService,
	ttl time.Duration,
) *WorkspaceService {
	return &WorkspaceService{
		repo:            repo,
		tenantRepo:      tenantRepo,
		auditSvc:        auditSvc,
		notificationSvc: notificationSvc,
		cache:           cache.New(ttl, 2*ttl),
	}
}

func workspaceCacheKey(id uint) string {
	return fmt.Sprintf("workspace:%d", id)
}

// FindByID returns the workspace, served from cache when fresh
func (s *WorkspaceService) FindByID(ctx context.Context, id uint) (*models.Workspace, error) {
	if cached, ok := s.cache.Get(workspaceCacheKey(id)); ok {
		ws := cached.(models.Workspace)
		return &ws, nil
	}
	ws, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "workspace")
	}
	s.cache.SetDefault(workspaceCacheKey(id), *ws)
	return ws, nil
}

// Resolve turns a token identity into the WorkspaceContext handed to every service call.
// Suspended workspaces are refused for everybody but platform operators.
func (s *WorkspaceService) Resolve(ctx context.Context, id Identity) (models.WorkspaceContext, error) {
	wc := models.WorkspaceContext{
		WorkspaceID: id.WorkspaceID,
		UserID:      id.UserID,
		Role:        id.Role,
		IPAddress:   id.IPAddress,
		UserAgent:   id.UserAgent,
	}

	if id.Role == models.RoleSuperadmin && id.WorkspaceID == 0 {
		return wc, nil
	}
	if id.WorkspaceID == 0 {
		return wc, newError(ErrForbidden, "no workspace selected")
	}

	ws, err := s.FindByID(ctx, id.WorkspaceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return wc, newError(ErrForbidden, "workspace not available")
		}
		return wc, err
	}

	wc.OwnerUserID = ws.OwnerUserID
	wc.Plan = ws.PlanType
	wc.WorkspaceType = ws.WorkspaceType

	if id.Role == models.RoleSuperadmin {
		return wc, nil
	}

	if ws.IsSuspended() {
		reason := "this workspace has been suspended"
		if ws.KillSwitchReason != nil && *ws.KillSwitchReason != "" {
			reason += ": " + *ws.KillSwitchReason
		}
		return wc, newError(ErrWorkspaceSuspended, "%s", reason)
	}

	switch id.Role {
	case models.RoleLandlord:
		if ws.OwnerUserID != id.UserID {
			return wc, newError(ErrForbidden, "you do not manage this workspace")
		}
	case models.RoleTenant:
		tenant, err := s.tenantRepo.FindByUserID(ctx, ws.ID, id.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return wc, newError(ErrForbidden, "no tenant account is linked to this login")
			}
			return wc, err
		}
		if tenant.Status != models.TenantStatusActive {
			return wc, newError(ErrForbidden, "tenant account is not active")
		}
		wc.TenantID = &tenant.ID
	default:
		return wc, newError(ErrForbidden, "unknown role %q", id.Role)
	}

	return wc, nil
}

// SetKillSwitch suspends or restores a workspace. Suspending requires a reason.
func (s *WorkspaceService) SetKillSwitch(ctx context.Context, wc models.WorkspaceContext, workspaceID uint, enabled bool, reason string) (*models.Workspace, error) {
	if !wc.IsSuperadmin() {
		return nil, newError(ErrForbidden, "only platform administrators can toggle the kill switch")
	}
	reason = strings.TrimSpace(reason)
	if enabled && reason == "" {
		return nil, newError(ErrValidation, "a reason is required to suspend a workspace")
	}

	var reasonPtr *string
	if enabled {
		reasonPtr = &reason
	}
	if err := s.repo.UpdateKillSwitch(ctx, workspaceID, enabled, reasonPtr); err != nil {
		return nil, translate(err, "workspace")
	}
	s.cache.Delete(workspaceCacheKey(workspaceID))

	ws, err := s.repo.FindByID(ctx, workspaceID)
	if err != nil {
		return nil, translate(err, "workspace")
	}

	action := "KILL_SWITCH_OFF"
	if enabled {
		action = "KILL_SWITCH_ON"
	}
	audit := wc
	audit.WorkspaceID = workspaceID
	s.auditSvc.Log(ctx, audit, action, "Workspace", workspaceID, reason)
	logger.FromContext(ctx).Warn("[Workspace] Kill switch toggled", "workspace_id", workspaceID, "enabled", enabled, "reason", reason)

	if enabled {
		s.notificationSvc.NotifyLandlord(models.WorkspaceContext{WorkspaceID: ws.ID, OwnerUserID: ws.OwnerUserID},
			"Workspace suspended",
			"Your workspace has been suspended: "+reason,
			models.NotificationTypeWorkspaceSuspend)
	}
	return ws, nil
}
