package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/upahan/upahan-api/internal/models"
	"gorm.io/gorm"
)

// Workspace creates an active workspace on the given plan and type
func Workspace(t *testing.T, db *gorm.DB, plan, workspaceType string) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{
		OwnerUserID:   1,
		Name:          "Casa " + plan,
		Slug:          fmt.Sprintf("casa-%s-%d", plan, time.Now().UnixNano()),
		WorkspaceType: workspaceType,
		PlanType:      plan,
		UnitCap:       models.FeaturesFor(plan).MaxUnits,
		IsActive:      true,
	}
	require.NoError(t, db.Create(ws).Error)
	return ws
}

// Context builds the landlord request context of a workspace
func Context(ws *models.Workspace) models.WorkspaceContext {
	return models.WorkspaceContext{
		WorkspaceID:   ws.ID,
		OwnerUserID:   ws.OwnerUserID,
		UserID:        ws.OwnerUserID,
		Role:          models.RoleLandlord,
		Plan:          ws.PlanType,
		WorkspaceType: ws.WorkspaceType,
	}
}

// TenantContext builds the portal request context of a tenant
func TenantContext(ws *models.Workspace, tenant *models.TenantAccount) models.WorkspaceContext {
	wc := Context(ws)
	wc.Role = models.RoleTenant
	if tenant.UserID != nil {
		wc.UserID = *tenant.UserID
	}
	id := tenant.ID
	wc.TenantID = &id
	return wc
}

// Tenant creates an active tenant, optionally linked to a portal user
func Tenant(t *testing.T, db *gorm.DB, ws *models.Workspace, name string, userID *uint) *models.TenantAccount {
	t.Helper()
	tenant := &models.TenantAccount{
		WorkspaceID: ws.ID,
		UserID:      userID,
		FullName:    name,
		Phone:       "+639170000000",
		Status:      models.TenantStatusActive,
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

// UnitTenant creates a tenant bound to a new unit at the given monthly rent
func UnitTenant(t *testing.T, db *gorm.DB, ws *models.Workspace, name, rent string) (*models.TenantAccount, *models.TenantBinding) {
	t.Helper()
	tenant := Tenant(t, db, ws, name, nil)

	unit := &models.Unit{
		WorkspaceID: ws.ID,
		PropertyID:  1,
		UnitNumber:  fmt.Sprintf("U-%d", tenant.ID),
		BaseRent:    decimal.RequireFromString(rent),
		IsActive:    true,
	}
	require.NoError(t, db.Create(unit).Error)

	binding := &models.TenantBinding{
		WorkspaceID: ws.ID,
		TenantID:    tenant.ID,
		UnitID:      &unit.ID,
		BindingType: models.BindingTypeUnit,
		MonthlyRent: decimal.RequireFromString(rent),
		StartDate:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Status:      models.BindingStatusActive,
	}
	require.NoError(t, db.Create(binding).Error)
	return tenant, binding
}

// Room creates a dormitory room with one bed per rent and a boarder bound to each bed
func Room(t *testing.T, db *gorm.DB, ws *models.Workspace, rents ...string) (*models.Room, []*models.TenantAccount) {
	t.Helper()
	room := &models.Room{
		WorkspaceID: ws.ID,
		PropertyID:  1,
		RoomNumber:  "R-1",
		MaxBeds:     len(rents),
		IsActive:    true,
	}
	require.NoError(t, db.Create(room).Error)

	tenants := make([]*models.TenantAccount, 0, len(rents))
	for i, rent := range rents {
		bed := &models.Bed{
			WorkspaceID:     ws.ID,
			RoomID:          room.ID,
			BedNumber:       fmt.Sprintf("%d", i+1),
			OccupancyStatus: models.OccupancyOccupied,
			IsActive:        true,
		}
		require.NoError(t, db.Create(bed).Error)

		tenant := Tenant(t, db, ws, fmt.Sprintf("Boarder %d", i+1), nil)
		binding := &models.TenantBinding{
			WorkspaceID: ws.ID,
			TenantID:    tenant.ID,
			BedID:       &bed.ID,
			BindingType: models.BindingTypeBed,
			MonthlyRent: decimal.RequireFromString(rent),
			StartDate:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
			Status:      models.BindingStatusActive,
		}
		require.NoError(t, db.Create(binding).Error)
		tenants = append(tenants, tenant)
	}
	return room, tenants
}

// Bill inserts an issued bill with a single rent line
func Bill(t *testing.T, db *gorm.DB, ws *models.Workspace, tenant *models.TenantAccount, total string, due time.Time) *models.Bill {
	t.Helper()
	amount := decimal.RequireFromString(total)
	bill := &models.Bill{
		WorkspaceID:   ws.ID,
		TenantID:      tenant.ID,
		BillNumber:    fmt.Sprintf("BILL-TEST-%d-%d", tenant.ID, time.Now().UnixNano()),
		BillingPeriod: "March 2025",
		IssueDate:     due.AddDate(0, 0, -15),
		DueDate:       due,
		TotalAmount:   amount,
		AmountPaid:    decimal.Zero,
		Balance:       amount,
		Status:        models.BillStatusPending,
		LineItems: []models.BillLineItem{
			{Description: "Monthly Rent", Amount: amount, ItemType: models.LineItemTypeRent},
		},
	}
	require.NoError(t, db.Omit("Tenant").Create(bill).Error)
	return bill
}

// Dec parses a decimal literal
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Count returns the number of rows of a model
func Count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
