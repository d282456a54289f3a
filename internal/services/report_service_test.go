package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/testutil"
	"github.com/xuri/excelize/v2"
)

// Mock BillRepository
type mockBillRepository struct {
	repository.BillRepository
	mockList func(ctx context.Context, workspaceID uint, query *repository.ListQuery) ([]models.Bill, int64, error)
}

func (m *mockBillRepository) List(ctx context.Context, workspaceID uint, query *repository.ListQuery) ([]models.Bill, int64, error) {
	if m.mockList != nil {
		return m.mockList(ctx, workspaceID, query)
	}
	return nil, 0, nil
}

func reportBillsFixture() []models.Bill {
	due := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	return []models.Bill{
		{
			ID:            1,
			BillNumber:    "BILL-20250301-AAAA0001",
			BillingPeriod: "March 2025",
			IssueDate:     due.AddDate(0, 0, -14),
			DueDate:       due,
			TotalAmount:   decimal.RequireFromString("2150"),
			AmountPaid:    decimal.RequireFromString("1000"),
			Balance:       decimal.RequireFromString("1150"),
			Status:        models.BillStatusPartial,
			Tenant:        models.TenantAccount{ID: 10, FullName: "Maria Santos"},
		},
		{
			ID:            2,
			BillNumber:    "BILL-20250301-AAAA0002",
			BillingPeriod: "March 2025",
			IssueDate:     due.AddDate(0, 0, -14),
			DueDate:       due,
			TotalAmount:   decimal.RequireFromString("2350"),
			AmountPaid:    decimal.Zero,
			Balance:       decimal.RequireFromString("2350"),
			Status:        models.BillStatusOverdue,
			DaysOverdue:   3,
			Tenant:        models.TenantAccount{ID: 11, FullName: "Jose Reyes"},
		},
	}
}

func TestBillsCSV(t *testing.T) {
	var seen *repository.ListQuery
	mockRepo := &mockBillRepository{
		mockList: func(ctx context.Context, workspaceID uint, query *repository.ListQuery) ([]models.Bill, int64, error) {
			assert.Equal(t, uint(7), workspaceID)
			seen = query
			return reportBillsFixture(), 2, nil
		},
	}
	service := NewReportService(mockRepo, nil, nil, nil, "PHP")

	query := repository.NewListQuery()
	query.Filters["billing_period"] = "March 2025"

	wc := models.WorkspaceContext{WorkspaceID: 7, Role: models.RoleLandlord}
	buf, err := service.BillsCSV(context.Background(), wc, query)
	require.NoError(t, err)

	// exports are never paginated
	assert.Equal(t, 0, seen.PerPage)

	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, billReportHeader, records[0])
	assert.Equal(t, []string{
		"BILL-20250301-AAAA0001", "Maria Santos", "March 2025", "2025-03-01", "2025-03-15",
		"2150.00", "1000.00", "1150.00", "partial", "0",
	}, records[1])
	assert.Equal(t, "overdue", records[2][8])
	assert.Equal(t, "3", records[2][9])
}

func TestBillsCSV_TenantForbidden(t *testing.T) {
	service := NewReportService(&mockBillRepository{}, nil, nil, nil, "PHP")

	wc := models.WorkspaceContext{WorkspaceID: 7, Role: models.RoleTenant}
	_, err := service.BillsCSV(context.Background(), wc, repository.NewListQuery())
	assertMarked(t, err, ErrForbidden)
}

func TestBillsXLSX(t *testing.T) {
	mockRepo := &mockBillRepository{
		mockList: func(ctx context.Context, workspaceID uint, query *repository.ListQuery) ([]models.Bill, int64, error) {
			return reportBillsFixture(), 2, nil
		},
	}
	service := NewReportService(mockRepo, nil, nil, nil, "PHP")

	wc := models.WorkspaceContext{WorkspaceID: 7, Role: models.RoleLandlord}
	data, filename, err := service.BillsXLSX(context.Background(), wc, repository.NewListQuery())
	require.NoError(t, err)
	assert.Contains(t, filename, "bills_report_")

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Bills")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Bill Number", rows[0][0])
	assert.Equal(t, "Jose Reyes", rows[2][1])
	assert.Equal(t, "Total", rows[3][0])

	total, err := f.GetCellValue("Bills", "F4", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "4500", total)
}

// ledgerReportEnv seeds two tenants: Ana owes on two bills, one overdue, and
// Ben overpaid one bill and still has another open.
type ledgerReportEnv struct {
	*testEnv
	ws      *models.Workspace
	ana     *models.TenantAccount
	ben     *models.TenantAccount
	benBill *models.Bill
	reports *ReportService
}

func newLedgerReportEnv(t *testing.T) *ledgerReportEnv {
	t.Helper()
	env := newTestEnv(t)
	ctx := context.Background()
	ws := testutil.Workspace(t, env.db, models.PlanStarter, models.WorkspaceTypeHomes)
	ana, _ := testutil.UnitTenant(t, env.db, ws, "Ana Cruz", "1000")
	ben, _ := testutil.UnitTenant(t, env.db, ws, "Ben Lim", "2000")

	anaBill := testutil.Bill(t, env.db, ws, ana, "1000", testDue)
	testutil.Bill(t, env.db, ws, ana, "500", time.Date(2025, time.February, 24, 0, 0, 0, 0, time.UTC))
	benBill := testutil.Bill(t, env.db, ws, ben, "2000", testDue)
	testutil.Bill(t, env.db, ws, ben, "300", testDue)

	_, err := env.bills.MarkOverdue(ctx)
	require.NoError(t, err)

	for _, p := range []PaymentRequest{
		{TenantID: ana.ID, BillID: &anaBill.ID, Amount: testutil.Dec("400"), PaymentMethod: models.PaymentMethodCash},
		{TenantID: ben.ID, BillID: &benBill.ID, Amount: testutil.Dec("2500"), PaymentMethod: models.PaymentMethodGCash},
	} {
		_, err := env.payments.RecordLandlordPayment(ctx, testutil.Context(ws), p)
		require.NoError(t, err)
	}

	return &ledgerReportEnv{
		testEnv: env,
		ws:      ws,
		ana:     ana,
		ben:     ben,
		benBill: benBill,
		reports: NewReportService(env.repos.Bill, env.repos.Payment, env.repos.Ledger, env.repos.Receipt, "PHP"),
	}
}

func TestPaymentsCSV(t *testing.T) {
	env := newLedgerReportEnv(t)

	query := repository.NewListQuery()
	query.Filters["tenant_id"] = strconv.FormatUint(uint64(env.ben.ID), 10)

	buf, err := env.reports.PaymentsCSV(context.Background(), testutil.Context(env.ws), query)
	require.NoError(t, err)

	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, paymentReportHeader, records[0])

	row := records[1]
	assert.Equal(t, "Ben Lim", row[1])
	assert.Equal(t, env.benBill.BillNumber, row[2])
	assert.Equal(t, "2025-03-01", row[3])
	assert.Equal(t, models.PaymentMethodGCash, row[4])
	assert.Equal(t, []string{"2500.00", "2000.00", "500.00", models.PaymentStatusVerified}, row[6:])
}

func TestTenantBalances(t *testing.T) {
	env := newLedgerReportEnv(t)

	balances, err := env.reports.TenantBalances(context.Background(), testutil.Context(env.ws), repository.NewListQuery())
	require.NoError(t, err)
	require.Len(t, balances, 2)

	tests := []struct {
		name        string
		got         TenantBalance
		tenantID    uint
		open        int
		outstanding string
		credit      string
		netDue      string
		overdue     int
	}{
		{"largest debt first", balances[0], env.ana.ID, 2, "1100.00", "0.00", "1100.00", 5},
		{"credit offsets what is owed", balances[1], env.ben.ID, 1, "300.00", "500.00", "0.00", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.tenantID, tt.got.TenantID)
			assert.Equal(t, tt.open, tt.got.OpenBills)
			assert.Equal(t, tt.outstanding, tt.got.Outstanding.StringFixed(2))
			assert.Equal(t, tt.credit, tt.got.Credit.StringFixed(2))
			assert.Equal(t, tt.netDue, tt.got.NetDue().StringFixed(2))
			assert.Equal(t, tt.overdue, tt.got.MaxDaysOverdue)
		})
	}
}

func TestBalancesCSV(t *testing.T) {
	env := newLedgerReportEnv(t)

	buf, err := env.reports.BalancesCSV(context.Background(), testutil.Context(env.ws), repository.NewListQuery())
	require.NoError(t, err)

	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, balanceReportHeader, records[0])
	assert.Equal(t, []string{"Ana Cruz", "2", "1100.00", "0.00", "1100.00", "5"}, records[1])
	assert.Equal(t, []string{"Ben Lim", "1", "300.00", "500.00", "0.00", "0"}, records[2])

	t.Run("tenants cannot export", func(t *testing.T) {
		wc := models.WorkspaceContext{WorkspaceID: env.ws.ID, Role: models.RoleTenant}
		_, err := env.reports.BalancesCSV(context.Background(), wc, repository.NewListQuery())
		assertMarked(t, err, ErrForbidden)

		_, err = env.reports.PaymentsCSV(context.Background(), wc, repository.NewListQuery())
		assertMarked(t, err, ErrForbidden)
	})
}
