package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/testutil"
)

var pngProof = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func TestRecordLandlordPayment_Reconciles(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		wantBalance string
		wantPaid    string
		wantStatus  string
		wantApplied string
		wantExcess  string
	}{
		{"exact amount", "1000", "0.00", "1000.00", models.BillStatusPaid, "1000.00", "0.00"},
		{"partial amount", "400", "600.00", "400.00", models.BillStatusPartial, "400.00", "0.00"},
		{"overpayment is credited", "1500", "0.00", "1000.00", models.BillStatusPaid, "1000.00", "500.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			ws := testutil.Workspace(t, env.db, models.PlanStarter, models.WorkspaceTypeHomes)
			ana, _ := testutil.UnitTenant(t, env.db, ws, "Ana Cruz", "1000")
			bill := testutil.Bill(t, env.db, ws, ana, "1000", testDue)

			payment, err := env.payments.RecordLandlordPayment(ctx, testutil.Context(ws), PaymentRequest{
				TenantID:      ana.ID,
				BillID:        &bill.ID,
				Amount:        testutil.Dec(tt.amount),
				PaymentMethod: models.PaymentMethodGCash,
			})
			require.NoError(t, err)
			assert.Equal(t, models.PaymentStatusVerified, payment.Status)
			assert.Equal(t, tt.wantApplied, payment.AppliedAmount.StringFixed(2))
			assert.Equal(t, tt.wantExcess, payment.ExcessAmount.StringFixed(2))
			require.NotNil(t, payment.VerifiedBy)
			assert.Equal(t, ws.OwnerUserID, *payment.VerifiedBy)

			got, err := env.repos.Bill.FindByID(ctx, ws.ID, bill.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, got.Balance.StringFixed(2))
			assert.Equal(t, tt.wantPaid, got.AmountPaid.StringFixed(2))
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, 2, got.Version)
			assert.True(t, got.Balance.Equal(got.TotalAmount.Sub(got.AmountPaid)))

			credit, err := env.payments.CreditBalance(ctx, testutil.Context(ws), ana.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExcess, credit.StringFixed(2))

			receipt, err := env.payments.Receipt(ctx, testutil.Context(ws), payment.ID)
			require.NoError(t, err)
			assert.Regexp(t, `^REC-20250301-[0-9A-F]{8}$`, receipt.ReceiptNumber)
			assert.Equal(t, tt.amount+".00", receipt.AmountReceived.StringFixed(2))
		})
	}
}

func TestRecordLandlordPayment_WithoutBillIsCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ws := testutil.Workspace(t, env.db, models.PlanStarter, models.WorkspaceTypeHomes)
	ana, _ := testutil.UnitTenant(t, env.db, ws, "Ana Cruz", "1000")

	payment, err := env.payments.RecordLandlordPayment(ctx, testutil.Context(ws), PaymentRequest{
		TenantID: ana.ID, Amount: testutil.Dec("750"), PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.True(t, payment.AppliedAmount.IsZero())
	assert.Equal(t, "750.00", payment.ExcessAmount.StringFixed(2))

	credit, err := env.payments.CreditBalance(ctx, testutil.Context(ws), ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "750.00", credit.StringFixed(2))
}

func TestRecordLandlordPayment_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ws := testutil.Workspace(t, env.db, models.PlanStarter, models.WorkspaceTypeHomes)
	ana, _ := testutil.UnitTenant(t, env.db, ws, "Ana Cruz", "1000")
	ben, _ := testutil.UnitTenant(t, env.db, ws, "Ben Lim", "1000")
	anaBill := testutil.Bill(t, env.db, ws, ana, "1000", testDue)
	paidBill := testutil.Bill(t, env.db, ws, ana, "1000", testDue)
	require.NoError(t, env.db.Model(paidBill).Updates(map[string]any{
		"status": models.BillStatusPaid, "amount_paid": paidBill.TotalAmount, "balance": 0,
	}).Error)

	tests := []struct {
		name string
		req  PaymentRequest
		want error
	}{
		{"zero amount", PaymentRequest{TenantID: ana.ID, BillID: &anaBill.ID, Amount: testutil.Dec("0"), PaymentMethod: models.PaymentMethodCash}, ErrValidation},
		{"negative amount", PaymentRequest{TenantID: ana.ID, BillID: &anaBill.ID, Amount: testutil.Dec("-5"), PaymentMethod: models.PaymentMethodCash}, ErrValidation},
		{"sub-centavo amount", PaymentRequest{TenantID: ana.ID, Amount: testutil.Dec("0.004"), PaymentMethod: models.PaymentMethodCash}, ErrValidation},
		{"unknown method", PaymentRequest{TenantID: ana.ID, BillID: &anaBill.ID, Amount: testutil.Dec("10"), PaymentMethod: "barter"}, ErrValidation},
		{"bill of another tenant", PaymentRequest{TenantID: ben.ID, BillID: &anaBill.ID, Amount: testutil.Dec("10"), PaymentMethod: models.PaymentMethodCash}, ErrValidation},
		{"paid bill", PaymentRequest{TenantID: ana.ID, BillID: &paidBill.ID, Amount: testutil.Dec("10"), PaymentMethod: models.PaymentMethodCash}, ErrInvalidState},
		{"unknown tenant", PaymentRequest{TenantID: 999, Amount: testutil.Dec("10"), PaymentMethod: models.PaymentMethodCash}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.payments.RecordLandlordPayment(ctx, testutil.Context(ws), tt.req)
			assertMarked(t, err, tt.want)
		})
	}

	assert.Zero(t, testutil.Count(t, env.db, &models.Payment{}))
}

func TestPartialPaymentOnOverdueBill(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ws := testutil.Workspace(t, env.db, models.PlanStarter, models.WorkspaceTypeHomes)
	ana, _ := testutil.UnitTenant(t, env.db, ws, "Ana Cruz", "1000")
	bill := testutil.Bill(t, env.db, ws, ana, "1000", testNow.AddDate(0, 0, -5))

	_, err := env.bills.MarkOverdue(ctx)
	require.NoError(t, err)

	_, err = env.payments.RecordLandlordPayment(ctx, testutil.Context(ws), PaymentRequest{
		TenantID: ana.ID, BillID: &bill.ID, Amount: testutil.Dec("300"), PaymentMethod: models.PaymentMethodMaya,
	})
	require.NoError(t, err)

	got, err := env.repos.Bill.FindByID(ctx, ws.ID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPartial, got.Status)
	assert.Equal(t, "700.00", got.Balance.StringFixed(2))

	// the next sweep flags it again
	result, err := env.bills.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Marked)
}

func tenantWithLogin(t *testing.T, env *testEnv, ws *models.Workspace) (*models.TenantAccount, *models.Bill) {
	t.Helper()
	userID := uint(77)
	tenant := testutil.Tenant(t, env.db, ws, "Portal Tenant", &userID)
	bill := testutil.Bill(t, env.db, ws, tenant, "1000", testDue)
	return tenant, bill
}

func TestSubmitAndVerifyTenantPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ws := testutil.Workspace(t, env.db, models.PlanProfessional, models.WorkspaceTypeHomes)
	tenant, bill := tenantWithLogin(t, env, ws)
	ref := "GC-1234"

	payment, err := env.payments.SubmitTenantPayment(ctx, testutil.TenantContext(ws, tenant), PaymentRequest{
		BillID: &bill.ID, Amount: testutil.Dec("400"), PaymentMethod: models.PaymentMethodGCash, ReferenceNumber: &ref,
	}, &Proof{Reader: bytes.NewReader(pngProof), Filename: "proof.png"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, tenant.ID, payment.TenantID)
	require.NotNil(t, payment.ProofPath)
	assert.True(t, strings.HasSuffix(*payment.ProofPath, ".png"))

	// submitted money does not move the bill
	got, err := env.repos.Bill.FindByID(ctx, ws.ID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.Balance.StringFixed(2))
	assert.Equal(t, models.BillStatusPending, got.Status)

	// the landlord was told
	notifications, _, err := env.repos.Notification.FindByUser(ctx, ws.ID, ws.OwnerUserID, repository.NewListQuery())
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationTypePaymentSubmitted, *notifications[0].NotificationType)

	verified, err := env.payments.VerifyPayment(ctx, testutil.Context(ws), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusVerified, verified.Status)
	assert.Equal(t, "400.00", verified.AppliedAmount.StringFixed(2))
	assert.NotNil(t, verified.VerifiedAt)

	got, err = env.repos.Bill.FindByID(ctx, ws.ID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "600.00", got.Balance.StringFixed(2))
	assert.Equal(t, models.BillStatusPartial, got.Status)

	// the tenant has a login, so they were told too
	notifications, _, err = env.repos.Notification.FindByUser(ctx, ws.ID, *tenant.UserID, repository.NewListQuery())
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationTypePaymentVerified, *notifications[0].NotificationType)

	_, err = env.payments.VerifyPayment(ctx, testutil.Context(ws), payment.ID)
	assertMarked(t, err, ErrInvalidState)
}

func TestVerifyPayment_BillClosedMeanwhileIsCredited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ws := testutil.Workspace(t, env.db, models.PlanEmpire, models.WorkspaceTypeHomes)
	tenant, bill := tenantWithLogin(t, env, ws)

	submitted, err := env.payments.SubmitTenantPayment(ctx, testutil.TenantContext(ws, tenant), PaymentRequest{
		BillID: &bill.ID, Amount: testutil.Dec("1000"), PaymentMethod: models.PaymentMethodBankTransfer,
	}, nil)
	require.NoError(t, err)

	_, err = env.payments.RecordLandlordPayment(ctx, testutil.Context(ws), PaymentRequest{
		TenantID: tenant.ID, BillID: &bill.ID, Amount: testutil.Dec("1000"), PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)

	verified, err := env.payments.VerifyPayment(ctx, testutil.Context(ws), submitted.ID)
	require.NoError(t, err)
	assert.True(t, verified.AppliedAmount.IsZero())
	assert.Equal(t, "1000.00", verified.ExcessAmount.StringFixed(2))

	credit, err := env.payments.CreditBalance(ctx, testutil.Context(ws), tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", credit.StringFixed(2))
}

func TestSubmitTenantPayment_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	starter := testutil.Workspace(t, env.db, models.PlanStarter, models.WorkspaceTypeHomes)
	starterTenant, starterBill := tenantWithLogin(t, env, starter)
	pro := testutil.Workspace(t, env.db, models.PlanProfessional, models.WorkspaceTypeHomes)
	proTenant, proBill := tenantWithLogin(t, env, pro)

	_, err := env.payments.SubmitTenantPayment(ctx, testutil.TenantContext(starter, starterTenant), PaymentRequest{
		BillID: &starterBill.ID, Amount: testutil.Dec("100"), PaymentMethod: models.PaymentMethodCash,
	}, nil)
	assertMarked(t, err, ErrPlanFeature)

	_, err = env.payments.SubmitTenantPayment(ctx, testutil.Context(pro), PaymentRequest{
		BillID: &proBill.ID, Amount: testutil.Dec("100"), PaymentMethod: models.PaymentMethodCash,
	}, nil)
	assertMarked(t, err, ErrForbidden)

	_, err = env.payments.SubmitTenantPayment(ctx, testutil.TenantContext(pro, proTenant), PaymentRequest{
		BillID: &proBill.ID, Amount: testutil.Dec("100"), PaymentMethod: models.PaymentMethodCash,
	}, &Proof{Reader: strings.NewReader("<html>not a receipt</html>"), Filename: "proof.png"})
	assertMarked(t, err, ErrValidation)

	assert.Zero(t, testutil.Count(t, env.db, &models.Payment{}))
}

func TestRejectPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ws := testutil.Workspace(t, env.db, models.PlanProfessional, models.WorkspaceTypeHomes)
	tenant, bill := tenantWithLogin(t, env, ws)

	payment, err := env.payments.SubmitTenantPayment(ctx, testutil.TenantContext(ws, tenant), PaymentRequest{
		BillID: &bill.ID, Amount: testutil.Dec("1000"), PaymentMethod: models.PaymentMethodGCash,
	}, nil)
	require.NoError(t, err)

	_, err = env.payments.RejectPayment(ctx, testutil.Context(ws), payment.ID, "   ")
	assertMarked(t, err, ErrValidation)

	rejected, err := env.payments.RejectPayment(ctx, testutil.Context(ws), payment.ID, "reference not found")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "reference not found", *rejected.RejectionReason)

	got, err := env.repos.Bill.FindByID(ctx, ws.ID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.Balance.StringFixed(2))
	assert.Equal(t, 1, got.Version)

	_, err = env.payments.VerifyPayment(ctx, testutil.Context(ws), payment.ID)
	assertMarked(t, err, ErrInvalidState)
}

func TestRefundPayment_RestoresBalanceAndCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ws := testutil.Workspace(t, env.db, models.PlanStarter, models.WorkspaceTypeHomes)
	ana, _ := testutil.UnitTenant(t, env.db, ws, "Ana Cruz", "1000")
	bill := testutil.Bill(t, env.db, ws, ana, "1000", testDue)

	payment, err := env.payments.RecordLandlordPayment(ctx, testutil.Context(ws), PaymentRequest{
		TenantID: ana.ID, BillID: &bill.ID, Amount: testutil.Dec("1500"), PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)

	refunded, err := env.payments.RefundPayment(ctx, testutil.Context(ws), payment.ID, "duplicate deposit")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)

	got, err := env.repos.Bill.FindByID(ctx, ws.ID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPending, got.Status)
	assert.Equal(t, "1000.00", got.Balance.StringFixed(2))
	assert.True(t, got.AmountPaid.IsZero())

	credit, err := env.payments.CreditBalance(ctx, testutil.Context(ws), ana.ID)
	require.NoError(t, err)
	assert.True(t, credit.IsZero())

	_, err = env.payments.RefundPayment(ctx, testutil.Context(ws), payment.ID, "")
	assertMarked(t, err, ErrInvalidState)
}

func TestRefundPayment_LeavesOtherPaymentsApplied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ws := testutil.Workspace(t, env.db, models.PlanStarter, models.WorkspaceTypeHomes)
	ana, _ := testutil.UnitTenant(t, env.db, ws, "Ana Cruz", "1000")
	bill := testutil.Bill(t, env.db, ws, ana, "1000", testDue)

	first, err := env.payments.RecordLandlordPayment(ctx, testutil.Context(ws), PaymentRequest{
		TenantID: ana.ID, BillID: &bill.ID, Amount: testutil.Dec("400"), PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)
	_, err = env.payments.RecordLandlordPayment(ctx, testutil.Context(ws), PaymentRequest{
		TenantID: ana.ID, BillID: &bill.ID, Amount: testutil.Dec("300"), PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)

	_, err = env.payments.RefundPayment(ctx, testutil.Context(ws), first.ID, "")
	require.NoError(t, err)

	got, err := env.repos.Bill.FindByID(ctx, ws.ID, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPartial, got.Status)
	assert.Equal(t, "300.00", got.AmountPaid.StringFixed(2))
	assert.Equal(t, "700.00", got.Balance.StringFixed(2))
}

func TestRefundPayment_PastDueBillReturnsToOverdue(t *testing.T) {
	pastDue := time.Date(2025, time.February, 24, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		payments []string
		refund   int
		wantPaid string
		wantBal  string
	}{
		{"full refund of a paid bill", []string{"1000"}, 0, "0.00", "1000.00"},
		{"refund leaves a partial balance", []string{"400", "600"}, 1, "400.00", "600.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			ws := testutil.Workspace(t, env.db, models.PlanStarter, models.WorkspaceTypeHomes)
			ana, _ := testutil.UnitTenant(t, env.db, ws, "Ana Cruz", "1000")
			bill := testutil.Bill(t, env.db, ws, ana, "1000", pastDue)

			_, err := env.bills.MarkOverdue(ctx)
			require.NoError(t, err)

			var recorded []*models.Payment
			for _, amount := range tt.payments {
				p, err := env.payments.RecordLandlordPayment(ctx, testutil.Context(ws), PaymentRequest{
					TenantID: ana.ID, BillID: &bill.ID, Amount: testutil.Dec(amount), PaymentMethod: models.PaymentMethodCash,
				})
				require.NoError(t, err)
				recorded = append(recorded, p)
			}

			_, err = env.payments.RefundPayment(ctx, testutil.Context(ws), recorded[tt.refund].ID, "")
			require.NoError(t, err)

			got, err := env.repos.Bill.FindByID(ctx, ws.ID, bill.ID)
			require.NoError(t, err)
			assert.Equal(t, models.BillStatusOverdue, got.Status)
			assert.Equal(t, tt.wantPaid, got.AmountPaid.StringFixed(2))
			assert.Equal(t, tt.wantBal, got.Balance.StringFixed(2))
			assert.Equal(t, 5, got.DaysOverdue)
		})
	}
}

func TestApplyToBill_StaleVersionIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ws := testutil.Workspace(t, env.db, models.PlanStarter, models.WorkspaceTypeHomes)
	ana, _ := testutil.UnitTenant(t, env.db, ws, "Ana Cruz", "1000")
	testutil.Bill(t, env.db, ws, ana, "1000", testDue)

	bills, _, err := env.repos.Bill.List(ctx, ws.ID, repository.NewListQuery())
	require.NoError(t, err)
	stale := bills[0]

	// someone else paid in between
	require.NoError(t, env.db.Model(&models.Bill{}).Where("id = ?", stale.ID).
		Update("version", stale.Version+1).Error)

	payment := &models.Payment{Amount: testutil.Dec("100")}
	err = env.payments.applyToBill(ctx, payment, &stale)
	assertMarked(t, err, ErrVersionConflict)
}

func TestWithRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	conflict := newError(ErrVersionConflict, "bill changed")

	t.Run("retries conflicts until success", func(t *testing.T) {
		attempts := 0
		err := env.payments.withRetry(ctx, func() error {
			attempts++
			if attempts < 3 {
				return conflict
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		err := env.payments.withRetry(ctx, func() error {
			attempts++
			return conflict
		})
		assertMarked(t, err, ErrVersionConflict)
		assert.Equal(t, 4, attempts)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		attempts := 0
		boom := errors.New("boom")
		err := env.payments.withRetry(ctx, func() error {
			attempts++
			return boom
		})
		assert.True(t, errors.Is(err, boom))
		assert.Equal(t, 1, attempts)
	})
}
