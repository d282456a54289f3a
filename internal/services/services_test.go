package services

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upahan/upahan-api/internal/database"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/storage"
	"github.com/upahan/upahan-api/internal/testutil"
	"gorm.io/gorm"
)

// testNow is the fixed clock of service tests: 1 March 2025
var testNow = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

// testDue is a due date two weeks after testNow
var testDue = time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	db         *gorm.DB
	repos      *repository.Repositories
	bills      *BillService
	payments   *PaymentService
	utilities  *UtilityService
	workspaces *WorkspaceService
	audit      *AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	repos := repository.NewRepositories(db)
	tx := database.NewTxManager(db)
	clock := func() time.Time { return testNow }

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	notificationSvc := NewNotificationService(repos.Notification, nil)
	auditSvc := NewAuditService(repos.Audit)

	bills := NewBillService(tx, repos.Bill, repos.Tenant, repos.Property, repos.Ledger, notificationSvc, auditSvc, time.UTC)
	bills.now = clock

	payments := NewPaymentService(tx, repos.Payment, repos.Bill, repos.Tenant, repos.Ledger, repos.Receipt,
		notificationSvc, auditSvc, store, time.UTC, 3)
	payments.now = clock
	payments.retryInterval = time.Millisecond

	utilities := NewUtilityService(repos.Utility, repos.Property, time.UTC)
	utilities.now = clock

	return &testEnv{
		db:         db,
		repos:      repos,
		bills:      bills,
		payments:   payments,
		utilities:  utilities,
		workspaces: NewWorkspaceService(repos.Workspace, repos.Tenant, auditSvc, notificationSvc, time.Minute),
		audit:      auditSvc,
	}
}

// assertMarked checks that err carries the mark of a service error
func assertMarked(t *testing.T, err error, sentinel error) {
	t.Helper()
	assert.Truef(t, errors.Is(err, sentinel), "expected %q, got %v", sentinel, err)
}
