package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/upahan/upahan-api/internal/billing"
	"github.com/upahan/upahan-api/internal/database"
	"github.com/upahan/upahan-api/internal/idempotency"
	"github.com/upahan/upahan-api/internal/metrics"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/statemachine"
	"github.com/upahan/upahan-api/pkg/logger"
)

// Skip reasons reported by bill generation
const (
	SkipReasonAlreadyBilled = "already_billed"
)

// FlatRentRequest asks for one month of rent for each tenant
type FlatRentRequest struct {
	TenantIDs     []uint
	BillingPeriod string
	DueDate       time.Time
	Notes         *string
}

// DormRequest asks for bed rent plus shared utilities for boarders of a room
type DormRequest struct {
	RoomID        uint
	TenantIDs     []uint
	Electricity   decimal.Decimal
	Water         decimal.Decimal
	BillingPeriod string
	DueDate       time.Time
	Notes         *string
}

// SkippedTenant is a tenant left out of a generation run
type SkippedTenant struct {
	TenantID uint   `json:"tenant_id"`
	Reason   string `json:"reason"`
	BillID   uint   `json:"bill_id,omitempty"`
}

// GenerationResult lists the bills created and the tenants skipped
type GenerationResult struct {
	Bills   []models.Bill   `json:"bills"`
	Skipped []SkippedTenant `json:"skipped"`
}

// SweepResult summarises an overdue sweep
type SweepResult struct {
	Marked    int   `json:"marked"`
	Conflicts int   `json:"conflicts"`
	Refreshed int64 `json:"refreshed"`
}

type BillService struct {
	tx              *database.TxManager
	repo            repository.BillRepository
	tenantRepo      repository.TenantRepository
	propertyRepo    repository.PropertyRepository
	ledgerRepo      repository.LedgerRepository
	keys            *idempotency.Generator
	notificationSvc *NotificationService
	auditSvc        *AuditService
	loc             *time.Location
	now             func() time.Time
}

func NewBillService(
	tx *database.TxManager,
	repo repository.BillRepository,
	tenantRepo repository.TenantRepository,
	propertyRepo repository.PropertyRepository,
	ledgerRepo repository.LedgerRepository,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	loc *time.Location,
) *BillService {
	return &BillService{
		tx:              tx,
		repo:            repo,
		tenantRepo:      tenantRepo,
		propertyRepo:    propertyRepo,
		ledgerRepo:      ledgerRepo,
		keys:            idempotency.NewGenerator(),
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		loc:             loc,
		now:             time.Now,
	}
}

func (s *BillService) today() time.Time {
	return billing.CalendarDay(s.now(), s.loc)
}

// validateRun checks the fields shared by both generation modes and returns the
// trimmed period and the due date as a calendar day
func (s *BillService) validateRun(tenantIDs []uint, period string, due time.Time) ([]uint, string, time.Time, error) {
	ids := lo.Uniq(lo.Filter(tenantIDs, func(id uint, _ int) bool { return id != 0 }))
	if len(ids) == 0 {
		return nil, "", time.Time{}, newError(ErrValidation, "select at least one tenant")
	}
	period = strings.TrimSpace(period)
	if period == "" {
		return nil, "", time.Time{}, newError(ErrValidation, "billing period is required")
	}
	if due.IsZero() {
		return nil, "", time.Time{}, newError(ErrValidation, "due date is required")
	}
	day := billing.CalendarDay(due, time.UTC)
	if day.Before(s.today()) {
		return nil, "", time.Time{}, newError(ErrValidation, "due date cannot be in the past")
	}
	return ids, period, day, nil
}

// GenerateFlatRent issues one rent bill per tenant from their active binding. The whole
// batch is written in a single transaction.
func (s *BillService) GenerateFlatRent(ctx context.Context, wc models.WorkspaceContext, req FlatRentRequest) (*GenerationResult, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can generate bills")
	}
	ids, period, due, err := s.validateRun(req.TenantIDs, req.BillingPeriod, req.DueDate)
	if err != nil {
		return nil, err
	}

	var result *GenerationResult
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.loadTenants(ctx, wc.WorkspaceID, ids); err != nil {
			return err
		}

		existing, err := s.existingBills(ctx, wc.WorkspaceID, ids, period)
		if err != nil {
			return err
		}
		toBill := lo.Filter(ids, func(id uint, _ int) bool {
			_, billed := existing[id]
			return !billed
		})

		bindings, err := s.tenantRepo.FindActiveBindings(ctx, wc.WorkspaceID, toBill)
		if err != nil {
			return err
		}
		// most recent first, so the first one seen per tenant wins
		current := make(map[uint]models.TenantBinding, len(bindings))
		for _, b := range bindings {
			if _, ok := current[b.TenantID]; !ok {
				current[b.TenantID] = b
			}
		}

		charges := make([]billing.Charge, 0, len(toBill))
		for _, tenantID := range toBill {
			binding, ok := current[tenantID]
			if !ok {
				return newError(ErrPrecondition, "tenant %d has no active rental binding", tenantID)
			}
			charge, err := billing.FlatRentCharge(tenantID, binding.ID, binding.MonthlyRent)
			if err != nil {
				return newError(ErrPrecondition, "tenant %d has no positive monthly rent on binding %d", tenantID, binding.ID)
			}
			charges = append(charges, charge)
		}

		result, err = s.persist(ctx, wc, ids, existing, charges, period, due, req.Notes)
		return err
	})
	if err != nil {
		return nil, translate(err, "bill")
	}

	s.afterGenerate(ctx, wc, "flat_rent", result)
	return result, nil
}

// GenerateDorm issues bed rent plus an even share of the room's electricity and water to
// each selected boarder. The utilities are split across the selected boarders only.
func (s *BillService) GenerateDorm(ctx context.Context, wc models.WorkspaceContext, req DormRequest) (*GenerationResult, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can generate bills")
	}
	if !wc.AllowsDormBilling() {
		return nil, newError(ErrPlanFeature, "dormitory billing requires the empire plan or a dormitory workspace")
	}
	if req.Electricity.IsNegative() || req.Water.IsNegative() {
		return nil, newError(ErrValidation, "utility totals must not be negative")
	}
	ids, period, due, err := s.validateRun(req.TenantIDs, req.BillingPeriod, req.DueDate)
	if err != nil {
		return nil, err
	}

	var result *GenerationResult
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		room, err := s.propertyRepo.FindRoomByID(ctx, wc.WorkspaceID, req.RoomID)
		if err != nil {
			return translate(err, "room")
		}

		boarders, err := s.boarders(ctx, wc.WorkspaceID, room.ID)
		if err != nil {
			return err
		}
		byTenant := lo.KeyBy(boarders, func(b models.Boarder) uint { return b.TenantID })

		occupants := make([]billing.DormOccupant, 0, len(ids))
		for _, tenantID := range ids {
			b, ok := byTenant[tenantID]
			if !ok {
				return newError(ErrPrecondition, "tenant %d does not hold an active bed in room %s", tenantID, room.RoomNumber)
			}
			if !billing.RoundMoney(b.Rent).IsPositive() {
				return newError(ErrPrecondition, "tenant %d has no positive bed rent on binding %d", tenantID, b.BindingID)
			}
			occupants = append(occupants, billing.DormOccupant{
				TenantID:  b.TenantID,
				BindingID: b.BindingID,
				BedNumber: b.BedNumber,
				Rent:      b.Rent,
			})
		}

		// the split is computed over everyone selected, before already billed boarders are skipped
		charges, err := billing.DormCharges(occupants, req.Electricity, req.Water)
		if err != nil {
			return translate(err, "bill")
		}

		existing, err := s.existingBills(ctx, wc.WorkspaceID, ids, period)
		if err != nil {
			return err
		}
		charges = lo.Filter(charges, func(c billing.Charge, _ int) bool {
			_, billed := existing[c.TenantID]
			return !billed
		})

		result, err = s.persist(ctx, wc, ids, existing, charges, period, due, req.Notes)
		return err
	})
	if err != nil {
		return nil, translate(err, "bill")
	}

	s.afterGenerate(ctx, wc, "dorm", result)
	return result, nil
}

// ListBoarders returns the tenants holding an active bed in a room
func (s *BillService) ListBoarders(ctx context.Context, wc models.WorkspaceContext, roomID uint) ([]models.Boarder, error) {
	room, err := s.propertyRepo.FindRoomByID(ctx, wc.WorkspaceID, roomID)
	if err != nil {
		return nil, translate(err, "room")
	}
	return s.boarders(ctx, wc.WorkspaceID, room.ID)
}

func (s *BillService) boarders(ctx context.Context, workspaceID, roomID uint) ([]models.Boarder, error) {
	bindings, err := s.tenantRepo.FindActiveBedBindingsInRoom(ctx, workspaceID, roomID)
	if err != nil {
		return nil, err
	}

	boarders := make([]models.Boarder, 0, len(bindings))
	seen := make(map[uint]bool, len(bindings))
	for _, b := range bindings {
		if seen[b.TenantID] || b.Bed == nil {
			continue
		}
		seen[b.TenantID] = true

		rent := b.MonthlyRent
		if rent.IsZero() && b.Bed.MonthlyRate != nil {
			rent = *b.Bed.MonthlyRate
		}
		boarders = append(boarders, models.Boarder{
			TenantID:  b.TenantID,
			FullName:  b.Tenant.FullName,
			BedID:     b.Bed.ID,
			BedNumber: b.Bed.BedNumber,
			BindingID: b.ID,
			Rent:      rent,
		})
	}
	return boarders, nil
}

func (s *BillService) loadTenants(ctx context.Context, workspaceID uint, ids []uint) (map[uint]models.TenantAccount, error) {
	tenants, err := s.tenantRepo.FindByIDs(ctx, workspaceID, ids)
	if err != nil {
		return nil, err
	}
	byID := lo.KeyBy(tenants, func(t models.TenantAccount) uint { return t.ID })
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, newError(ErrNotFound, "tenant %d not found", id)
		}
	}
	return byID, nil
}

// existingBills returns the bills already issued to the tenants for the period, by tenant
func (s *BillService) existingBills(ctx context.Context, workspaceID uint, tenantIDs []uint, period string) (map[uint]models.Bill, error) {
	keys := lo.Map(tenantIDs, func(id uint, _ int) string { return s.keys.TenantBillKey(workspaceID, id, period) })
	bills, err := s.repo.FindByIdempotencyKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	return lo.KeyBy(bills, func(b models.Bill) uint { return b.TenantID }), nil
}

// persist writes one bill and one charge ledger entry per charge, in request order
func (s *BillService) persist(
	ctx context.Context,
	wc models.WorkspaceContext,
	ids []uint,
	existing map[uint]models.Bill,
	charges []billing.Charge,
	period string,
	due time.Time,
	notes *string,
) (*GenerationResult, error) {
	result := &GenerationResult{Bills: []models.Bill{}, Skipped: []SkippedTenant{}}
	for _, id := range ids {
		if bill, ok := existing[id]; ok {
			result.Skipped = append(result.Skipped, SkippedTenant{TenantID: id, Reason: SkipReasonAlreadyBilled, BillID: bill.ID})
		}
	}

	issued := s.today()
	for _, charge := range charges {
		if err := charge.Verify(); err != nil {
			return nil, err
		}

		key := s.keys.TenantBillKey(wc.WorkspaceID, charge.TenantID, period)
		bindingID := charge.BindingID
		bill := models.Bill{
			WorkspaceID:    wc.WorkspaceID,
			TenantID:       charge.TenantID,
			BindingID:      &bindingID,
			BillNumber:     newDocumentNumber("BILL", issued),
			BillingPeriod:  period,
			IdempotencyKey: &key,
			IssueDate:      issued,
			DueDate:        due,
			TotalAmount:    charge.Total,
			AmountPaid:     decimal.Zero,
			Balance:        charge.Total,
			Status:         models.BillStatusPending,
			Notes:          notes,
			LineItems:      charge.LineItems,
		}
		if err := s.repo.Create(ctx, &bill); err != nil {
			return nil, translate(err, "bill for this tenant and period")
		}

		entry := &models.TenantLedgerEntry{
			WorkspaceID: wc.WorkspaceID,
			TenantID:    bill.TenantID,
			BillID:      &bill.ID,
			Amount:      bill.TotalAmount,
			EntryType:   models.LedgerEntryTypeCharge,
			Description: fmt.Sprintf("Bill %s (%s)", bill.BillNumber, period),
			EntryDate:   s.now(),
		}
		if err := s.ledgerRepo.Create(ctx, entry); err != nil {
			return nil, err
		}
		result.Bills = append(result.Bills, bill)
	}
	return result, nil
}

func (s *BillService) afterGenerate(ctx context.Context, wc models.WorkspaceContext, kind string, result *GenerationResult) {
	metrics.BillsGenerated.WithLabelValues(kind).Add(float64(len(result.Bills)))
	metrics.BillsSkipped.WithLabelValues(kind).Add(float64(len(result.Skipped)))
	logger.FromContext(ctx).Info("[Bills] Generated bills", "kind", kind, "workspace_id", wc.WorkspaceID,
		"created", len(result.Bills), "skipped", len(result.Skipped))

	if len(result.Bills) == 0 {
		return
	}
	numbers := lo.Map(result.Bills, func(b models.Bill, _ int) string { return b.BillNumber })
	s.auditSvc.Log(ctx, wc, "GENERATE", "Bill", result.Bills[0].ID,
		fmt.Sprintf("%s bills for %s: %s", kind, result.Bills[0].BillingPeriod, strings.Join(numbers, ", ")))

	tenantIDs := lo.Map(result.Bills, func(b models.Bill, _ int) uint { return b.TenantID })
	tenants, err := s.tenantRepo.FindByIDs(ctx, wc.WorkspaceID, tenantIDs)
	if err != nil {
		logger.FromContext(ctx).Warn("[Bills] Could not load tenants to notify", "error", err)
		return
	}
	byID := lo.KeyBy(tenants, func(t models.TenantAccount) uint { return t.ID })
	for _, bill := range result.Bills {
		tenant := byID[bill.TenantID]
		s.notificationSvc.NotifyTenant(&tenant,
			"New bill",
			fmt.Sprintf("Bill %s for %s is due on %s: %s", bill.BillNumber, bill.BillingPeriod,
				bill.DueDate.Format("2006-01-02"), bill.TotalAmount.StringFixed(2)),
			models.NotificationTypeBillIssued)
	}
}

// FindByID returns a bill of the workspace. Tenants only see their own bills.
func (s *BillService) FindByID(ctx context.Context, wc models.WorkspaceContext, id uint) (*models.Bill, error) {
	bill, err := s.repo.FindByID(ctx, wc.WorkspaceID, id)
	if err != nil {
		return nil, translate(err, "bill")
	}
	if wc.IsTenant() && (wc.TenantID == nil || bill.TenantID != *wc.TenantID) {
		return nil, newError(ErrNotFound, "bill not found")
	}
	return bill, nil
}

func (s *BillService) List(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) ([]models.Bill, int64, error) {
	if err := scopeToTenant(wc, query); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, wc.WorkspaceID, query)
}

// Cancel voids an unpaid bill and releases its period so the tenant can be billed again
func (s *BillService) Cancel(ctx context.Context, wc models.WorkspaceContext, id uint, reason string) (*models.Bill, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can cancel bills")
	}
	reason = strings.TrimSpace(reason)

	var bill *models.Bill
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		bill, err = s.repo.FindByID(ctx, wc.WorkspaceID, id)
		if err != nil {
			return translate(err, "bill")
		}
		if err := statemachine.NewBillFSM(bill).Cancel(ctx); err != nil {
			return translate(err, "bill")
		}

		bill.IdempotencyKey = nil
		if reason != "" {
			note := "Cancelled: " + reason
			if bill.Notes != nil && *bill.Notes != "" {
				note = *bill.Notes + "\n" + note
			}
			bill.Notes = &note
		}
		if err := s.repo.UpdateVersioned(ctx, bill); err != nil {
			return translate(err, "bill")
		}

		return s.ledgerRepo.Create(ctx, &models.TenantLedgerEntry{
			WorkspaceID: wc.WorkspaceID,
			TenantID:    bill.TenantID,
			BillID:      &bill.ID,
			Amount:      bill.TotalAmount.Neg(),
			EntryType:   models.LedgerEntryTypeReversal,
			Description: fmt.Sprintf("Bill %s cancelled", bill.BillNumber),
			EntryDate:   s.now(),
		})
	})
	if err != nil {
		return nil, translate(err, "bill")
	}

	s.auditSvc.Log(ctx, wc, "CANCEL", "Bill", bill.ID, fmt.Sprintf("Bill %s cancelled. %s", bill.BillNumber, reason))
	s.notificationSvc.NotifyTenant(&bill.Tenant,
		"Bill cancelled",
		fmt.Sprintf("Bill %s for %s has been cancelled", bill.BillNumber, bill.BillingPeriod),
		models.NotificationTypeBillCancelled)
	return bill, nil
}

// MarkOverdue flags open bills past their due date in every workspace and refreshes the
// overdue day count. A bill updated concurrently is left for the next sweep.
func (s *BillService) MarkOverdue(ctx context.Context) (*SweepResult, error) {
	today := s.today()
	result := &SweepResult{}

	bills, err := s.repo.FindOverdueCandidates(ctx, today)
	if err != nil {
		return nil, err
	}

	for i := range bills {
		bill := &bills[i]
		if !bill.MayMarkOverdue(today) {
			continue
		}
		if err := statemachine.NewBillFSM(bill).MarkOverdue(ctx); err != nil {
			logger.FromContext(ctx).Warn("[Bills] Cannot mark bill overdue", "bill_id", bill.ID, "status", bill.Status, "error", err)
			continue
		}
		bill.DaysOverdue = bill.OverdueDaysAt(today)

		if err := s.repo.UpdateVersioned(ctx, bill); err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				metrics.VersionConflicts.Inc()
				result.Conflicts++
				continue
			}
			return result, err
		}
		result.Marked++
		metrics.BillsMarkedOverdue.Inc()

		s.notificationSvc.NotifyTenant(&bill.Tenant,
			"Bill overdue",
			fmt.Sprintf("Bill %s was due on %s. Outstanding balance: %s", bill.BillNumber,
				bill.DueDate.Format("2006-01-02"), bill.Balance.StringFixed(2)),
			models.NotificationTypeBillOverdue)
	}

	refreshed, err := s.repo.RefreshDaysOverdue(ctx, today)
	if err != nil {
		return result, err
	}
	result.Refreshed = refreshed

	logger.FromContext(ctx).Info("[Bills] Overdue sweep finished", "marked", result.Marked,
		"conflicts", result.Conflicts, "refreshed", result.Refreshed)
	return result, nil
}

// newDocumentNumber builds numbers such as BILL-20250315-1A2B3C4D
func newDocumentNumber(prefix string, day time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, day.Format("20060102"), suffix)
}
