package services

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/upahan/upahan-api/internal/billing"
	"github.com/upahan/upahan-api/internal/database"
	"github.com/upahan/upahan-api/internal/metrics"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"github.com/upahan/upahan-api/internal/statemachine"
	"github.com/upahan/upahan-api/internal/storage"
	"github.com/upahan/upahan-api/pkg/logger"
)

// PaymentRequest is money recorded by the landlord or submitted by a tenant
type PaymentRequest struct {
	TenantID        uint
	BillID          *uint
	Amount          decimal.Decimal
	PaymentMethod   string
	ReferenceNumber *string
	PaymentDate     time.Time
	Notes           *string
}

// Proof is an uploaded payment proof
type Proof struct {
	Reader   io.Reader
	Filename string
}

type PaymentService struct {
	tx              *database.TxManager
	repo            repository.PaymentRepository
	billRepo        repository.BillRepository
	tenantRepo      repository.TenantRepository
	ledgerRepo      repository.LedgerRepository
	receiptRepo     repository.ReceiptRepository
	notificationSvc *NotificationService
	auditSvc        *AuditService
	storage         *storage.LocalStorage
	loc             *time.Location
	now             func() time.Time
	maxRetries      int
	retryInterval   time.Duration
}

func NewPaymentService(
	tx *database.TxManager,
	repo repository.PaymentRepository,
	billRepo repository.BillRepository,
	tenantRepo repository.TenantRepository,
	ledgerRepo repository.LedgerRepository,
	receiptRepo repository.ReceiptRepository,
	notificationSvc *NotificationService,
	auditSvc *AuditService,
	storage *storage.LocalStorage,
	loc *time.Location,
	maxRetries int,
) *PaymentService {
	return &PaymentService{
		tx:              tx,
		repo:            repo,
		billRepo:        billRepo,
		tenantRepo:      tenantRepo,
		ledgerRepo:      ledgerRepo,
		receiptRepo:     receiptRepo,
		notificationSvc: notificationSvc,
		auditSvc:        auditSvc,
		storage:         storage,
		loc:             loc,
		now:             time.Now,
		maxRetries:      maxRetries,
		retryInterval:   20 * time.Millisecond,
	}
}

func (s *PaymentService) FindByID(ctx context.Context, wc models.WorkspaceContext, id uint) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, wc.WorkspaceID, id)
	if err != nil {
		return nil, translate(err, "payment")
	}
	if wc.IsTenant() && (wc.TenantID == nil || payment.TenantID != *wc.TenantID) {
		return nil, newError(ErrNotFound, "payment not found")
	}
	return payment, nil
}

func (s *PaymentService) List(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) ([]models.Payment, int64, error) {
	if err := scopeToTenant(wc, query); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, wc.WorkspaceID, query)
}

// Receipt returns the receipt issued for a verified payment
func (s *PaymentService) Receipt(ctx context.Context, wc models.WorkspaceContext, paymentID uint) (*models.Receipt, error) {
	if _, err := s.FindByID(ctx, wc, paymentID); err != nil {
		return nil, err
	}
	receipt, err := s.receiptRepo.FindByPaymentID(ctx, wc.WorkspaceID, paymentID)
	if err != nil {
		return nil, translate(err, "receipt")
	}
	return receipt, nil
}

// CreditBalance returns the overpayments held for a tenant
func (s *PaymentService) CreditBalance(ctx context.Context, wc models.WorkspaceContext, tenantID uint) (decimal.Decimal, error) {
	if wc.IsTenant() && (wc.TenantID == nil || *wc.TenantID != tenantID) {
		return decimal.Zero, newError(ErrNotFound, "tenant not found")
	}
	return s.ledgerRepo.CreditBalance(ctx, wc.WorkspaceID, tenantID)
}

func (s *PaymentService) validate(req *PaymentRequest) error {
	req.Amount = billing.RoundMoney(req.Amount)
	if !req.Amount.IsPositive() {
		return newError(ErrValidation, "amount must be greater than zero")
	}
	if !slices.Contains(models.PaymentMethods, req.PaymentMethod) {
		return newError(ErrValidation, "payment method must be one of %s", strings.Join(models.PaymentMethods, ", "))
	}
	if req.PaymentDate.IsZero() {
		req.PaymentDate = billing.CalendarDay(s.now(), s.loc)
	} else {
		req.PaymentDate = billing.CalendarDay(req.PaymentDate, time.UTC)
	}
	return nil
}

// payableBill loads a bill the tenant may pay against
func (s *PaymentService) payableBill(ctx context.Context, workspaceID, tenantID, billID uint) (*models.Bill, error) {
	bill, err := s.billRepo.FindByID(ctx, workspaceID, billID)
	if err != nil {
		return nil, translate(err, "bill")
	}
	if bill.TenantID != tenantID {
		return nil, newError(ErrValidation, "bill %s does not belong to this tenant", bill.BillNumber)
	}
	if !bill.MayApplyPayment() {
		return nil, newError(ErrInvalidState, "bill %s is %s and does not accept payments", bill.BillNumber, bill.Status)
	}
	return bill, nil
}

// RecordLandlordPayment stores money the landlord received. It is verified on entry and
// applied to the bill in the same transaction.
func (s *PaymentService) RecordLandlordPayment(ctx context.Context, wc models.WorkspaceContext, req PaymentRequest) (*models.Payment, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can record payments")
	}
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	var payment *models.Payment
	var bill *models.Bill
	err := s.withRetry(ctx, func() error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			tenant, err := s.tenantRepo.FindByID(ctx, wc.WorkspaceID, req.TenantID)
			if err != nil {
				return translate(err, "tenant")
			}

			bill = nil
			if req.BillID != nil {
				if bill, err = s.payableBill(ctx, wc.WorkspaceID, tenant.ID, *req.BillID); err != nil {
					return err
				}
			}

			now := s.now()
			payment = &models.Payment{
				WorkspaceID:     wc.WorkspaceID,
				TenantID:        tenant.ID,
				BillID:          req.BillID,
				PaymentNumber:   newDocumentNumber("PAY", req.PaymentDate),
				Amount:          req.Amount,
				PaymentMethod:   req.PaymentMethod,
				ReferenceNumber: req.ReferenceNumber,
				Status:          models.PaymentStatusVerified,
				VerifiedBy:      &wc.UserID,
				VerifiedAt:      &now,
				PaymentDate:     req.PaymentDate,
				Notes:           req.Notes,
			}
			if err := s.applyToBill(ctx, payment, bill); err != nil {
				return err
			}
			if err := s.repo.Create(ctx, payment); err != nil {
				return translate(err, "payment")
			}
			return s.settle(ctx, wc, payment, bill)
		})
	})
	if err != nil {
		return nil, translate(err, "payment")
	}

	metrics.PaymentsApplied.WithLabelValues("landlord").Inc()
	s.auditSvc.Log(ctx, wc, "RECORD", "Payment", payment.ID, s.describe(payment, bill))
	s.notifyVerified(ctx, payment, bill)
	return payment, nil
}

// SubmitTenantPayment stores a payment made through the tenant portal. It waits for the
// landlord to verify it and does not touch the bill yet.
func (s *PaymentService) SubmitTenantPayment(ctx context.Context, wc models.WorkspaceContext, req PaymentRequest, proof *Proof) (*models.Payment, error) {
	if !wc.IsTenant() || wc.TenantID == nil {
		return nil, newError(ErrForbidden, "only tenants can submit payments")
	}
	if !wc.Features().TenantPortal {
		return nil, newError(ErrPlanFeature, "the tenant portal is not included in this workspace's plan")
	}
	req.TenantID = *wc.TenantID
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	if req.BillID != nil {
		if _, err := s.payableBill(ctx, wc.WorkspaceID, req.TenantID, *req.BillID); err != nil {
			return nil, err
		}
	}

	var proofPath *string
	if proof != nil && proof.Reader != nil {
		path, err := s.storage.SaveProof(proof.Reader, fmt.Sprintf("proofs/%d", wc.WorkspaceID))
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedFileType) || errors.Is(err, storage.ErrFileTooLarge) {
				return nil, newError(ErrValidation, "%s", err.Error())
			}
			return nil, err
		}
		proofPath = &path
	}

	payment := &models.Payment{
		WorkspaceID:     wc.WorkspaceID,
		TenantID:        req.TenantID,
		BillID:          req.BillID,
		PaymentNumber:   newDocumentNumber("PAY", req.PaymentDate),
		Amount:          req.Amount,
		AppliedAmount:   decimal.Zero,
		ExcessAmount:    decimal.Zero,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		ProofPath:       proofPath,
		Status:          models.PaymentStatusPending,
		PaymentDate:     req.PaymentDate,
		Notes:           req.Notes,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		if proofPath != nil {
			_ = s.storage.Delete(*proofPath)
		}
		return nil, translate(err, "payment")
	}

	s.notificationSvc.NotifyLandlord(wc,
		"Payment submitted",
		fmt.Sprintf("Payment %s of %s is waiting for verification", payment.PaymentNumber, payment.Amount.StringFixed(2)),
		models.NotificationTypePaymentSubmitted)
	return payment, nil
}

// VerifyPayment accepts a submitted payment and applies it to its bill. A bill that
// stopped accepting money in the meantime is left alone and the whole amount is credited.
func (s *PaymentService) VerifyPayment(ctx context.Context, wc models.WorkspaceContext, id uint) (*models.Payment, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can verify payments")
	}

	var payment *models.Payment
	var bill *models.Bill
	err := s.withRetry(ctx, func() error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			payment, err = s.repo.FindByID(ctx, wc.WorkspaceID, id)
			if err != nil {
				return translate(err, "payment")
			}
			if err := statemachine.NewPaymentFSM(payment).Verify(ctx); err != nil {
				return translate(err, "payment")
			}

			bill = nil
			if payment.BillID != nil {
				bill, err = s.billRepo.FindByID(ctx, wc.WorkspaceID, *payment.BillID)
				if err != nil {
					return translate(err, "bill")
				}
				if !bill.MayApplyPayment() {
					logger.FromContext(ctx).Warn("[Payments] Bill no longer accepts payments, crediting tenant",
						"payment_id", payment.ID, "bill_id", bill.ID, "bill_status", bill.Status)
					bill = nil
				}
			}

			now := s.now()
			payment.VerifiedBy = &wc.UserID
			payment.VerifiedAt = &now
			if err := s.applyToBill(ctx, payment, bill); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, payment); err != nil {
				return err
			}
			return s.settle(ctx, wc, payment, bill)
		})
	})
	if err != nil {
		return nil, translate(err, "payment")
	}

	metrics.PaymentsApplied.WithLabelValues("verification").Inc()
	s.auditSvc.Log(ctx, wc, "VERIFY", "Payment", payment.ID, s.describe(payment, bill))
	s.notifyVerified(ctx, payment, bill)
	return payment, nil
}

// RejectPayment refuses a submitted payment. The bill is not touched.
func (s *PaymentService) RejectPayment(ctx context.Context, wc models.WorkspaceContext, id uint, reason string) (*models.Payment, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can reject payments")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, newError(ErrValidation, "a rejection reason is required")
	}

	payment, err := s.repo.FindByID(ctx, wc.WorkspaceID, id)
	if err != nil {
		return nil, translate(err, "payment")
	}
	if err := statemachine.NewPaymentFSM(payment).Reject(ctx); err != nil {
		return nil, translate(err, "payment")
	}
	payment.RejectionReason = &reason
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, wc, "REJECT", "Payment", payment.ID, fmt.Sprintf("Payment %s rejected: %s", payment.PaymentNumber, reason))
	s.notificationSvc.NotifyTenant(&payment.Tenant,
		"Payment rejected",
		fmt.Sprintf("Payment %s was rejected: %s", payment.PaymentNumber, reason),
		models.NotificationTypePaymentRejected)
	return payment, nil
}

// RefundPayment gives a verified payment back: the applied amount is taken off the bill
// and any credit it produced is reversed.
func (s *PaymentService) RefundPayment(ctx context.Context, wc models.WorkspaceContext, id uint, reason string) (*models.Payment, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can refund payments")
	}
	reason = strings.TrimSpace(reason)

	var payment *models.Payment
	err := s.withRetry(ctx, func() error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			var err error
			payment, err = s.repo.FindByID(ctx, wc.WorkspaceID, id)
			if err != nil {
				return translate(err, "payment")
			}
			if err := statemachine.NewPaymentFSM(payment).Refund(ctx); err != nil {
				return translate(err, "payment")
			}

			now := s.now()
			if payment.BillID != nil && payment.AppliedAmount.IsPositive() {
				bill, err := s.billRepo.FindByID(ctx, wc.WorkspaceID, *payment.BillID)
				if err != nil {
					return translate(err, "bill")
				}
				rev, err := billing.ReversePayment(bill.AmountPaid, bill.Balance, payment.AppliedAmount)
				if err != nil {
					return newError(ErrInvalidState, "bill %s cannot take back %s", bill.BillNumber, payment.AppliedAmount.StringFixed(2))
				}
				if err := statemachine.NewBillFSM(bill).ReversePayment(ctx, rev.NewStatus); err != nil {
					return translate(err, "bill")
				}
				bill.AmountPaid = rev.NewAmountPaid
				bill.Balance = rev.NewBalance
				// a reopened bill past its due date goes straight back to overdue
				today := billing.CalendarDay(now, s.loc)
				if bill.MayMarkOverdue(today) {
					if err := statemachine.NewBillFSM(bill).MarkOverdue(ctx); err != nil {
						return translate(err, "bill")
					}
					bill.DaysOverdue = bill.OverdueDaysAt(today)
				}
				if err := s.billRepo.UpdateVersioned(ctx, bill); err != nil {
					return translate(err, "bill")
				}

				if err := s.ledgerRepo.Create(ctx, &models.TenantLedgerEntry{
					WorkspaceID: wc.WorkspaceID,
					TenantID:    payment.TenantID,
					BillID:      &bill.ID,
					PaymentID:   &payment.ID,
					Amount:      payment.AppliedAmount,
					EntryType:   models.LedgerEntryTypeReversal,
					Description: fmt.Sprintf("Refund of %s on bill %s", payment.PaymentNumber, bill.BillNumber),
					EntryDate:   now,
				}); err != nil {
					return err
				}
			}

			if payment.ExcessAmount.IsPositive() {
				if err := s.ledgerRepo.Create(ctx, &models.TenantLedgerEntry{
					WorkspaceID: wc.WorkspaceID,
					TenantID:    payment.TenantID,
					PaymentID:   &payment.ID,
					Amount:      payment.ExcessAmount.Neg(),
					EntryType:   models.LedgerEntryTypeReversal,
					Description: fmt.Sprintf("Credit from %s refunded", payment.PaymentNumber),
					EntryDate:   now,
				}); err != nil {
					return err
				}
			}

			if reason != "" {
				note := "Refunded: " + reason
				if payment.Notes != nil && *payment.Notes != "" {
					note = *payment.Notes + "\n" + note
				}
				payment.Notes = &note
			}
			return s.repo.Update(ctx, payment)
		})
	})
	if err != nil {
		return nil, translate(err, "payment")
	}

	s.auditSvc.Log(ctx, wc, "REFUND", "Payment", payment.ID, fmt.Sprintf("Payment %s of %s refunded. %s",
		payment.PaymentNumber, payment.Amount.StringFixed(2), reason))
	s.notificationSvc.NotifyTenant(&payment.Tenant,
		"Payment refunded",
		fmt.Sprintf("Payment %s of %s has been refunded", payment.PaymentNumber, payment.Amount.StringFixed(2)),
		models.NotificationTypePaymentRefunded)
	return payment, nil
}

// applyToBill reconciles the payment against the bill with an optimistic lock on the
// bill row. Without a bill the whole amount is excess.
func (s *PaymentService) applyToBill(ctx context.Context, payment *models.Payment, bill *models.Bill) error {
	if bill == nil {
		payment.AppliedAmount = decimal.Zero
		payment.ExcessAmount = payment.Amount
		return nil
	}

	app, err := billing.ApplyPayment(bill.AmountPaid, bill.Balance, payment.Amount)
	if err != nil {
		return translate(err, "payment")
	}
	if err := statemachine.NewBillFSM(bill).ApplyPayment(ctx, app.NewStatus); err != nil {
		return translate(err, "bill")
	}
	bill.AmountPaid = app.NewAmountPaid
	bill.Balance = app.NewBalance
	if bill.Status == models.BillStatusPaid {
		bill.DaysOverdue = 0
	}
	if err := s.billRepo.UpdateVersioned(ctx, bill); err != nil {
		return translate(err, "bill")
	}

	payment.AppliedAmount = app.Applied
	payment.ExcessAmount = app.Excess
	payment.Bill = bill
	return nil
}

// settle writes the ledger movements and the receipt of a verified payment
func (s *PaymentService) settle(ctx context.Context, wc models.WorkspaceContext, payment *models.Payment, bill *models.Bill) error {
	now := s.now()

	if bill != nil && payment.AppliedAmount.IsPositive() {
		if err := s.ledgerRepo.Create(ctx, &models.TenantLedgerEntry{
			WorkspaceID: payment.WorkspaceID,
			TenantID:    payment.TenantID,
			BillID:      &bill.ID,
			PaymentID:   &payment.ID,
			Amount:      payment.AppliedAmount.Neg(),
			EntryType:   models.LedgerEntryTypePayment,
			Description: fmt.Sprintf("Payment %s on bill %s", payment.PaymentNumber, bill.BillNumber),
			EntryDate:   now,
		}); err != nil {
			return err
		}
	}

	if payment.ExcessAmount.IsPositive() {
		if err := s.ledgerRepo.Create(ctx, &models.TenantLedgerEntry{
			WorkspaceID: payment.WorkspaceID,
			TenantID:    payment.TenantID,
			PaymentID:   &payment.ID,
			Amount:      payment.ExcessAmount,
			EntryType:   models.LedgerEntryTypeCredit,
			Description: fmt.Sprintf("Credit from payment %s", payment.PaymentNumber),
			EntryDate:   now,
		}); err != nil {
			return err
		}
	}

	receipt := &models.Receipt{
		WorkspaceID:    payment.WorkspaceID,
		PaymentID:      payment.ID,
		TenantID:       payment.TenantID,
		ReceiptNumber:  newDocumentNumber("REC", billing.CalendarDay(now, s.loc)),
		AmountReceived: payment.Amount,
		ReceiptDate:    billing.CalendarDay(now, s.loc),
		IssuedBy:       wc.UserID,
	}
	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		return translate(err, "receipt")
	}
	return nil
}

// withRetry reruns op while it loses optimistic lock races, up to maxRetries more times
func (s *PaymentService) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInterval
	policy.MaxInterval = 20 * s.retryInterval

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrVersionConflict) {
			metrics.VersionConflicts.Inc()
			logger.FromContext(ctx).Warn("[Payments] Bill changed concurrently, retrying", "attempt", attempt)
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.maxRetries)), ctx))
}

func (s *PaymentService) describe(payment *models.Payment, bill *models.Bill) string {
	desc := fmt.Sprintf("Payment %s of %s", payment.PaymentNumber, payment.Amount.StringFixed(2))
	if bill != nil {
		desc += fmt.Sprintf(", %s applied to bill %s (balance %s, %s)", payment.AppliedAmount.StringFixed(2),
			bill.BillNumber, bill.Balance.StringFixed(2), bill.Status)
	}
	if payment.ExcessAmount.IsPositive() {
		desc += fmt.Sprintf(", %s credited", payment.ExcessAmount.StringFixed(2))
	}
	return desc
}

func (s *PaymentService) notifyVerified(ctx context.Context, payment *models.Payment, bill *models.Bill) {
	tenant, err := s.tenantRepo.FindByID(ctx, payment.WorkspaceID, payment.TenantID)
	if err != nil {
		logger.FromContext(ctx).Warn("[Payments] Could not load tenant to notify", "tenant_id", payment.TenantID, "error", err)
		return
	}
	msg := fmt.Sprintf("Payment %s of %s has been received", payment.PaymentNumber, payment.Amount.StringFixed(2))
	if bill != nil {
		msg += fmt.Sprintf(". Remaining balance on %s: %s", bill.BillNumber, bill.Balance.StringFixed(2))
	}
	s.notificationSvc.NotifyTenant(tenant, "Payment received", msg, models.NotificationTypePaymentVerified)
}
