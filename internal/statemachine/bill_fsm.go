package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/upahan/upahan-api/internal/models"
)

// BillFSM wraps a bill with its state machine
type BillFSM struct {
	bill *models.Bill
	fsm  *fsm.FSM
}

// NewBillFSM creates a new bill state machine
func NewBillFSM(bill *models.Bill) *BillFSM {
	bfsm := &BillFSM{
		bill: bill,
	}

	open := []string{models.BillStatusPending, models.BillStatusPartial, models.BillStatusOverdue}
	settled := []string{models.BillStatusPaid, models.BillStatusPartial, models.BillStatusOverdue}

	bfsm.fsm = fsm.NewFSM(
		bill.Status,
		fsm.Events{
			// draft → pending
			{Name: "issue", Src: []string{models.BillStatusDraft}, Dst: models.BillStatusPending},

			// pending/partial/overdue → partial or paid
			{Name: "apply_partial", Src: open, Dst: models.BillStatusPartial},
			{Name: "apply_full", Src: open, Dst: models.BillStatusPaid},

			// pending/partial → overdue
			{Name: "mark_overdue", Src: []string{models.BillStatusPending, models.BillStatusPartial}, Dst: models.BillStatusOverdue},

			// draft/pending/overdue → cancelled (nothing paid)
			{Name: "cancel", Src: []string{models.BillStatusDraft, models.BillStatusPending, models.BillStatusOverdue}, Dst: models.BillStatusCancelled},

			// paid/partial/overdue → partial or pending (refund)
			{Name: "reverse_partial", Src: settled, Dst: models.BillStatusPartial},
			{Name: "reverse_full", Src: settled, Dst: models.BillStatusPending},
		},
		fsm.Callbacks{},
	)

	return bfsm
}

// Issue moves a draft bill to pending
func (b *BillFSM) Issue(ctx context.Context) error {
	if err := fire(ctx, b.fsm, "issue"); err != nil {
		return err
	}
	b.bill.Status = b.fsm.Current()
	return nil
}

// ApplyPayment moves the bill to the status computed by the reconciliation
func (b *BillFSM) ApplyPayment(ctx context.Context, newStatus string) error {
	if !b.bill.MayApplyPayment() {
		return refuse("bill", "accept payment", b.bill.Status)
	}

	var event string
	switch newStatus {
	case models.BillStatusPaid:
		event = "apply_full"
	case models.BillStatusPartial:
		event = "apply_partial"
	default:
		return fmt.Errorf("%w: unexpected payment outcome %q", ErrTransitionNotAllowed, newStatus)
	}

	if err := fire(ctx, b.fsm, event); err != nil {
		return err
	}
	b.bill.Status = b.fsm.Current()
	return nil
}

// ReversePayment moves the bill back after a refund
func (b *BillFSM) ReversePayment(ctx context.Context, newStatus string) error {
	if !b.bill.MayReverse() {
		return refuse("bill", "reverse payment", b.bill.Status)
	}

	event := "reverse_partial"
	if newStatus == models.BillStatusPending {
		event = "reverse_full"
	}

	if err := fire(ctx, b.fsm, event); err != nil {
		return err
	}
	b.bill.Status = b.fsm.Current()
	return nil
}

// MarkOverdue flags an unpaid bill past its due date
func (b *BillFSM) MarkOverdue(ctx context.Context) error {
	if err := fire(ctx, b.fsm, "mark_overdue"); err != nil {
		return err
	}
	b.bill.Status = b.fsm.Current()
	return nil
}

// Cancel voids a bill that has received no money
func (b *BillFSM) Cancel(ctx context.Context) error {
	if !b.bill.MayCancel() {
		return refuse("bill", "be cancelled", b.bill.Status)
	}

	if err := fire(ctx, b.fsm, "cancel"); err != nil {
		return err
	}
	b.bill.Status = b.fsm.Current()
	return nil
}

// Current returns the current state
func (b *BillFSM) Current() string {
	return b.fsm.Current()
}

// Can checks if a transition is possible
func (b *BillFSM) Can(event string) bool {
	return b.fsm.Can(event)
}
