package statemachine

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/upahan/upahan-api/internal/models"
)

// PaymentFSM wraps a payment with its state machine
type PaymentFSM struct {
	payment *models.Payment
	fsm     *fsm.FSM
}

// NewPaymentFSM creates a new payment state machine
func NewPaymentFSM(payment *models.Payment) *PaymentFSM {
	pfsm := &PaymentFSM{
		payment: payment,
	}

	pfsm.fsm = fsm.NewFSM(
		payment.Status,
		fsm.Events{
			// pending → verified
			{Name: "verify", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusVerified},

			// pending → rejected
			{Name: "reject", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusRejected},

			// verified → refunded
			{Name: "refund", Src: []string{models.PaymentStatusVerified}, Dst: models.PaymentStatusRefunded},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Verify transitions payment to verified state
func (p *PaymentFSM) Verify(ctx context.Context) error {
	if !p.payment.MayVerify() {
		return refuse("payment", "be verified", p.payment.Status)
	}

	if err := fire(ctx, p.fsm, "verify"); err != nil {
		return err
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Reject transitions payment to rejected state
func (p *PaymentFSM) Reject(ctx context.Context) error {
	if !p.payment.MayReject() {
		return refuse("payment", "be rejected", p.payment.Status)
	}

	if err := fire(ctx, p.fsm, "reject"); err != nil {
		return err
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Refund transitions a verified payment to refunded
func (p *PaymentFSM) Refund(ctx context.Context) error {
	if !p.payment.MayRefund() {
		return refuse("payment", "be refunded", p.payment.Status)
	}

	if err := fire(ctx, p.fsm, "refund"); err != nil {
		return err
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PaymentFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *PaymentFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
