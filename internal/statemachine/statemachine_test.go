package statemachine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upahan/upahan-api/internal/models"
)

func TestBillFSM_ApplyPayment(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		from      string
		outcome   string
		want      string
		wantError bool
	}{
		{"pending to partial", models.BillStatusPending, models.BillStatusPartial, models.BillStatusPartial, false},
		{"pending to paid", models.BillStatusPending, models.BillStatusPaid, models.BillStatusPaid, false},
		{"partial stays partial", models.BillStatusPartial, models.BillStatusPartial, models.BillStatusPartial, false},
		{"overdue to paid", models.BillStatusOverdue, models.BillStatusPaid, models.BillStatusPaid, false},
		{"paid bill refuses money", models.BillStatusPaid, models.BillStatusPaid, models.BillStatusPaid, true},
		{"cancelled bill refuses money", models.BillStatusCancelled, models.BillStatusPartial, models.BillStatusCancelled, true},
		{"draft bill refuses money", models.BillStatusDraft, models.BillStatusPartial, models.BillStatusDraft, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bill := &models.Bill{Status: tt.from}
			err := NewBillFSM(bill).ApplyPayment(ctx, tt.outcome)
			if tt.wantError {
				assert.ErrorIs(t, err, ErrTransitionNotAllowed)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, bill.Status)
		})
	}
}

func TestBillFSM_Cancel(t *testing.T) {
	ctx := context.Background()

	bill := &models.Bill{Status: models.BillStatusPending}
	require.NoError(t, NewBillFSM(bill).Cancel(ctx))
	assert.Equal(t, models.BillStatusCancelled, bill.Status)

	paidSome := &models.Bill{Status: models.BillStatusOverdue, AmountPaid: decimal.NewFromInt(100)}
	assert.ErrorIs(t, NewBillFSM(paidSome).Cancel(ctx), ErrTransitionNotAllowed)

	paid := &models.Bill{Status: models.BillStatusPaid, AmountPaid: decimal.NewFromInt(100)}
	assert.ErrorIs(t, NewBillFSM(paid).Cancel(ctx), ErrTransitionNotAllowed)
}

func TestBillFSM_MarkOverdue(t *testing.T) {
	ctx := context.Background()

	for _, status := range []string{models.BillStatusPending, models.BillStatusPartial} {
		bill := &models.Bill{Status: status}
		require.NoError(t, NewBillFSM(bill).MarkOverdue(ctx))
		assert.Equal(t, models.BillStatusOverdue, bill.Status)
	}

	paid := &models.Bill{Status: models.BillStatusPaid}
	assert.ErrorIs(t, NewBillFSM(paid).MarkOverdue(ctx), ErrTransitionNotAllowed)
}

func TestBillFSM_ReversePayment(t *testing.T) {
	ctx := context.Background()

	bill := &models.Bill{Status: models.BillStatusPaid, AmountPaid: decimal.NewFromInt(500)}
	require.NoError(t, NewBillFSM(bill).ReversePayment(ctx, models.BillStatusPending))
	assert.Equal(t, models.BillStatusPending, bill.Status)

	partial := &models.Bill{Status: models.BillStatusPartial, AmountPaid: decimal.NewFromInt(500)}
	require.NoError(t, NewBillFSM(partial).ReversePayment(ctx, models.BillStatusPartial))
	assert.Equal(t, models.BillStatusPartial, partial.Status)

	unpaid := &models.Bill{Status: models.BillStatusPending}
	assert.ErrorIs(t, NewBillFSM(unpaid).ReversePayment(ctx, models.BillStatusPending), ErrTransitionNotAllowed)
}

func TestPaymentFSM(t *testing.T) {
	ctx := context.Background()

	t.Run("verify then refund", func(t *testing.T) {
		p := &models.Payment{Status: models.PaymentStatusPending}
		f := NewPaymentFSM(p)
		require.NoError(t, f.Verify(ctx))
		assert.Equal(t, models.PaymentStatusVerified, p.Status)
		require.NoError(t, f.Refund(ctx))
		assert.Equal(t, models.PaymentStatusRefunded, p.Status)
	})

	t.Run("reject pending", func(t *testing.T) {
		p := &models.Payment{Status: models.PaymentStatusPending}
		require.NoError(t, NewPaymentFSM(p).Reject(ctx))
		assert.Equal(t, models.PaymentStatusRejected, p.Status)
	})

	t.Run("cannot verify twice", func(t *testing.T) {
		p := &models.Payment{Status: models.PaymentStatusVerified}
		assert.ErrorIs(t, NewPaymentFSM(p).Verify(ctx), ErrTransitionNotAllowed)
	})

	t.Run("cannot refund pending", func(t *testing.T) {
		p := &models.Payment{Status: models.PaymentStatusPending}
		assert.ErrorIs(t, NewPaymentFSM(p).Refund(ctx), ErrTransitionNotAllowed)
	})

	t.Run("cannot reject rejected", func(t *testing.T) {
		p := &models.Payment{Status: models.PaymentStatusRejected}
		assert.ErrorIs(t, NewPaymentFSM(p).Reject(ctx), ErrTransitionNotAllowed)
	})
}
