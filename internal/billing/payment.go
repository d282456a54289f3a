package billing

import (
	"github.com/shopspring/decimal"
	"github.com/upahan/upahan-api/internal/models"
)

// Application is the outcome of applying money to a bill
type Application struct {
	Applied       decimal.Decimal
	Excess        decimal.Decimal
	NewAmountPaid decimal.Decimal
	NewBalance    decimal.Decimal
	NewStatus     string
}

// ApplyPayment applies amount to a bill with the given paid amount and balance.
// The balance never goes negative; whatever exceeds it is returned as Excess.
func ApplyPayment(amountPaid, balance, amount decimal.Decimal) (Application, error) {
	amount = RoundMoney(amount)
	if !amount.IsPositive() {
		return Application{}, ErrNonPositiveAmount
	}

	applied := decimal.Min(amount, balance)
	if applied.IsNegative() {
		applied = decimal.Zero
	}
	newBalance := balance.Sub(applied)

	status := models.BillStatusPartial
	if newBalance.IsZero() {
		status = models.BillStatusPaid
	}

	return Application{
		Applied:       applied,
		Excess:        amount.Sub(applied),
		NewAmountPaid: amountPaid.Add(applied),
		NewBalance:    newBalance,
		NewStatus:     status,
	}, nil
}

// Reversal is the outcome of taking a previously applied amount back from a bill
type Reversal struct {
	NewAmountPaid decimal.Decimal
	NewBalance    decimal.Decimal
	NewStatus     string
}

// ReversePayment undoes an application of applied on a bill. The bill returns to
// pending when nothing remains paid, otherwise to partial.
func ReversePayment(amountPaid, balance, applied decimal.Decimal) (Reversal, error) {
	if applied.IsNegative() {
		return Reversal{}, ErrNegativeAmount
	}
	if applied.GreaterThan(amountPaid) {
		return Reversal{}, ErrReversalExceedsPaid
	}

	newPaid := amountPaid.Sub(applied)
	status := models.BillStatusPartial
	if newPaid.IsZero() {
		status = models.BillStatusPending
	}

	return Reversal{
		NewAmountPaid: newPaid,
		NewBalance:    balance.Add(applied),
		NewStatus:     status,
	}, nil
}
