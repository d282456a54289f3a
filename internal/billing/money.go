// Package billing holds the arithmetic of bill generation and payment reconciliation.
// Nothing in it touches the database or the network.
package billing

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var (
	ErrNoOccupants         = errors.New("at least one occupant is required")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrNonPositiveAmount   = errors.New("amount must be greater than zero")
	ErrReadingBelowPrior   = errors.New("current reading is lower than previous reading")
	ErrNegativeRate        = errors.New("rate per unit must not be negative")
	ErrLineItemsMismatch   = errors.New("line items do not add up to the bill total")
	ErrReversalExceedsPaid = errors.New("reversal exceeds the amount paid on the bill")
)

// RoundMoney rounds to centavos, half away from zero
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SplitEvenly divides total into n shares that add up exactly to the rounded total.
// Every share is the total floored to centavos, and the centavos left over are given
// one each to the first shares.
func SplitEvenly(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 {
		return nil, ErrNoOccupants
	}
	if total.IsNegative() {
		return nil, ErrNegativeAmount
	}

	cents := RoundMoney(total).Shift(2).IntPart()
	base := cents / int64(n)
	rest := cents % int64(n)

	shares := make([]decimal.Decimal, n)
	for i := range shares {
		c := base
		if int64(i) < rest {
			c++
		}
		shares[i] = decimal.New(c, -2)
	}
	return shares, nil
}

// Sum adds amounts
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	return lo.Reduce(amounts, func(acc decimal.Decimal, d decimal.Decimal, _ int) decimal.Decimal {
		return acc.Add(d)
	}, decimal.Zero)
}
