package billing

import "github.com/shopspring/decimal"

// ReadingCharge is the consumption between two meter readings and its cost
type ReadingCharge struct {
	Consumption decimal.Decimal
	Total       decimal.Decimal
}

// ComputeReading derives consumption and cost. A meter never runs backwards, so a
// current reading below the previous one is rejected.
func ComputeReading(previous, current, rate decimal.Decimal) (ReadingCharge, error) {
	if previous.IsNegative() || current.IsNegative() {
		return ReadingCharge{}, ErrNegativeAmount
	}
	if current.LessThan(previous) {
		return ReadingCharge{}, ErrReadingBelowPrior
	}
	if rate.IsNegative() {
		return ReadingCharge{}, ErrNegativeRate
	}

	consumption := current.Sub(previous)
	return ReadingCharge{
		Consumption: consumption,
		Total:       RoundMoney(consumption.Mul(rate)),
	}, nil
}
