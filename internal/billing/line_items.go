package billing

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/upahan/upahan-api/internal/models"
)

// Charge is the computed content of one tenant's bill before it is persisted
type Charge struct {
	TenantID  uint
	BindingID uint
	Total     decimal.Decimal
	LineItems []models.BillLineItem
}

// Verify checks that the line items add up to the total
func (c Charge) Verify() error {
	sum := Sum(lo.Map(c.LineItems, func(li models.BillLineItem, _ int) decimal.Decimal { return li.Amount }))
	if !sum.Equal(c.Total) {
		return fmt.Errorf("%w: items %s, total %s", ErrLineItemsMismatch, sum.StringFixed(2), c.Total.StringFixed(2))
	}
	return nil
}

// FlatRentCharge bills a single month of rent
func FlatRentCharge(tenantID, bindingID uint, rent decimal.Decimal) (Charge, error) {
	rent = RoundMoney(rent)
	if !rent.IsPositive() {
		return Charge{}, ErrNonPositiveAmount
	}
	return Charge{
		TenantID:  tenantID,
		BindingID: bindingID,
		Total:     rent,
		LineItems: []models.BillLineItem{
			{Description: "Monthly Rent", Amount: rent, ItemType: models.LineItemTypeRent},
		},
	}, nil
}

// DormOccupant is a boarder selected for a shared-utility bill
type DormOccupant struct {
	TenantID  uint
	BindingID uint
	BedNumber string
	Rent      decimal.Decimal
}

// DormCharges bills each occupant their bed rent plus an even share of the room's
// electricity and water. Utility lines appear only when the occupant's share is positive.
func DormCharges(occupants []DormOccupant, electricity, water decimal.Decimal) ([]Charge, error) {
	n := len(occupants)
	if n == 0 {
		return nil, ErrNoOccupants
	}
	if electricity.IsNegative() || water.IsNegative() {
		return nil, ErrNegativeAmount
	}

	elecShares, err := SplitEvenly(electricity, n)
	if err != nil {
		return nil, err
	}
	waterShares, err := SplitEvenly(water, n)
	if err != nil {
		return nil, err
	}

	charges := make([]Charge, 0, n)
	for i, o := range occupants {
		rent := RoundMoney(o.Rent)
		if !rent.IsPositive() {
			return nil, ErrNonPositiveAmount
		}

		items := []models.BillLineItem{
			{Description: fmt.Sprintf("Bed Rent (Bed %s)", o.BedNumber), Amount: rent, ItemType: models.LineItemTypeRent},
		}
		if elecShares[i].IsPositive() {
			items = append(items, models.BillLineItem{
				Description: fmt.Sprintf("Electricity (shared %d ways)", n),
				Amount:      elecShares[i],
				ItemType:    models.LineItemTypeUtility,
			})
		}
		if waterShares[i].IsPositive() {
			items = append(items, models.BillLineItem{
				Description: fmt.Sprintf("Water (shared %d ways)", n),
				Amount:      waterShares[i],
				ItemType:    models.LineItemTypeUtility,
			})
		}

		c := Charge{
			TenantID:  o.TenantID,
			BindingID: o.BindingID,
			Total:     rent.Add(elecShares[i]).Add(waterShares[i]),
			LineItems: items,
		}
		if !c.Total.IsPositive() {
			return nil, ErrNonPositiveAmount
		}
		charges = append(charges, c)
	}
	return charges, nil
}
