package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upahan/upahan-api/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10"},
		{"-10.005", "-10.01"},
		{"33.333333", "33.33"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, d(tt.want).Equal(RoundMoney(d(tt.in))), "got %s", RoundMoney(d(tt.in)))
		})
	}
}

func TestSplitEvenly(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		want  []string
	}{
		{"even split", "300", 3, []string{"100", "100", "100"}},
		{"leftover centavos go to the first shares", "100", 3, []string{"33.34", "33.33", "33.33"}},
		{"two leftover centavos", "0.05", 3, []string{"0.02", "0.02", "0.01"}},
		{"zero total", "0", 4, []string{"0", "0", "0", "0"}},
		{"single occupant", "123.45", 1, []string{"123.45"}},
		{"fewer centavos than occupants", "0.02", 3, []string{"0.01", "0.01", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := SplitEvenly(d(tt.total), tt.n)
			require.NoError(t, err)
			require.Len(t, shares, len(tt.want))
			for i, w := range tt.want {
				assert.True(t, d(w).Equal(shares[i]), "share %d: want %s got %s", i, w, shares[i])
			}
			assert.True(t, RoundMoney(d(tt.total)).Equal(Sum(shares)))
		})
	}

	t.Run("zero occupants", func(t *testing.T) {
		_, err := SplitEvenly(d("100"), 0)
		assert.ErrorIs(t, err, ErrNoOccupants)
	})

	t.Run("negative total", func(t *testing.T) {
		_, err := SplitEvenly(d("-1"), 2)
		assert.ErrorIs(t, err, ErrNegativeAmount)
	})
}

func TestFlatRentCharge(t *testing.T) {
	c, err := FlatRentCharge(7, 3, d("8500"))
	require.NoError(t, err)

	assert.Equal(t, uint(7), c.TenantID)
	assert.True(t, d("8500").Equal(c.Total))
	require.Len(t, c.LineItems, 1)
	assert.Equal(t, "Monthly Rent", c.LineItems[0].Description)
	assert.Equal(t, models.LineItemTypeRent, c.LineItems[0].ItemType)
	assert.NoError(t, c.Verify())

	_, err = FlatRentCharge(7, 3, decimal.Zero)
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
}

func TestDormCharges(t *testing.T) {
	occupants := []DormOccupant{
		{TenantID: 1, BedNumber: "1", Rent: d("2000")},
		{TenantID: 2, BedNumber: "2", Rent: d("2200")},
		{TenantID: 3, BedNumber: "3", Rent: d("2500")},
	}

	t.Run("utilities split across occupants", func(t *testing.T) {
		charges, err := DormCharges(occupants, d("300"), d("150"))
		require.NoError(t, err)
		require.Len(t, charges, 3)

		wantTotals := []string{"2150", "2350", "2650"}
		utility := decimal.Zero
		for i, c := range charges {
			assert.True(t, d(wantTotals[i]).Equal(c.Total), "charge %d total %s", i, c.Total)
			assert.NoError(t, c.Verify())
			require.Len(t, c.LineItems, 3)
			assert.Equal(t, "Bed Rent (Bed "+occupants[i].BedNumber+")", c.LineItems[0].Description)
			assert.Equal(t, "Electricity (shared 3 ways)", c.LineItems[1].Description)
			assert.Equal(t, "Water (shared 3 ways)", c.LineItems[2].Description)
			utility = utility.Add(c.LineItems[1].Amount).Add(c.LineItems[2].Amount)
		}
		assert.True(t, d("450").Equal(utility))
	})

	t.Run("zero utilities leave only rent", func(t *testing.T) {
		charges, err := DormCharges(occupants, decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		for i, c := range charges {
			require.Len(t, c.LineItems, 1)
			assert.True(t, occupants[i].Rent.Equal(c.Total))
		}
	})

	t.Run("uneven utility stays exact", func(t *testing.T) {
		charges, err := DormCharges(occupants, d("100"), decimal.Zero)
		require.NoError(t, err)
		utility := decimal.Zero
		for _, c := range charges {
			require.Len(t, c.LineItems, 2)
			utility = utility.Add(c.LineItems[1].Amount)
		}
		assert.True(t, d("100").Equal(utility))
		assert.True(t, d("2033.34").Equal(charges[0].Total))
	})

	t.Run("no occupants", func(t *testing.T) {
		_, err := DormCharges(nil, d("300"), d("150"))
		assert.ErrorIs(t, err, ErrNoOccupants)
	})

	t.Run("negative utility", func(t *testing.T) {
		_, err := DormCharges(occupants, d("-1"), decimal.Zero)
		assert.ErrorIs(t, err, ErrNegativeAmount)
	})

	t.Run("bed without rent", func(t *testing.T) {
		free := []DormOccupant{{TenantID: 1, BedNumber: "1", Rent: decimal.Zero}, occupants[1]}
		_, err := DormCharges(free, d("300"), d("150"))
		assert.ErrorIs(t, err, ErrNonPositiveAmount)
	})
}

func TestChargeVerify_Mismatch(t *testing.T) {
	c := Charge{
		Total: d("100"),
		LineItems: []models.BillLineItem{
			{Amount: d("60")},
			{Amount: d("30")},
		},
	}
	assert.ErrorIs(t, c.Verify(), ErrLineItemsMismatch)
}

func TestComputeReading(t *testing.T) {
	tests := []struct {
		name        string
		prev, cur   string
		rate        string
		consumption string
		total       string
		wantErr     error
	}{
		{name: "normal", prev: "1200", cur: "1350", rate: "11.50", consumption: "150", total: "1725"},
		{name: "no consumption", prev: "500", cur: "500", rate: "12", consumption: "0", total: "0"},
		{name: "fractional rounds to centavos", prev: "0", cur: "3", rate: "0.3333", consumption: "3", total: "1"},
		{name: "meter went backwards", prev: "1350", cur: "1200", rate: "11.50", wantErr: ErrReadingBelowPrior},
		{name: "negative rate", prev: "0", cur: "10", rate: "-1", wantErr: ErrNegativeRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeReading(d(tt.prev), d(tt.cur), d(tt.rate))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, d(tt.consumption).Equal(got.Consumption), "consumption %s", got.Consumption)
			assert.True(t, d(tt.total).Equal(got.Total), "total %s", got.Total)
		})
	}
}

func TestApplyPayment(t *testing.T) {
	tests := []struct {
		name       string
		paid       string
		balance    string
		amount     string
		applied    string
		excess     string
		newPaid    string
		newBalance string
		status     string
	}{
		{"exact payment", "0", "1000", "1000", "1000", "0", "1000", "0", models.BillStatusPaid},
		{"partial payment", "0", "1000", "400", "400", "0", "400", "600", models.BillStatusPartial},
		{"overpayment", "0", "1000", "1500", "1000", "500", "1000", "0", models.BillStatusPaid},
		{"second partial settles", "400", "600", "600", "600", "0", "1000", "0", models.BillStatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyPayment(d(tt.paid), d(tt.balance), d(tt.amount))
			require.NoError(t, err)
			assert.True(t, d(tt.applied).Equal(got.Applied), "applied %s", got.Applied)
			assert.True(t, d(tt.excess).Equal(got.Excess), "excess %s", got.Excess)
			assert.True(t, d(tt.newPaid).Equal(got.NewAmountPaid), "paid %s", got.NewAmountPaid)
			assert.True(t, d(tt.newBalance).Equal(got.NewBalance), "balance %s", got.NewBalance)
			assert.Equal(t, tt.status, got.NewStatus)
		})
	}

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := ApplyPayment(decimal.Zero, d("1000"), decimal.Zero)
		assert.ErrorIs(t, err, ErrNonPositiveAmount)
	})
}

func TestReversePayment(t *testing.T) {
	t.Run("full reversal returns to pending", func(t *testing.T) {
		got, err := ReversePayment(d("1000"), decimal.Zero, d("1000"))
		require.NoError(t, err)
		assert.True(t, got.NewAmountPaid.IsZero())
		assert.True(t, d("1000").Equal(got.NewBalance))
		assert.Equal(t, models.BillStatusPending, got.NewStatus)
	})

	t.Run("partial reversal", func(t *testing.T) {
		got, err := ReversePayment(d("1000"), decimal.Zero, d("400"))
		require.NoError(t, err)
		assert.True(t, d("600").Equal(got.NewAmountPaid))
		assert.True(t, d("400").Equal(got.NewBalance))
		assert.Equal(t, models.BillStatusPartial, got.NewStatus)
	})

	t.Run("more than paid", func(t *testing.T) {
		_, err := ReversePayment(d("100"), d("900"), d("200"))
		assert.ErrorIs(t, err, ErrReversalExceedsPaid)
	})
}

func TestCalendarDay(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	// 20:30 UTC on the 31st is already the 1st in Manila
	instant := time.Date(2025, time.March, 31, 20, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), CalendarDay(instant, manila))
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), CalendarDay(instant, nil))
}
