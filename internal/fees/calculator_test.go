package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const treasury = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func TestCalculateSplitsAmount(t *testing.T) {
	calc := NewCalculator(treasury, 75)

	b := calc.Calculate(decimal.NewFromInt(100), 9)
	require.True(t, b.Fee.Equal(decimal.RequireFromString("0.75")), "fee=%s", b.Fee)
	require.True(t, b.Merchant.Equal(decimal.RequireFromString("99.25")), "merchant=%s", b.Merchant)
	require.True(t, b.Total.Equal(decimal.NewFromInt(100)))
}

func TestCalculateConservation(t *testing.T) {
	amounts := []string{"0.000000001", "0.5", "1", "3.999999999", "100", "12345.678901234"}
	rates := []int64{1, 75, 250, 9999}

	for _, raw := range amounts {
		amount := decimal.RequireFromString(raw)
		for _, bps := range rates {
			calc := NewCalculator(treasury, bps)
			b := calc.Calculate(amount, 9)
			require.True(t, b.Merchant.Add(b.Fee).Equal(amount),
				"amount=%s bps=%d merchant=%s fee=%s", raw, bps, b.Merchant, b.Fee)
			require.False(t, b.Fee.IsNegative(), "amount=%s bps=%d", raw, bps)
			require.False(t, b.Merchant.IsNegative(), "amount=%s bps=%d", raw, bps)
		}
	}
}

func TestCalculateDisabledRouting(t *testing.T) {
	cases := []struct {
		name string
		calc Calculator
	}{
		{name: "no treasury", calc: NewCalculator("", 75)},
		{name: "zero bps", calc: NewCalculator(treasury, 0)},
		{name: "bps out of range", calc: NewCalculator(treasury, 10000)},
	}
	amount := decimal.NewFromInt(50)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.False(t, tc.calc.Enabled())
			b := tc.calc.Calculate(amount, 9)
			require.True(t, b.Fee.IsZero())
			require.True(t, b.Merchant.Equal(amount))
			require.Empty(t, tc.calc.TreasuryAddress())
		})
	}
}

func TestCalculateNonPositiveAmounts(t *testing.T) {
	calc := NewCalculator(treasury, 75)

	for _, raw := range []string{"0", "-1", "-0.000000001"} {
		amount := decimal.RequireFromString(raw)
		b := calc.Calculate(amount, 9)
		require.True(t, b.Fee.IsZero(), "amount=%s", raw)
		require.True(t, b.Merchant.Equal(amount), "amount=%s", raw)
	}
}

func TestCalculateRespectsTokenPrecision(t *testing.T) {
	calc := NewCalculator(treasury, 33)

	// 10.01 USDC at 33bps = 0.033033, rounded half-up at 6 decimals.
	b := calc.Calculate(decimal.RequireFromString("10.01"), 6)
	require.True(t, b.Fee.Equal(decimal.RequireFromString("0.033033")), "fee=%s", b.Fee)
	require.True(t, b.Merchant.Add(b.Fee).Equal(b.Total))
}
