package fees

import (
	"strings"

	"github.com/shopspring/decimal"
)

const bpsDenominator = 10000

// Breakdown is the result of splitting a listed price into the merchant and
// platform portions. Merchant + Fee always equals Total at the asset's
// decimal precision.
type Breakdown struct {
	Total    decimal.Decimal `json:"total"`
	Merchant decimal.Decimal `json:"merchant"`
	Fee      decimal.Decimal `json:"fee"`
	FeeBps   int64           `json:"feeBps"`
}

// Calculator splits amounts according to the platform fee schedule. The
// schedule is resolved once at startup and never mutated.
type Calculator struct {
	treasury string
	feeBps   int64
}

func NewCalculator(treasuryAddress string, feeBps int64) Calculator {
	return Calculator{
		treasury: strings.TrimSpace(treasuryAddress),
		feeBps:   feeBps,
	}
}

// Enabled reports whether fee routing is active. Both a treasury account and
// a positive in-range bps rate are required.
func (c Calculator) Enabled() bool {
	return c.treasury != "" && c.feeBps > 0 && c.feeBps < bpsDenominator
}

// TreasuryAddress returns the configured treasury account, empty when
// routing is disabled.
func (c Calculator) TreasuryAddress() string {
	if !c.Enabled() {
		return ""
	}
	return c.treasury
}

// FeeBps returns the configured rate regardless of routing state. Display
// surfaces use it even when no treasury is configured.
func (c Calculator) FeeBps() int64 {
	return c.feeBps
}

// Calculate splits amount (in the asset's display unit) at the given decimal
// precision. Non-positive amounts and disabled routing degrade to a zero fee
// rather than erroring; the calculator is also used for pure display.
func (c Calculator) Calculate(amount decimal.Decimal, decimals int32) Breakdown {
	b := Breakdown{
		Total:    amount,
		Merchant: amount,
		Fee:      decimal.Zero,
		FeeBps:   c.feeBps,
	}
	if !c.Enabled() || amount.Sign() <= 0 {
		return b
	}

	fee := amount.
		Mul(decimal.NewFromInt(c.feeBps)).
		Div(decimal.NewFromInt(bpsDenominator)).
		Round(decimals) // shopspring rounds half away from zero
	if fee.GreaterThan(amount) {
		fee = amount
	}

	b.Fee = fee
	b.Merchant = amount.Sub(fee)
	return b
}
