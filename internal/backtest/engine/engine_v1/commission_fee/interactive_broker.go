package commission_fee

import "github.com/shopspring/decimal"

var (
	ibPerShare = decimal.RequireFromString("0.005")
	ibMinimum  = decimal.NewFromInt(1)
	// ibMaxRate caps the fee at 1% of the trade value.
	ibMaxRate = decimal.RequireFromString("0.01")
)

// InteractiveBrokerCommissionFee is the IBKR fixed tier: 0.005 per share,
// at least 1.0 per order and at most 1% of the trade value.
type InteractiveBrokerCommissionFee struct{}

func NewInteractiveBrokerCommissionFee() *InteractiveBrokerCommissionFee {
	return &InteractiveBrokerCommissionFee{}
}

func (c *InteractiveBrokerCommissionFee) Calculate(quantity float64, price float64) float64 {
	if quantity <= 0 {
		return 0
	}

	qty := decimal.NewFromFloat(quantity)
	fee := decimal.Max(qty.Mul(ibPerShare), ibMinimum)

	if price > 0 {
		fee = decimal.Min(fee, qty.Mul(decimal.NewFromFloat(price)).Mul(ibMaxRate))
	}

	f, _ := fee.Float64()

	return f
}
