package commission_fee

import "github.com/shopspring/decimal"

// RateCommissionFee charges quantity * price * rate.
type RateCommissionFee struct {
	rate decimal.Decimal
}

func NewRateCommissionFee(rate float64) *RateCommissionFee {
	return &RateCommissionFee{rate: decimal.NewFromFloat(rate)}
}

func (c *RateCommissionFee) Calculate(quantity float64, price float64) float64 {
	if quantity <= 0 || price <= 0 {
		return 0
	}

	fee, _ := decimal.NewFromFloat(quantity).
		Mul(decimal.NewFromFloat(price)).
		Mul(c.rate).
		Float64()

	return fee
}
