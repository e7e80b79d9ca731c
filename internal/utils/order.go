package utils

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
)

// CalculateMaxQuantity calculates the maximum quantity that can be bought with
// budget at price, including commission, rounded down to decimalPrecision.
func CalculateMaxQuantity(budget float64, price float64, commissionFee commission_fee.CommissionFee, decimalPrecision int) float64 {
	if price <= 0 || budget <= 0 {
		return 0
	}

	maxQty := budget / price

	// Refine by accounting for fees. Usually converges in one or two steps.
	for i := 0; i < 10; i++ {
		totalCost := maxQty*price + commissionFee.Calculate(maxQty, price)
		if totalCost <= budget {
			break
		}

		maxQty *= budget / totalCost
	}

	qty := RoundToDecimalPrecision(maxQty, decimalPrecision)
	for qty > 0 && qty*price+commissionFee.Calculate(qty, price) > budget {
		qty = RoundToDecimalPrecision(qty-math.Pow10(-decimalPrecision), decimalPrecision)
	}

	return math.Max(qty, 0)
}

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	// the epsilon keeps 0.3/0.1-style values from flooring one step too low
	return math.Floor(quantity*multiplier+1e-9) / multiplier
}

// CalculateOrderQuantityByPercentage sizes an order to spend percentage of balance.
func CalculateOrderQuantityByPercentage(balance float64, price float64, commissionFee commission_fee.CommissionFee, percentage float64, decimalPrecision int) float64 {
	return CalculateMaxQuantity(balance*percentage, price, commissionFee, decimalPrecision)
}
