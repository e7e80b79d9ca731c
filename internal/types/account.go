package types

// Position is the running net holding of one symbol. Quantity is positive
// for longs and negative for shorts.
type Position struct {
	Symbol            string  `json:"symbol" yaml:"symbol"`
	Quantity          float64 `json:"quantity" yaml:"quantity"`
	AverageEntryPrice float64 `json:"average_entry_price" yaml:"average_entry_price"`
	LastPrice         float64 `json:"last_price" yaml:"last_price"`
}

// MarketValue is the signed value of the position at the last seen close.
func (p Position) MarketValue() float64 {
	return p.Quantity * p.LastPrice
}

// IsFlat reports whether nothing is held.
func (p Position) IsFlat() bool {
	return p.Quantity == 0
}

// AccountState is a snapshot of the simulated account.
// TotalValue always equals Cash plus the sum of position market values.
type AccountState struct {
	// Cash is the current cash balance
	Cash float64 `json:"cash" yaml:"cash"`
	// Positions maps symbol to signed quantity
	Positions map[string]float64 `json:"positions" yaml:"positions"`
	// TotalValue is the mark-to-market value of the account
	TotalValue float64 `json:"total_value" yaml:"total_value"`
	// AvailableMargin is cash not reserved by pending buy orders
	AvailableMargin float64 `json:"available_margin" yaml:"available_margin"`
	// TotalFees is the total commission paid
	TotalFees float64 `json:"total_fees" yaml:"total_fees"`
}
