package types

import "time"

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Equity    float64   `yaml:"equity" json:"equity"`
	// Drawdown is the fractional decline from the running peak.
	Drawdown float64 `yaml:"drawdown" json:"drawdown"`
	// Benchmark is the last close of the benchmark symbol at this point, 0 if
	// it has not traded yet.
	Benchmark float64 `yaml:"benchmark" json:"benchmark"`
}
