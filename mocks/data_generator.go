package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// DataGenerator generates reproducible OHLCV bars for tests and benchmarks.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	Symbol       string
	StartTime    time.Time
	Interval     types.Interval
	Count        int
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical move per bar)
	Volatility float64
	// Trend is the total drift spread over the series (-0.1 to 0.1 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       types.Interval1d,
		Count:          250,
		InitialPrice:   100.0,
		Volatility:     0.02,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates bars following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Kline {
	bars := make([]types.Kline, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime
	width := config.Interval.Duration()

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normal draw
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + config.Volatility*z + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension

		low := math.Min(open, closePrice) - lowExtension
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Kline{
			Symbol:    config.Symbol,
			OpenTime:  currentTime,
			CloseTime: currentTime.Add(width - time.Millisecond),
			Open:      roundToDecimals(open, 4),
			High:      roundToDecimals(high, 4),
			Low:       roundToDecimals(low, 4),
			Close:     roundToDecimals(closePrice, 4),
			Volume:    roundToDecimals(volume, 2),
		}

		currentPrice = closePrice
		currentTime = currentTime.Add(width)
	}

	return bars
}

// GenerateMultiSymbol generates one series per symbol, keyed by symbol.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) map[string][]types.Kline {
	all := make(map[string][]types.Kline, len(symbols))

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		// Vary initial price and volatility slightly per symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		all[symbol] = g.Generate(config)
	}

	return all
}

// Bars builds daily bars for symbol from a list of open/close pairs. High and
// low are the max/min of the pair, widened by spread.
func Bars(symbol string, start time.Time, spread float64, openClose ...[2]float64) []types.Kline {
	bars := make([]types.Kline, len(openClose))

	for i, oc := range openClose {
		openTime := start.AddDate(0, 0, i)
		bars[i] = types.Kline{
			Symbol:    symbol,
			OpenTime:  openTime,
			CloseTime: openTime.Add(24*time.Hour - time.Millisecond),
			Open:      oc[0],
			High:      math.Max(oc[0], oc[1]) + spread,
			Low:       math.Min(oc[0], oc[1]) - spread,
			Close:     oc[1],
			Volume:    1000,
		}
	}

	return bars
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
