package analytics

import (
	"math"
	"sort"
)

// ArithmeticAverage is the sum of values divided by their count, 0 for no values.
func ArithmeticAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// SampleStandardDeviation uses the n-1 denominator. Fewer than two values give 0.
func SampleStandardDeviation(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}

	mean := ArithmeticAverage(values)

	var combined float64
	for _, v := range values {
		combined += (v - mean) * (v - mean)
	}

	return math.Sqrt(combined / float64(len(values)-1))
}

// DownsideDeviation is sqrt(sum(min(r, 0)^2) / n).
func DownsideDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var squared float64
	for _, v := range values {
		if v < 0 {
			squared += v * v
		}
	}

	return math.Sqrt(squared / float64(len(values)))
}

// Percentile returns the q-quantile (q in [0, 1]) with linear interpolation
// between the closest ranks.
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}

	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	frac := pos - float64(lower)

	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// SampleCovariance of two equally long series, 0 when shorter than two.
func SampleCovariance(a, b []float64) float64 {
	n := len(a)
	if n != len(b) || n <= 1 {
		return 0
	}

	meanA := ArithmeticAverage(a)
	meanB := ArithmeticAverage(b)

	var sum float64
	for i := range a {
		sum += (a[i] - meanA) * (b[i] - meanB)
	}

	return sum / float64(n-1)
}

// SafeDivide returns 0 instead of NaN or Inf.
func SafeDivide(numerator, denominator float64) float64 {
	if denominator == 0 || math.IsNaN(denominator) {
		return 0
	}

	result := numerator / denominator
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}

	return result
}

// PeriodReturns converts a value series into simple returns between
// consecutive values. A zero previous value yields a 0 return.
func PeriodReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns[i-1] = SafeDivide(values[i]-values[i-1], values[i-1])
	}

	return returns
}

// MaxDrawdown returns the largest fractional decline from a running peak and
// the indices of that peak and of the trough.
func MaxDrawdown(values []float64) (float64, int, int) {
	var (
		maxDD      float64
		peak       float64
		peakIndex  int
		startIndex int
		endIndex   int
	)

	for i, v := range values {
		if i == 0 || v > peak {
			peak = v
			peakIndex = i
		}

		if dd := SafeDivide(peak-v, peak); dd > maxDD {
			maxDD = dd
			startIndex = peakIndex
			endIndex = i
		}
	}

	return maxDD, startIndex, endIndex
}

// AnnualizedReturn compounds totalReturn over 252 trading days per year.
func AnnualizedReturn(totalReturn float64, tradingDays int) float64 {
	if tradingDays <= 0 || totalReturn <= -1 {
		return 0
	}

	result := math.Pow(1+totalReturn, 252/float64(tradingDays)) - 1
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}

	return result
}
