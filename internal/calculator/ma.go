package calculator

import (
	"math"

	"StockLens/internal/model"
)

// SMA computes the trailing simple moving average of values over window n.
// Entries before index n-1 are undefined (NaN); a non-positive window leaves
// every entry undefined.
func SMA(values []float64, n int) []float64 {
	out := undefinedColumn(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA computes the recursive exponential moving average with alpha = 2/(span+1),
// seeded by the first observation. Early values carry startup bias: they are
// defined from index 0 but only settle after a few multiples of span.
func EMA(values []float64, span int) []float64 {
	out := undefinedColumn(len(values))
	if span <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	prev := math.NaN()
	for i, v := range values {
		switch {
		case math.IsNaN(prev):
			prev = v
		case math.IsNaN(v):
			// keep the last defined average
		default:
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

func undefinedColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = model.Undefined()
	}
	return col
}

func extractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
