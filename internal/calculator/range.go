package calculator

import (
	"math"

	"StockLens/internal/model"
)

// YearBars is the lookback of the 52-week range.
const YearBars = 252

// Range holds the extremes of the most recent bars.
type Range struct {
	High float64
	Low  float64
	Bars int // bars actually scanned
}

// FromHighPct returns how far price sits below the range high, in percent (<= 0
// while price is inside the range).
func (r Range) FromHighPct(price float64) float64 {
	if r.High <= 0 {
		return model.Undefined()
	}
	return (price - r.High) / r.High * 100
}

// PriceRange scans the last lookback bars for the highest High and lowest Low.
// ok is false when there is no bar to scan.
func PriceRange(bars []model.OHLCV, lookback int) (r Range, ok bool) {
	n := len(bars)
	if n == 0 || lookback <= 0 {
		return Range{}, false
	}
	start := n - lookback
	if start < 0 {
		start = 0
	}
	r = Range{High: math.Inf(-1), Low: math.Inf(1), Bars: n - start}
	for _, b := range bars[start:] {
		r.High = math.Max(r.High, b.High)
		r.Low = math.Min(r.Low, b.Low)
	}
	return r, true
}
