package calculator

import "StockLens/internal/model"

// DailyReturns returns the fractional pct-change of closes. Index 0 and any
// bar following a non-positive close are undefined.
func DailyReturns(closes []float64) []float64 {
	out := undefinedColumn(len(closes))
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev <= 0 || !model.Defined(prev) {
			continue
		}
		out[i] = closes[i]/prev - 1
	}
	return out
}

// DailyReturnsPct is DailyReturns scaled to percent.
func DailyReturnsPct(closes []float64) []float64 {
	out := DailyReturns(closes)
	for i := range out {
		out[i] *= 100
	}
	return out
}

// CumulativeReturnsPct returns (close/firstClose - 1) * 100 for every bar.
func CumulativeReturnsPct(closes []float64) []float64 {
	out := undefinedColumn(len(closes))
	if len(closes) == 0 || closes[0] <= 0 {
		return out
	}
	for i, c := range closes {
		out[i] = (c/closes[0] - 1) * 100
	}
	return out
}

// PriceChange returns the last close and its change against the previous
// close. ok is false when fewer than two bars are available.
func PriceChange(closes []float64) (last, delta, deltaPct float64, ok bool) {
	if len(closes) < 2 {
		return 0, 0, 0, false
	}
	last = closes[len(closes)-1]
	prev := closes[len(closes)-2]
	delta = last - prev
	if prev != 0 {
		deltaPct = delta / prev * 100
	}
	return last, delta, deltaPct, true
}
