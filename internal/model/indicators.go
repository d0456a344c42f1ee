package model

import "math"

// IndicatorFrame is a PriceSeries extended with derived columns.
// Every column has one entry per bar; NaN marks a value that is not defined yet.
type IndicatorFrame struct {
	Series *PriceSeries

	SMAWindow int
	RSIWindow int

	SMA  []float64
	RSI  []float64
	DIF  []float64 // fast EMA - slow EMA
	DEA  []float64 // EMA of DIF
	Hist []float64 // 2 * (DIF - DEA)
}

// Undefined is the sentinel stored for values a rolling window cannot produce yet.
func Undefined() float64 { return math.NaN() }

// Defined reports whether v carries a usable number.
func Defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Len returns the number of bars covered by the frame.
func (f *IndicatorFrame) Len() int {
	if f == nil {
		return 0
	}
	return f.Series.Len()
}

// MissingColumns lists the indicator columns that are absent or not aligned with the bars.
func (f *IndicatorFrame) MissingColumns() []string {
	if f == nil {
		return []string{"RSI", "DIF", "DEA"}
	}
	n := f.Len()
	var missing []string
	for _, c := range []struct {
		name string
		col  []float64
	}{
		{"RSI", f.RSI},
		{"DIF", f.DIF},
		{"DEA", f.DEA},
	} {
		if c.col == nil || len(c.col) != n {
			missing = append(missing, c.name)
		}
	}
	return missing
}
