package risk

import (
	"math"

	"StockLens/internal/model"
)

// TradingDays is the annualization factor for daily statistics.
const TradingDays = 252

// zeroVolatility treats a standard deviation at floating-point noise level as zero.
const zeroVolatility = 1e-12

// Compute derives RiskStats from fractional daily returns. Undefined entries
// are dropped first; ok is false when nothing is left.
func Compute(returns []float64) (stats model.RiskStats, ok bool) {
	clean := make([]float64, 0, len(returns))
	for _, r := range returns {
		if model.Defined(r) {
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return model.RiskStats{}, false
	}

	mean := Mean(clean)
	sd := StdDev(clean)
	if sd < zeroVolatility {
		sd = 0
	}

	equity := make([]float64, len(clean))
	acc := 1.0
	for i, r := range clean {
		acc *= 1 + r
		equity[i] = acc
	}

	stats = model.RiskStats{
		Observations:         len(clean),
		FinalReturn:          acc - 1,
		MeanDailyReturn:      mean,
		AnnualizedVolatility: sd * math.Sqrt(TradingDays),
		MaxDrawdown:          MaxDrawdown(equity),
	}
	if sd != 0 {
		sharpe := mean / sd * math.Sqrt(TradingDays)
		stats.SharpeRatio = &sharpe
	}
	return stats, true
}

// Mean is the arithmetic mean; 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev is the sample standard deviation (n-1); 0 with fewer than two values.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// MaxDrawdown returns the most negative (equity-peak)/peak over the path.
// The running peak starts at the first value. Undefined and non-positive
// peaks are skipped; an empty path has no drawdown.
func MaxDrawdown(equity []float64) float64 {
	peak := math.NaN()
	worst := 0.0
	for _, v := range equity {
		if !model.Defined(v) {
			continue
		}
		if math.IsNaN(peak) || v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (v - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}
