package calculator

import "StockLens/internal/model"

// RSI computes the relative strength index of closes over a trailing window
// of n day-over-day changes. Gains and losses are simple means over the
// window (no Wilder smoothing). The value at index i is defined once n deltas
// are available, i.e. for i >= n. A window without losses saturates at 100.
func RSI(closes []float64, n int) []float64 {
	out := undefinedColumn(len(closes))
	if n <= 0 || len(closes) <= n {
		return out
	}
	for i := n; i < len(closes); i++ {
		var gainSum, lossSum float64
		for j := i - n + 1; j <= i; j++ {
			delta := closes[j] - closes[j-1]
			if delta > 0 {
				gainSum += delta
			} else {
				lossSum -= delta
			}
		}
		out[i] = rsiValue(gainSum/float64(n), lossSum/float64(n))
	}
	return out
}

// LatestRSI returns the RSI of the last bar, or false while it is undefined.
func LatestRSI(bars []model.OHLCV, n int) (float64, bool) {
	col := RSI(extractCloses(bars), n)
	if len(col) == 0 || !model.Defined(col[len(col)-1]) {
		return 0, false
	}
	return col[len(col)-1], true
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if !model.Defined(avgGain) || !model.Defined(avgLoss) {
		return model.Undefined()
	}
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
