package calculator

// MACD computes DIF = EMA(fast) - EMA(slow), DEA = EMA(DIF, signal) and the
// histogram 2*(DIF-DEA). All three columns are defined from the first bar,
// but the EMAs self-seed on that bar, so readings inside the first slow-span
// bars are biased toward the opening price and should be read with care.
func MACD(closes []float64, fast, slow, signal int) (dif, dea, hist []float64) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)

	dif = make([]float64, len(closes))
	for i := range dif {
		dif[i] = emaFast[i] - emaSlow[i]
	}
	dea = EMA(dif, signal)

	hist = make([]float64, len(closes))
	for i := range hist {
		hist[i] = 2 * (dif[i] - dea[i])
	}
	return dif, dea, hist
}
