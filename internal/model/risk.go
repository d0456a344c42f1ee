package model

// RiskStats summarizes one daily-return sequence. All returns are fractions.
type RiskStats struct {
	Observations         int
	FinalReturn          float64
	MeanDailyReturn      float64
	AnnualizedVolatility float64
	SharpeRatio          *float64 // nil when volatility is zero
	MaxDrawdown          float64  // <= 0
}
