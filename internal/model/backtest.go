package model

import "time"

// EquityCurve holds the simulated curves of a backtest, one entry per bar.
// BuyHold and Strategy both start at 1.0 (normalized initial capital).
type EquityCurve struct {
	Times          []time.Time
	DailyReturn    []float64
	StrategyReturn []float64
	Position       []int
	BuyHold        []float64
	Strategy       []float64
}

// Len returns the number of bars in the curve.
func (c *EquityCurve) Len() int {
	if c == nil {
		return 0
	}
	return len(c.BuyHold)
}

// BacktestSummary reports the outcome of one simulated run.
type BacktestSummary struct {
	Strategy            string
	Bars                int
	FinalBuyHoldPct     float64
	FinalStrategyPct    float64
	BuyHoldMaxDrawdown  float64
	StrategyMaxDrawdown float64
	Trades              int     // number of flat -> long transitions
	Exposure            float64 // share of bars spent long, 0..1
}
