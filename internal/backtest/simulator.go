package backtest

import (
	"time"

	"StockLens/internal/model"
	"StockLens/internal/risk"
	"StockLens/internal/strategy"
)

// ApplyPolicy fills sf.Position with a single forward scan: the position is
// carried from bar to bar and only changes on a trigger. Exit wins when both
// triggers fire on the same bar. Frames with missing indicator columns stay flat.
func ApplyPolicy(sf *model.SignalFrame, p Policy) *model.SignalFrame {
	if sf == nil {
		sf = &model.SignalFrame{}
	}
	n := sf.Len()
	pos := make([]int, n)
	if len(sf.IndicatorFrame.MissingColumns()) == 0 {
		current := 0
		for i := 0; i < n; i++ {
			enter, exit := p.Triggers(sf.IndicatorFrame, i)
			switch {
			case exit:
				current = 0
			case enter:
				current = 1
			}
			pos[i] = current
		}
	}
	sf.Position = pos
	return sf
}

// Simulate turns a positioned SignalFrame into buy-and-hold and strategy
// equity curves. The return of bar t is earned with the position held at t-1.
func Simulate(sf *model.SignalFrame) *model.EquityCurve {
	n := 0
	var bars []model.OHLCV
	if sf != nil && sf.IndicatorFrame != nil && sf.Series != nil {
		bars = sf.Series.Bars
		n = len(bars)
	}
	c := &model.EquityCurve{
		Times:          make([]time.Time, n),
		DailyReturn:    make([]float64, n),
		StrategyReturn: make([]float64, n),
		Position:       make([]int, n),
		BuyHold:        make([]float64, n),
		Strategy:       make([]float64, n),
	}
	if n == 0 {
		return c
	}
	if len(sf.Position) == n {
		copy(c.Position, sf.Position)
	}

	bh, st := 1.0, 1.0
	for i, b := range bars {
		c.Times[i] = b.Time
		if i > 0 {
			if prev := bars[i-1].Close; prev > 0 {
				c.DailyReturn[i] = b.Close/prev - 1
			}
			c.StrategyReturn[i] = c.DailyReturn[i] * float64(c.Position[i-1])
		}
		bh *= 1 + c.DailyReturn[i]
		st *= 1 + c.StrategyReturn[i]
		c.BuyHold[i] = bh
		c.Strategy[i] = st
	}
	return c
}

// Summarize reports final returns as percentages, drawdowns of both curves,
// the number of entries and the share of bars spent long.
func Summarize(c *model.EquityCurve, name string) model.BacktestSummary {
	s := model.BacktestSummary{Strategy: name, Bars: c.Len()}
	if s.Bars == 0 {
		return s
	}
	s.FinalBuyHoldPct = (c.BuyHold[s.Bars-1] - 1) * 100
	s.FinalStrategyPct = (c.Strategy[s.Bars-1] - 1) * 100
	s.BuyHoldMaxDrawdown = risk.MaxDrawdown(c.BuyHold)
	s.StrategyMaxDrawdown = risk.MaxDrawdown(c.Strategy)

	prev, long := 0, 0
	for _, p := range c.Position {
		if p == 1 {
			long++
			if prev == 0 {
				s.Trades++
			}
		}
		prev = p
	}
	s.Exposure = float64(long) / float64(s.Bars)
	return s
}

// Run derives signals with th, positions the frame with policy p and simulates it.
func Run(frame *model.IndicatorFrame, th strategy.Thresholds, p Policy) (*model.SignalFrame, *model.EquityCurve, model.BacktestSummary) {
	sf := ApplyPolicy(strategy.Generate(frame, th), p)
	curve := Simulate(sf)
	return sf, curve, Summarize(curve, p.Name())
}
