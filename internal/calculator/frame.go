package calculator

import "StockLens/internal/model"

// Params holds the lookback parameters of the indicator engine.
type Params struct {
	SMAWindow  int
	RSIWindow  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultParams returns SMA(50), RSI(14) and MACD(12, 26, 9).
func DefaultParams() Params {
	return Params{
		SMAWindow:  50,
		RSIWindow:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// BuildFrame derives every indicator column from series. The series is not
// modified; a nil or empty series yields a frame with empty columns.
func BuildFrame(series *model.PriceSeries, p Params) *model.IndicatorFrame {
	if series == nil {
		series = &model.PriceSeries{}
	}
	closes := series.Closes()
	dif, dea, hist := MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	return &model.IndicatorFrame{
		Series:    series,
		SMAWindow: p.SMAWindow,
		RSIWindow: p.RSIWindow,
		SMA:       SMA(closes, p.SMAWindow),
		RSI:       RSI(closes, p.RSIWindow),
		DIF:       dif,
		DEA:       dea,
		Hist:      hist,
	}
}
