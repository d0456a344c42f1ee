package strategy

import "StockLens/internal/model"

// Thresholds are the RSI bands used by the threshold signal and the composite advisory.
type Thresholds struct {
	StrongOversold   float64
	Oversold         float64
	Overbought       float64
	StrongOverbought float64
}

// DefaultThresholds returns 25 / 30 / 70 / 75.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StrongOversold:   25,
		Oversold:         30,
		Overbought:       70,
		StrongOverbought: 75,
	}
}

// ClassifyRSI maps one RSI reading to a signal level. Undefined readings are HOLD.
func ClassifyRSI(rsi float64, th Thresholds) model.SignalLevel {
	if !model.Defined(rsi) {
		return model.LevelHold
	}
	switch {
	case rsi > th.StrongOverbought:
		return model.LevelStrongSell
	case rsi > th.Overbought:
		return model.LevelSell
	case rsi < th.StrongOversold:
		return model.LevelStrongBuy
	case rsi < th.Oversold:
		return model.LevelBuy
	default:
		return model.LevelHold
	}
}

// RSISignals classifies every bar of an RSI column.
func RSISignals(rsi []float64, th Thresholds) []model.SignalLevel {
	out := make([]model.SignalLevel, len(rsi))
	for i, v := range rsi {
		out[i] = ClassifyRSI(v, th)
	}
	return out
}
