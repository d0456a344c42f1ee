package strategy

import (
	"fmt"
	"strings"

	"StockLens/internal/model"
)

const (
	iconUndetermined = "⚪"
	iconError        = "❌"
)

var levelIcons = map[model.SignalLevel]string{
	model.LevelStrongBuy:  "🟢",
	model.LevelBuy:        "🟣",
	model.LevelHold:       "🟡",
	model.LevelSell:       "🟠",
	model.LevelStrongSell: "🔴",
}

// Icon returns the presentation tag of a signal level.
func Icon(level model.SignalLevel) string {
	if icon, ok := levelIcons[level]; ok {
		return icon
	}
	return iconUndetermined
}

// RSIRules is the ordered RSI part of the composite advisory. The first
// matching rule wins; no match means HOLD.
var RSIRules = []struct {
	Level model.SignalLevel
	Above bool // true: RSI > bound, false: RSI < bound
	Bound func(th Thresholds) float64
	Label string
}{
	{model.LevelStrongSell, true, func(th Thresholds) float64 { return th.StrongOverbought }, "strongly overbought"},
	{model.LevelSell, true, func(th Thresholds) float64 { return th.Overbought }, "overbought"},
	{model.LevelStrongBuy, false, func(th Thresholds) float64 { return th.StrongOversold }, "strongly oversold"},
	{model.LevelBuy, false, func(th Thresholds) float64 { return th.Oversold }, "oversold"},
}

// applyRSIRules maps the latest RSI reading to a level and its justification.
func applyRSIRules(rsi float64, th Thresholds) (model.SignalLevel, string) {
	for _, r := range RSIRules {
		bound := r.Bound(th)
		if r.Above && rsi > bound {
			return r.Level, fmt.Sprintf("RSI = %.1f > %.0f (%s)", rsi, bound, r.Label)
		}
		if !r.Above && rsi < bound {
			return r.Level, fmt.Sprintf("RSI = %.1f < %.0f (%s)", rsi, bound, r.Label)
		}
	}
	return model.LevelHold, fmt.Sprintf("RSI = %.1f (neutral, %.0f ≤ RSI ≤ %.0f)", rsi, th.Oversold, th.Overbought)
}

// applyCrossover folds the latest MACD crossover into an RSI outcome.
// A cross in the direction of the current side only extends the reason, a
// cross from neutral sets BUY or SELL, and a cross against the side is ignored.
func applyCrossover(level model.SignalLevel, reason string, cross model.Crossover, dif, dea float64) (model.SignalLevel, string) {
	var dir int
	var macdReason string
	switch cross {
	case model.CrossGolden:
		dir = 1
		macdReason = fmt.Sprintf("MACD golden cross (DIF=%.2f above DEA=%.2f)", dif, dea)
	case model.CrossDeath:
		dir = -1
		macdReason = fmt.Sprintf("MACD death cross (DIF=%.2f below DEA=%.2f)", dif, dea)
	default:
		return level, reason
	}

	switch level.Side() {
	case dir:
		return level, reason + " + " + macdReason
	case 0:
		if dir > 0 {
			return model.LevelBuy, macdReason
		}
		return model.LevelSell, macdReason
	default:
		return level, reason
	}
}

func undetermined(reason string) model.Advisory {
	return model.Advisory{
		Level:  model.LevelHold,
		Reason: reason,
		Icon:   iconUndetermined,
	}
}

// Evaluate computes the composite advisory for the latest bar of frame.
// It never panics: data-shape problems and internal faults come back as an
// indeterminate HOLD advisory carrying the reason.
func Evaluate(frame *model.IndicatorFrame, th Thresholds) (adv model.Advisory) {
	defer func() {
		if r := recover(); r != nil {
			adv = model.Advisory{
				Level:  model.LevelHold,
				Reason: fmt.Sprintf("error: signal evaluation failed: %v", r),
				Icon:   iconError,
			}
		}
	}()

	if missing := frame.MissingColumns(); len(missing) > 0 {
		return undetermined(fmt.Sprintf("cannot determine: missing indicator columns %s", strings.Join(missing, ", ")))
	}
	n := frame.Len()
	if n < 2 {
		return undetermined("insufficient data: at least 2 bars are required")
	}

	rsi := frame.RSI[n-1]
	if !model.Defined(rsi) {
		return undetermined("insufficient data: RSI is undefined on the latest bar")
	}

	level, reason := applyRSIRules(rsi, th)

	dif, dea := frame.DIF[n-1], frame.DEA[n-1]
	if !model.Defined(dif) || !model.Defined(dea) {
		reason += " (MACD undefined)"
	} else {
		level, reason = applyCrossover(level, reason, crossAt(frame.DIF, frame.DEA, n-1), dif, dea)
	}

	return model.Advisory{
		Level:       level,
		Reason:      reason,
		Icon:        Icon(level),
		Determinate: true,
	}
}

// Generate attaches per-bar RSI signals, crossovers, a flat Position column
// and the composite advisory to frame. Columns that are absent are treated as
// undefined so every output column stays aligned with the bars.
func Generate(frame *model.IndicatorFrame, th Thresholds) *model.SignalFrame {
	if frame == nil {
		frame = &model.IndicatorFrame{Series: &model.PriceSeries{}}
	}
	n := frame.Len()
	return &model.SignalFrame{
		IndicatorFrame: frame,
		RSISignal:      RSISignals(aligned(frame.RSI, n), th),
		Crossover:      Crossovers(aligned(frame.DIF, n), aligned(frame.DEA, n)),
		Position:       make([]int, n),
		Advisory:       Evaluate(frame, th),
	}
}

func aligned(col []float64, n int) []float64 {
	if len(col) == n {
		return col
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = model.Undefined()
	}
	return out
}
