package backtest

import (
	"errors"
	"fmt"

	"StockLens/internal/model"
)

// ErrUnknownPolicy is returned by PolicyFor for names it does not know.
var ErrUnknownPolicy = errors.New("unknown backtest policy")

// Policy decides, bar by bar, whether to open or close the long position.
// Triggers may only read frame values at or before i.
type Policy interface {
	Name() string
	Triggers(f *model.IndicatorFrame, i int) (enter, exit bool)
}

// RSIOnly goes long while RSI < Low and flat once RSI > High.
type RSIOnly struct {
	Low  float64
	High float64
}

func (p RSIOnly) Name() string { return "rsi" }

func (p RSIOnly) Triggers(f *model.IndicatorFrame, i int) (enter, exit bool) {
	rsi := f.RSI[i]
	return rsi < p.Low, rsi > p.High
}

// RSIMACDCombo enters on RSI < Low AND DIF > DEA and exits on RSI > High OR
// DIF < DEA. The exit is deliberately looser than the entry.
type RSIMACDCombo struct {
	Low  float64
	High float64
}

func (p RSIMACDCombo) Name() string { return "rsi_macd" }

func (p RSIMACDCombo) Triggers(f *model.IndicatorFrame, i int) (enter, exit bool) {
	rsi, dif, dea := f.RSI[i], f.DIF[i], f.DEA[i]
	enter = rsi < p.Low && dif > dea
	exit = rsi > p.High || dif < dea
	return enter, exit
}

// PolicyFor resolves a configured policy name.
func PolicyFor(name string, low, high float64) (Policy, error) {
	switch name {
	case "rsi":
		return RSIOnly{Low: low, High: high}, nil
	case "rsi_macd":
		return RSIMACDCombo{Low: low, High: high}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// PolicyNames lists the names PolicyFor accepts.
func PolicyNames() []string { return []string{"rsi", "rsi_macd"} }
