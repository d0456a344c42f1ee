package strategy

import "StockLens/internal/model"

// Crossovers marks golden and death crosses of dif over dea. A cross on bar i
// compares bars i-1 and i, so bar 0 never crosses. Undefined values never cross.
func Crossovers(dif, dea []float64) []model.Crossover {
	n := len(dif)
	if len(dea) < n {
		n = len(dea)
	}
	out := make([]model.Crossover, n)
	for i := 1; i < n; i++ {
		out[i] = crossAt(dif, dea, i)
	}
	return out
}

func crossAt(dif, dea []float64, i int) model.Crossover {
	if i < 1 {
		return model.CrossNone
	}
	prevDif, prevDea := dif[i-1], dea[i-1]
	curDif, curDea := dif[i], dea[i]
	switch {
	case prevDif < prevDea && curDif > curDea:
		return model.CrossGolden
	case prevDif > prevDea && curDif < curDea:
		return model.CrossDeath
	default:
		return model.CrossNone
	}
}
