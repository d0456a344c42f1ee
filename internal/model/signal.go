package model

// SignalLevel is the discrete trading advice attached to a bar or a whole frame.
type SignalLevel string

const (
	LevelStrongBuy  SignalLevel = "STRONG_BUY"
	LevelBuy        SignalLevel = "BUY"
	LevelHold       SignalLevel = "HOLD"
	LevelSell       SignalLevel = "SELL"
	LevelStrongSell SignalLevel = "STRONG_SELL"
)

// Side returns +1 for the buy side, -1 for the sell side and 0 for HOLD.
func (l SignalLevel) Side() int {
	switch l {
	case LevelStrongBuy, LevelBuy:
		return 1
	case LevelSell, LevelStrongSell:
		return -1
	default:
		return 0
	}
}

// Crossover marks a DIF/DEA crossing between two consecutive bars.
type Crossover int8

const (
	CrossNone   Crossover = 0
	CrossGolden Crossover = 1  // DIF crosses above DEA
	CrossDeath  Crossover = -1 // DIF crosses below DEA
)

func (c Crossover) String() string {
	switch c {
	case CrossGolden:
		return "golden"
	case CrossDeath:
		return "death"
	default:
		return "none"
	}
}

// Advisory is the composite signal for the latest bar of a frame.
type Advisory struct {
	Level  SignalLevel
	Reason string
	Icon   string // presentation only

	// Determinate is false for insufficient data, missing columns and
	// evaluation faults. Level is always HOLD in those cases.
	Determinate bool
}

// SignalFrame is an IndicatorFrame extended with per-bar signals and a position column.
type SignalFrame struct {
	*IndicatorFrame

	RSISignal []SignalLevel
	Crossover []Crossover
	Position  []int // 0 = flat, 1 = long

	Advisory Advisory
}
