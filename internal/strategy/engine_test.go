package strategy

import (
	"math"
	"strings"
	"testing"
	"time"

	"StockLens/internal/calculator"
	"StockLens/internal/model"
)

var nan = math.NaN()

// frameOf builds a frame whose last two bars carry the given indicator values.
func frameOf(rsi, dif, dea []float64) *model.IndicatorFrame {
	n := len(rsi)
	bars := make([]model.OHLCV, n)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Close: 100}
	}
	return &model.IndicatorFrame{
		Series: &model.PriceSeries{Symbol: "TEST", Bars: bars},
		RSI:    rsi,
		DIF:    dif,
		DEA:    dea,
	}
}

func TestClassifyRSI(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		rsi  float64
		want model.SignalLevel
	}{
		{nan, model.LevelHold},
		{10, model.LevelStrongBuy},
		{25, model.LevelBuy},
		{29.9, model.LevelBuy},
		{30, model.LevelHold},
		{50, model.LevelHold},
		{70, model.LevelHold},
		{70.1, model.LevelSell},
		{75, model.LevelSell},
		{75.1, model.LevelStrongSell},
		{100, model.LevelStrongSell},
	}
	for _, tt := range tests {
		if got := ClassifyRSI(tt.rsi, th); got != tt.want {
			t.Errorf("ClassifyRSI(%v) = %s, want %s", tt.rsi, got, tt.want)
		}
	}
}

func TestCrossovers(t *testing.T) {
	dif := []float64{-1, 1, 2, 0.5, -0.5, nan, 1}
	dea := []float64{0, 0, 1, 1, 0, 0, 0}
	got := Crossovers(dif, dea)
	want := []model.Crossover{
		model.CrossNone,   // first bar
		model.CrossGolden, // -1<0 then 1>0
		model.CrossNone,
		model.CrossDeath, // 2>1 then 0.5<1
		model.CrossNone,  // 0.5<1 then -0.5<0
		model.CrossNone,  // undefined
		model.CrossNone,  // previous undefined
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bar %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCrossovers_SymmetricUnderMirroredPrices(t *testing.T) {
	up := make([]float64, 200)
	down := make([]float64, 200)
	for i := range up {
		wave := 10 * math.Sin(float64(i)/8)
		up[i] = 100 + wave
		down[i] = 100 - wave
	}
	difUp, deaUp, _ := calculator.MACD(up, 12, 26, 9)
	difDown, deaDown, _ := calculator.MACD(down, 12, 26, 9)
	a := Crossovers(difUp, deaUp)
	b := Crossovers(difDown, deaDown)

	golden := 0
	for i := range a {
		if a[i] != -b[i] {
			t.Fatalf("bar %d: %s vs mirrored %s", i, a[i], b[i])
		}
		if a[i] == model.CrossGolden {
			golden++
		}
	}
	if golden == 0 {
		t.Fatal("expected at least one crossover in a sinusoidal series")
	}
}

func TestEvaluate_RSIRules(t *testing.T) {
	th := DefaultThresholds()
	flatDif := []float64{0.5, 0.5}
	flatDea := []float64{0.1, 0.1}
	tests := []struct {
		rsi  float64
		want model.SignalLevel
	}{
		{80, model.LevelStrongSell},
		{72, model.LevelSell},
		{20, model.LevelStrongBuy},
		{28, model.LevelBuy},
		{50, model.LevelHold},
	}
	for _, tt := range tests {
		adv := Evaluate(frameOf([]float64{50, tt.rsi}, flatDif, flatDea), th)
		if adv.Level != tt.want {
			t.Errorf("rsi=%v: level %s, want %s", tt.rsi, adv.Level, tt.want)
		}
		if !adv.Determinate {
			t.Errorf("rsi=%v: expected a determinate advisory", tt.rsi)
		}
		if !strings.HasPrefix(adv.Reason, "RSI = ") {
			t.Errorf("rsi=%v: unexpected reason %q", tt.rsi, adv.Reason)
		}
		if adv.Icon != Icon(tt.want) {
			t.Errorf("rsi=%v: icon %s, want %s", tt.rsi, adv.Icon, Icon(tt.want))
		}
	}
}

func TestEvaluate_Crossover(t *testing.T) {
	th := DefaultThresholds()
	golden := [2][]float64{{-1, 1}, {0, 0}}
	death := [2][]float64{{1, -1}, {0, 0}}
	tests := []struct {
		name       string
		rsi        float64
		cross      [2][]float64
		want       model.SignalLevel
		wantAppend bool
	}{
		{"golden upgrades hold", 50, golden, model.LevelBuy, false},
		{"golden appends to buy", 28, golden, model.LevelBuy, true},
		{"golden appends to strong buy", 20, golden, model.LevelStrongBuy, true},
		{"golden ignored when sell", 72, golden, model.LevelSell, false},
		{"death downgrades hold", 50, death, model.LevelSell, false},
		{"death appends to strong sell", 80, death, model.LevelStrongSell, true},
		{"death ignored when buy", 28, death, model.LevelBuy, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := Evaluate(frameOf([]float64{50, tt.rsi}, tt.cross[0], tt.cross[1]), th)
			if adv.Level != tt.want {
				t.Fatalf("level %s, want %s (reason %q)", adv.Level, tt.want, adv.Reason)
			}
			hasMACD := strings.Contains(adv.Reason, "MACD")
			hasRSI := strings.Contains(adv.Reason, "RSI")
			switch {
			case tt.wantAppend:
				if !hasMACD || !hasRSI || !strings.Contains(adv.Reason, " + ") {
					t.Errorf("expected RSI and MACD reasons joined, got %q", adv.Reason)
				}
			case tt.rsi == 50:
				if !hasMACD || hasRSI {
					t.Errorf("expected the MACD reason alone, got %q", adv.Reason)
				}
			default:
				if hasMACD {
					t.Errorf("crossover against the side must be ignored, got %q", adv.Reason)
				}
			}
		})
	}
}

func TestEvaluate_Degenerate(t *testing.T) {
	th := DefaultThresholds()

	adv := Evaluate(nil, th)
	if adv.Determinate || adv.Level != model.LevelHold || !strings.Contains(adv.Reason, "cannot determine") {
		t.Errorf("nil frame: %+v", adv)
	}

	f := frameOf([]float64{40, 45, 50}, nil, []float64{0, 0, 0})
	adv = Evaluate(f, th)
	if adv.Determinate || !strings.Contains(adv.Reason, "DIF") || strings.Contains(adv.Reason, "DEA") {
		t.Errorf("missing DIF: %+v", adv)
	}

	adv = Evaluate(frameOf([]float64{20}, []float64{0}, []float64{0}), th)
	if adv.Determinate || adv.Level != model.LevelHold || !strings.Contains(adv.Reason, "insufficient data") {
		t.Errorf("single bar: %+v", adv)
	}

	adv = Evaluate(frameOf([]float64{20, nan}, []float64{0, 0}, []float64{0, 0}), th)
	if adv.Determinate || adv.Level != model.LevelHold {
		t.Errorf("undefined RSI: %+v", adv)
	}

	adv = Evaluate(frameOf([]float64{50, 20}, []float64{0, nan}, []float64{0, 0}), th)
	if adv.Level != model.LevelStrongBuy || !strings.HasSuffix(adv.Reason, "(MACD undefined)") {
		t.Errorf("undefined MACD: %+v", adv)
	}
}

func TestEvaluate_RecoversFromPanic(t *testing.T) {
	// A bound function that panics stands in for an unexpected internal fault.
	saved := RSIRules[0].Bound
	RSIRules[0].Bound = func(Thresholds) float64 { panic("boom") }
	defer func() { RSIRules[0].Bound = saved }()

	adv := Evaluate(frameOf([]float64{50, 50}, []float64{0, 0}, []float64{0, 0}), DefaultThresholds())
	if adv.Icon != "❌" || adv.Level != model.LevelHold || adv.Determinate {
		t.Fatalf("expected error advisory, got %+v", adv)
	}
	if !strings.Contains(adv.Reason, "boom") {
		t.Errorf("expected panic message in reason, got %q", adv.Reason)
	}
}

func TestGenerate_AlignsColumns(t *testing.T) {
	f := frameOf([]float64{nan, 20, 80}, nil, nil)
	sf := Generate(f, DefaultThresholds())
	if len(sf.RSISignal) != 3 || len(sf.Crossover) != 3 || len(sf.Position) != 3 {
		t.Fatalf("misaligned signal frame: %d %d %d", len(sf.RSISignal), len(sf.Crossover), len(sf.Position))
	}
	if sf.RSISignal[1] != model.LevelStrongBuy || sf.RSISignal[2] != model.LevelStrongSell {
		t.Errorf("unexpected RSI signals %v", sf.RSISignal)
	}
	if sf.Advisory.Determinate {
		t.Errorf("expected indeterminate advisory for missing MACD columns")
	}

	empty := Generate(nil, DefaultThresholds())
	if empty.Len() != 0 || len(empty.Position) != 0 {
		t.Fatalf("expected empty signal frame")
	}
}
