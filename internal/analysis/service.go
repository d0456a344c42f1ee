package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"StockLens/internal/backtest"
	"StockLens/internal/calculator"
	"StockLens/internal/collector"
	"StockLens/internal/config"
	"StockLens/internal/metrics"
	"StockLens/internal/model"
	"StockLens/internal/risk"
	"StockLens/internal/strategy"
)

// ErrNotEnoughBars is returned when a series is too short to backtest.
var ErrNotEnoughBars = errors.New("not enough bars")

// WatchlistMoveThreshold is the daily move, in percent, that tags a watchlist
// row as BUY (fall) or SELL (rise).
const WatchlistMoveThreshold = 2.0

// Settings are the explicit parameters of every analysis call.
type Settings struct {
	Period          string
	Params          calculator.Params
	Thresholds      strategy.Thresholds
	BacktestLow     float64
	BacktestHigh    float64
	Strategy        string
	MinBacktestBars int
	WatchlistPeriod string
	Benchmarks      map[string]string
}

// SettingsFromConfig maps the analysis sections of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	a := cfg.Analysis
	return Settings{
		Period: a.Period,
		Params: calculator.Params{
			SMAWindow:  a.SMAWindow,
			RSIWindow:  a.RSIWindow,
			MACDFast:   a.MACDFast,
			MACDSlow:   a.MACDSlow,
			MACDSignal: a.MACDSignal,
		},
		Thresholds: strategy.Thresholds{
			StrongOversold:   a.RSIStrongLow,
			Oversold:         a.RSIOversold,
			Overbought:       a.RSIOverbought,
			StrongOverbought: a.RSIStrongHigh,
		},
		BacktestLow:     a.BacktestRSILow,
		BacktestHigh:    a.BacktestRSIHigh,
		Strategy:        a.Strategy,
		MinBacktestBars: a.MinBacktestBars,
		WatchlistPeriod: cfg.Watchlist.Period,
		Benchmarks:      cfg.Benchmarks,
	}
}

// Report is the single-symbol analysis: price metrics, latest indicators and
// the composite advisory.
type Report struct {
	Symbol    string
	Period    string
	Signals   *model.SignalFrame
	HasChange bool
	Last      float64
	Change    float64
	ChangePct float64
	SMA       float64 // NaN while undefined
	RSI       float64
	DIF       float64
	DEA       float64

	// Range covers the last calculator.YearBars bars, or fewer for short series.
	Range    calculator.Range
	HasRange bool
}

// BacktestResult bundles a simulated run with risk statistics of both curves.
type BacktestResult struct {
	Symbol        string
	Period        string
	Signals       *model.SignalFrame
	Curve         *model.EquityCurve
	Summary       model.BacktestSummary
	BuyHoldStats  model.RiskStats
	StrategyStats model.RiskStats
}

// Service runs analyses against series obtained through a collector.
type Service struct {
	collector *collector.Collector
	settings  Settings
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewService creates a new Service.
func NewService(col *collector.Collector, settings Settings, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		collector: col,
		settings:  settings,
		metrics:   m,
		log:       log.With().Str("component", "analysis").Logger(),
	}
}

// Settings returns the parameters the service was built with.
func (s *Service) Settings() Settings { return s.settings }

func (s *Service) period(p string) string {
	if p == "" {
		return s.settings.Period
	}
	return p
}

// Analyze computes indicators and the composite advisory for symbol.
func (s *Service) Analyze(ctx context.Context, symbol, period string) (*Report, error) {
	period = s.period(period)
	series, err := s.collector.Collect(ctx, symbol, period)
	if err != nil {
		return nil, err
	}

	frame := calculator.BuildFrame(series, s.settings.Params)
	sf := strategy.Generate(frame, s.settings.Thresholds)
	s.metrics.RecordSignal(string(sf.Advisory.Level))

	r := &Report{
		Symbol:  series.Symbol,
		Period:  period,
		Signals: sf,
		SMA:     model.Undefined(),
		RSI:     model.Undefined(),
		DIF:     model.Undefined(),
		DEA:     model.Undefined(),
	}
	r.Last, r.Change, r.ChangePct, r.HasChange = calculator.PriceChange(series.Closes())
	r.Range, r.HasRange = calculator.PriceRange(series.Bars, calculator.YearBars)
	if n := frame.Len(); n > 0 {
		r.SMA, r.RSI, r.DIF, r.DEA = frame.SMA[n-1], frame.RSI[n-1], frame.DIF[n-1], frame.DEA[n-1]
		if !r.HasChange {
			r.Last = series.Bars[n-1].Close
		}
	}

	s.log.Info().
		Str("symbol", r.Symbol).
		Int("bars", frame.Len()).
		Str("level", string(sf.Advisory.Level)).
		Bool("determinate", sf.Advisory.Determinate).
		Msg("analysis done")
	return r, nil
}

// Backtest simulates the named policy (the configured one when empty) on symbol.
func (s *Service) Backtest(ctx context.Context, symbol, period, policyName string) (*BacktestResult, error) {
	period = s.period(period)
	if policyName == "" {
		policyName = s.settings.Strategy
	}
	policy, err := backtest.PolicyFor(policyName, s.settings.BacktestLow, s.settings.BacktestHigh)
	if err != nil {
		return nil, err
	}

	series, err := s.collector.Collect(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	// a single bar has no return to simulate
	minBars := max(2, s.settings.MinBacktestBars)
	if series.Len() < minBars {
		return nil, fmt.Errorf("%w: %s has %d bars over %s, need %d",
			ErrNotEnoughBars, series.Symbol, series.Len(), period, minBars)
	}

	frame := calculator.BuildFrame(series, s.settings.Params)
	sf, curve, summary := backtest.Run(frame, s.settings.Thresholds, policy)

	res := &BacktestResult{
		Symbol:  series.Symbol,
		Period:  period,
		Signals: sf,
		Curve:   curve,
		Summary: summary,
	}
	res.BuyHoldStats, _ = risk.Compute(afterFirst(curve.DailyReturn))
	res.StrategyStats, _ = risk.Compute(afterFirst(curve.StrategyReturn))

	s.log.Info().
		Str("symbol", res.Symbol).
		Str("policy", policy.Name()).
		Float64("buy_hold_pct", res.Summary.FinalBuyHoldPct).
		Float64("strategy_pct", res.Summary.FinalStrategyPct).
		Int("trades", res.Summary.Trades).
		Msg("backtest done")
	return res, nil
}

// afterFirst drops bar 0, which carries no return.
func afterFirst(returns []float64) []float64 {
	if len(returns) < 2 {
		return nil
	}
	return returns[1:]
}

type assetReturns struct {
	symbol    string
	benchmark bool
	byDay     map[string]float64
	stats     *model.RiskStats
}

// Compare puts the return paths of symbols, and of benchmark when set, on the
// dates every one of them traded. Values are percentages; risk statistics come
// from each asset's own daily returns.
func (s *Service) Compare(ctx context.Context, symbols []string, benchmark, period string, mode model.ReturnMode) (*model.Comparison, error) {
	period = s.period(period)
	if mode != model.ReturnCumulative && mode != model.ReturnDaily {
		return nil, fmt.Errorf("unknown return mode %q", mode)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("compare: no symbols")
	}

	var assets []assetReturns
	var times map[string]model.OHLCV
	add := func(symbol string, isBenchmark bool) error {
		series, err := s.collector.Collect(ctx, symbol, period)
		if err != nil {
			return err
		}
		closes := series.Closes()
		var values []float64
		if mode == model.ReturnCumulative {
			values = calculator.CumulativeReturnsPct(closes)
		} else {
			values = calculator.DailyReturnsPct(closes)
		}

		a := assetReturns{symbol: series.Symbol, benchmark: isBenchmark, byDay: make(map[string]float64, len(values))}
		if times == nil {
			times = make(map[string]model.OHLCV, len(values))
		}
		for i, b := range series.Bars {
			if !model.Defined(values[i]) {
				continue
			}
			key := dayKey(b)
			a.byDay[key] = values[i]
			times[key] = b
		}
		if stats, ok := risk.Compute(calculator.DailyReturns(closes)); ok {
			a.stats = &stats
		}
		assets = append(assets, a)
		return nil
	}

	for _, sym := range symbols {
		if err := add(sym, false); err != nil {
			return nil, err
		}
	}
	if benchmark = strings.TrimSpace(benchmark); benchmark != "" {
		if err := add(benchmark, true); err != nil {
			return nil, err
		}
	}

	// inner join on trading days
	var days []string
	for key := range times {
		shared := true
		for _, a := range assets {
			if _, ok := a.byDay[key]; !ok {
				shared = false
				break
			}
		}
		if shared {
			days = append(days, key)
		}
	}
	sort.Strings(days)

	cmp := &model.Comparison{Period: period, Mode: mode}
	for _, d := range days {
		cmp.Times = append(cmp.Times, times[d].Time)
	}
	for _, a := range assets {
		values := make([]float64, len(days))
		for i, d := range days {
			values[i] = a.byDay[d]
		}
		cmp.Series = append(cmp.Series, model.ComparisonSeries{
			Symbol:    a.symbol,
			Benchmark: a.benchmark,
			Values:    values,
			Stats:     a.stats,
		})
	}
	s.log.Info().Strs("symbols", symbols).Str("benchmark", benchmark).Int("days", len(days)).Msg("comparison done")
	return cmp, nil
}

func dayKey(b model.OHLCV) string {
	return b.Time.UTC().Format("2006-01-02")
}

// Watchlist quotes every symbol over the watchlist period. Symbols that fail
// to load or have fewer than two bars are skipped; the order of symbols is kept.
func (s *Service) Watchlist(ctx context.Context, symbols []string) []model.Quote {
	period := s.settings.WatchlistPeriod
	if period == "" {
		period = s.settings.Period
	}

	rows := make([]*model.Quote, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			q, err := s.quote(ctx, sym, period)
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", sym).Msg("watchlist symbol skipped")
				return
			}
			rows[i] = q
		}(i, sym)
	}
	wg.Wait()

	quotes := make([]model.Quote, 0, len(symbols))
	for _, q := range rows {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	return quotes
}

func (s *Service) quote(ctx context.Context, symbol, period string) (*model.Quote, error) {
	series, err := s.collector.Collect(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	closes := series.Closes()
	last, delta, pct, ok := calculator.PriceChange(closes)
	if !ok {
		return nil, fmt.Errorf("%w: %s has %d bars", ErrNotEnoughBars, series.Symbol, series.Len())
	}
	bar, _ := series.Last()
	q := &model.Quote{
		Symbol:    series.Symbol,
		Time:      bar.Time,
		Last:      last,
		Change:    delta,
		ChangePct: pct,
		Signal:    MoveSignal(pct),
	}
	if rsi, ok := calculator.LatestRSI(series.Bars, s.settings.Params.RSIWindow); ok {
		q.RSI = &rsi
	}
	return q, nil
}

// MoveSignal tags a daily move: a fall of at least WatchlistMoveThreshold
// percent is BUY, a rise of at least that much is SELL.
func MoveSignal(changePct float64) model.SignalLevel {
	switch {
	case changePct <= -WatchlistMoveThreshold:
		return model.LevelBuy
	case changePct >= WatchlistMoveThreshold:
		return model.LevelSell
	default:
		return model.LevelHold
	}
}
