package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"StockLens/internal/analysis"
	"StockLens/internal/collector"
	"StockLens/internal/config"
	"StockLens/internal/logger"
	"StockLens/internal/metrics"
	"StockLens/internal/model"
	"StockLens/internal/notifier"
	"StockLens/internal/scheduler"
)

type options struct {
	configPath string
	mode       string
	symbol     string
	symbols    string
	benchmark  string
	period     string
	strategy   string
	returns    string
	send       bool
}

func parseFlags() options {
	var o options
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	flag.StringVar(&o.configPath, "config", defaultConfig, "path to the YAML config")
	flag.StringVar(&o.mode, "mode", "analyze", "analyze, backtest, compare, watchlist, serve or sync")
	flag.StringVar(&o.symbol, "symbol", "AAPL", "ticker for analyze and backtest")
	flag.StringVar(&o.symbols, "symbols", "", "comma separated tickers for compare, watchlist and sync")
	flag.StringVar(&o.benchmark, "benchmark", "", "benchmark ticker for compare, e.g. ^GSPC")
	flag.StringVar(&o.period, "period", "", "lookback period (1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, max)")
	flag.StringVar(&o.strategy, "strategy", "", "backtest strategy: rsi or rsi_macd")
	flag.StringVar(&o.returns, "return", string(model.ReturnCumulative), "compare return mode: cumulative or daily")
	flag.BoolVar(&o.send, "send", false, "also deliver the report through Telegram")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, log); err != nil {
		log.Error().Err(err).Str("mode", opts.mode).Msg("stocklens failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, log zerolog.Logger) error {
	if opts.mode == "sync" {
		return runSync(ctx, cfg, opts, log)
	}

	m := metrics.New()
	m.TrackSymbols(cfg.Watchlist.Symbols...)
	m.TrackSymbols(cfg.Schedule.Symbol)

	fetcher, closeFetcher, err := newFetcher(cfg, log)
	if err != nil {
		return err
	}
	defer closeFetcher()
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")

	svc := analysis.NewService(collector.NewCollector(fetcher, m, log), analysis.SettingsFromConfig(cfg), m, log)

	var msg string
	switch opts.mode {
	case "analyze":
		r, err := svc.Analyze(ctx, opts.symbol, opts.period)
		if err != nil {
			return err
		}
		msg = notifier.FormatAnalysis(r)
	case "backtest":
		res, err := svc.Backtest(ctx, opts.symbol, opts.period, opts.strategy)
		if err != nil {
			return err
		}
		msg = notifier.FormatBacktest(res)
	case "compare":
		symbols := splitList(opts.symbols)
		if len(symbols) == 0 {
			symbols = []string{opts.symbol}
		}
		cmp, err := svc.Compare(ctx, symbols, opts.benchmark, opts.period, model.ReturnMode(opts.returns))
		if err != nil {
			return err
		}
		msg = notifier.FormatComparison(cmp, cfg.Benchmarks)
	case "watchlist":
		symbols := splitList(opts.symbols)
		if len(symbols) == 0 {
			symbols = cfg.Watchlist.Symbols
		}
		msg = notifier.FormatWatchlist(svc.Watchlist(ctx, symbols), time.Now())
	case "serve":
		return serve(ctx, cfg, svc, m, log)
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}

	fmt.Println(notifier.PlainText(msg))
	if opts.send {
		if err := cfg.ValidateTelegram(); err != nil {
			return err
		}
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, log)
		return tn.SendWithRetry(ctx, msg, 3)
	}
	return nil
}

func newFetcher(cfg *config.Config, log zerolog.Logger) (collector.Fetcher, func(), error) {
	switch cfg.DataSource.Kind {
	case "mock":
		return &collector.MockFetcher{Price: 100}, func() {}, nil
	case "sqlite":
		store, err := collector.NewSQLiteFetcher(cfg.DataSource.SQLitePath, log)
		if err != nil {
			return nil, nil, fmt.Errorf("open bar store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("close bar store")
			}
		}, nil
	default:
		return collector.NewYahooFetcher(cfg.DataSource.Proxy, log), func() {}, nil
	}
}

// runSync downloads bars from Yahoo into the SQLite bar store.
func runSync(ctx context.Context, cfg *config.Config, opts options, log zerolog.Logger) error {
	if dir := filepath.Dir(cfg.DataSource.SQLitePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	store, err := collector.NewSQLiteFetcher(cfg.DataSource.SQLitePath, log)
	if err != nil {
		return fmt.Errorf("open bar store: %w", err)
	}
	defer store.Close()

	period := opts.period
	if period == "" {
		period = cfg.Analysis.Period
	}
	symbols := splitList(opts.symbols)
	if len(symbols) == 0 {
		symbols = cfg.Watchlist.Symbols
	}

	yahoo := collector.NewYahooFetcher(cfg.DataSource.Proxy, log)
	var failed []string
	for _, sym := range symbols {
		bars, err := yahoo.FetchDailyBars(ctx, sym, period)
		if err == nil {
			err = store.SaveBars(ctx, sym, collector.Normalize(bars))
		}
		if err != nil {
			log.Error().Err(err).Str("symbol", sym).Msg("sync failed")
			failed = append(failed, sym)
			continue
		}
		log.Info().Str("symbol", sym).Int("bars", len(bars)).Msg("synced")
	}
	if len(failed) > 0 {
		return fmt.Errorf("sync failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, svc *analysis.Service, m *metrics.Metrics, log zerolog.Logger) error {
	if err := cfg.ValidateTelegram(); err != nil {
		return err
	}
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, log)

	sched := scheduler.NewScheduler(ctx, svc, tn, m, log, cfg.Watchlist.Symbols, cfg.Schedule.Symbol)
	if err := sched.RegisterAll(cfg.Schedule.WatchlistCron, cfg.Schedule.ReportCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		srv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server listening")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running the report now")
		go sched.RunReportNow()
	}

	log.Info().Msg("stocklens is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
