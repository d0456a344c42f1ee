package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"StockLens/internal/analysis"
	"StockLens/internal/backtest"
	"StockLens/internal/metrics"
	"StockLens/internal/model"
	"StockLens/internal/notifier"
)

// Sender delivers formatted messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

const (
	sendRetries      = 3
	defaultBenchmark = "^GSPC"
)

// Scheduler manages all cron tasks and bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Service   *analysis.Service
	Notifier  Sender
	Metrics   *metrics.Metrics
	Log       zerolog.Logger
	Ctx       context.Context
	Watchlist []string
	Symbol    string // subject of the scheduled report

	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, svc *analysis.Service, sender Sender, m *metrics.Metrics, log zerolog.Logger, watchlist []string, symbol string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Service:   svc,
		Notifier:  sender,
		Metrics:   m,
		Log:       log.With().Str("component", "scheduler").Logger(),
		Ctx:       ctx,
		Watchlist: watchlist,
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		now:       time.Now,
	}
}

// RegisterAll registers the watchlist snapshot and the daily report.
func (s *Scheduler) RegisterAll(watchlistCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(watchlistCron, func() { s.run("watchlist", s.watchlistTask) }); err != nil {
		return fmt.Errorf("register watchlist task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, func() { s.run("report", s.reportTask) }); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info().Msg("scheduler stopped")
}

// RunReportNow executes the report task immediately (RUN_ON_START).
func (s *Scheduler) RunReportNow() error {
	return s.run("report", s.reportTask)
}

// run tags one job execution with a run id and records its outcome.
func (s *Scheduler) run(job string, task func(ctx context.Context, log zerolog.Logger) error) error {
	runID := uuid.NewString()
	log := s.Log.With().Str("job", job).Str("run_id", runID).Logger()
	start := time.Now()
	log.Info().Msg("job started")

	err := task(s.Ctx, log)
	s.Metrics.RecordJob(job, err)
	if err != nil {
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("job failed")
		s.trySend(log, notifier.FormatError(job+" job", err))
		return err
	}
	log.Info().Dur("took", time.Since(start)).Msg("job finished")
	return nil
}

func (s *Scheduler) watchlistTask(ctx context.Context, log zerolog.Logger) error {
	quotes := s.Service.Watchlist(ctx, s.Watchlist)
	if len(quotes) == 0 {
		return fmt.Errorf("no quotes for %d watchlist symbols", len(s.Watchlist))
	}
	log.Info().Int("quotes", len(quotes)).Msg("watchlist collected")
	s.trySend(log, notifier.FormatWatchlist(quotes, s.now()))
	return nil
}

func (s *Scheduler) reportTask(ctx context.Context, log zerolog.Logger) error {
	report, err := s.Service.Analyze(ctx, s.Symbol, "")
	if err != nil {
		return fmt.Errorf("analyze %s: %w", s.Symbol, err)
	}
	msg := notifier.FormatAnalysis(report)

	// a short history still gets the analysis
	res, err := s.Service.Backtest(ctx, s.Symbol, "", "")
	switch {
	case err == nil:
		msg += "\n" + notifier.FormatBacktest(res)
	default:
		log.Warn().Err(err).Msg("backtest skipped")
	}
	s.trySend(log, msg)
	return nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	name := strings.ToLower(fields[0])
	// "/signal@MyBot" in group chats
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	args := fields[1:]
	if knownCommands[name] {
		s.Metrics.RecordCommand(name)
	} else {
		s.Metrics.RecordCommand("other")
	}

	switch name {
	case "/signal":
		if len(args) < 1 {
			return "Usage: /signal SYMBOL [PERIOD]"
		}
		report, err := s.Service.Analyze(ctx, args[0], optional(args, 1))
		if err != nil {
			return notifier.FormatError("signal", err)
		}
		return notifier.FormatAnalysis(report)
	case "/backtest":
		if len(args) < 1 {
			return "Usage: /backtest SYMBOL [rsi|rsi_macd] [PERIOD]"
		}
		res, err := s.Service.Backtest(ctx, args[0], optional(args, 2), optional(args, 1))
		if err != nil {
			return notifier.FormatError("backtest", err)
		}
		return notifier.FormatBacktest(res)
	case "/compare":
		symbols, benchmark := splitCompareArgs(args)
		if len(symbols) == 0 {
			return "Usage: /compare SYMBOL [SYMBOL...] [^BENCHMARK]"
		}
		cmp, err := s.Service.Compare(ctx, symbols, benchmark, "", model.ReturnCumulative)
		if err != nil {
			return notifier.FormatError("compare", err)
		}
		return notifier.FormatComparison(cmp, s.Service.Settings().Benchmarks)
	case "/watchlist":
		return notifier.FormatWatchlist(s.Service.Watchlist(ctx, s.Watchlist), s.now())
	case "/strategies":
		return "Backtest strategies: " + strings.Join(backtest.PolicyNames(), ", ")
	default:
		return helpText
	}
}

var knownCommands = map[string]bool{
	"/signal": true, "/backtest": true, "/compare": true, "/watchlist": true, "/strategies": true, "/help": true,
}

const helpText = `Commands:
• /signal SYMBOL [PERIOD]
• /backtest SYMBOL [rsi|rsi_macd] [PERIOD]
• /compare SYMBOL [SYMBOL...] [^BENCHMARK]
• /watchlist
• /strategies
• /help`

// splitCompareArgs separates index tickers (^GSPC) from the compared symbols.
// Commas also separate symbols. The benchmark defaults to ^GSPC.
func splitCompareArgs(args []string) (symbols []string, benchmark string) {
	benchmark = defaultBenchmark
	for _, arg := range args {
		for _, sym := range strings.Split(arg, ",") {
			switch {
			case sym == "":
			case strings.HasPrefix(sym, "^"):
				benchmark = strings.ToUpper(sym)
			default:
				symbols = append(symbols, sym)
			}
		}
	}
	return symbols, benchmark
}

func optional(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func (s *Scheduler) trySend(log zerolog.Logger, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
