package scheduler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"StockLens/internal/analysis"
	"StockLens/internal/calculator"
	"StockLens/internal/collector"
	"StockLens/internal/metrics"
	"StockLens/internal/strategy"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func newScheduler(t *testing.T, fetcher collector.Fetcher) (*Scheduler, *fakeSender, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	settings := analysis.Settings{
		Period:          "1y",
		Params:          calculator.DefaultParams(),
		Thresholds:      strategy.DefaultThresholds(),
		BacktestLow:     30,
		BacktestHigh:    70,
		Strategy:        "rsi",
		MinBacktestBars: 30,
		WatchlistPeriod: "1mo",
		Benchmarks:      map[string]string{"^GSPC": "S&P 500"},
	}
	svc := analysis.NewService(collector.NewCollector(fetcher, m, zerolog.Nop()), settings, m, zerolog.Nop())
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), svc, sender, m, zerolog.Nop(), []string{"AAPL", "MSFT"}, " aapl ")
	s.now = func() time.Time { return time.Date(2024, 12, 31, 16, 30, 0, 0, time.UTC) }
	return s, sender, m
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newScheduler(t, &collector.MockFetcher{Price: 100})
	if err := s.RegisterAll("0 30 16 * * 1-5", "0 0 17 * * 1-5"); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Cron.Entries()); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}

	bad, _, _ := newScheduler(t, &collector.MockFetcher{Price: 100})
	if err := bad.RegisterAll("every morning", "0 0 17 * * 1-5"); err == nil {
		t.Error("expected an error for an invalid cron spec")
	}
}

func TestRunReportNow(t *testing.T) {
	s, sender, m := newScheduler(t, &collector.MockFetcher{Price: 150})
	if err := s.RunReportNow(); err != nil {
		t.Fatal(err)
	}
	if len(sender.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.msgs))
	}
	if !strings.Contains(sender.msgs[0], "<b>AAPL</b>") || !strings.Contains(sender.msgs[0], "Backtest AAPL") {
		t.Errorf("report must carry the analysis and the backtest:\n%s", sender.msgs[0])
	}
	if body := scrape(t, m); !strings.Contains(body, `stocklens_job_runs_total{job="report",status="ok"} 1`) {
		t.Errorf("job run not recorded:\n%s", body)
	}
}

func TestRunReportNow_FetchError(t *testing.T) {
	s, sender, m := newScheduler(t, &collector.MockFetcher{Err: errors.New("upstream down")})
	if err := s.RunReportNow(); err == nil {
		t.Fatal("expected the job to fail")
	}
	if len(sender.msgs) != 1 || !strings.Contains(sender.msgs[0], "report job failed") {
		t.Errorf("expected a failure notice, got %v", sender.msgs)
	}
	if body := scrape(t, m); !strings.Contains(body, `stocklens_job_runs_total{job="report",status="error"} 1`) {
		t.Errorf("failed run not recorded:\n%s", body)
	}
}

func TestWatchlistTask(t *testing.T) {
	s, sender, _ := newScheduler(t, &collector.MockFetcher{Price: 100})
	if err := s.run("watchlist", s.watchlistTask); err != nil {
		t.Fatal(err)
	}
	if len(sender.msgs) != 1 || !strings.Contains(sender.msgs[0], "MSFT") || !strings.Contains(sender.msgs[0], "2024-12-31 16:30") {
		t.Errorf("unexpected watchlist message %v", sender.msgs)
	}

	empty, sender2, _ := newScheduler(t, &collector.MockFetcher{Err: errors.New("offline")})
	if err := empty.run("watchlist", empty.watchlistTask); err == nil {
		t.Error("an empty watchlist must fail the job")
	}
	if len(sender2.msgs) != 1 || !strings.Contains(sender2.msgs[0], "❌") {
		t.Errorf("expected a failure notice, got %v", sender2.msgs)
	}
}

func TestSplitCompareArgs(t *testing.T) {
	symbols, bench := splitCompareArgs([]string{"AAPL,MSFT", "NVDA"})
	if strings.Join(symbols, " ") != "AAPL MSFT NVDA" || bench != "^GSPC" {
		t.Errorf("got %v %s", symbols, bench)
	}
	if _, bench := splitCompareArgs([]string{"AAPL", "^dji"}); bench != "^DJI" {
		t.Errorf("expected ^DJI, got %s", bench)
	}
}

func TestHandleCommand(t *testing.T) {
	s, _, m := newScheduler(t, &collector.MockFetcher{Price: 100})
	ctx := context.Background()

	tests := []struct {
		command string
		want    string
	}{
		{"/signal nvda", "<b>NVDA</b>"},
		{"/signal@StockLensBot tsla 6mo", "<b>TSLA</b> | 6mo"},
		{"/signal", "Usage: /signal"},
		{"/backtest msft rsi_macd", "Backtest MSFT</b> | rsi_macd | 1y"},
		{"/backtest msft martingale", "❌ backtest failed"},
		{"/compare AAPL,MSFT", "S&amp;P 500 (benchmark)"},
		{"/compare AAPL msft ^ixic", "<b>MSFT</b>"},
		{"/compare AAPL msft ^ixic", "^IXIC (benchmark)"},
		{"/compare ^DJI", "Usage: /compare"},
		{"/watchlist", "Watchlist"},
		{"/strategies", "rsi, rsi_macd"},
		{"/signal aapl 3w", "❌ signal failed"},
		{"hello", "Commands:"},
		{"", "Commands:"},
	}
	for _, tt := range tests {
		if got := s.HandleCommand(ctx, tt.command); !strings.Contains(got, tt.want) {
			t.Errorf("HandleCommand(%q) missing %q:\n%s", tt.command, tt.want, got)
		}
	}

	body := scrape(t, m)
	for _, want := range []string{
		`stocklens_bot_commands_total{command="/signal"} 4`,
		`stocklens_bot_commands_total{command="other"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %s in\n%s", want, body)
		}
	}
}
