package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"StockLens/internal/analysis"
	"StockLens/internal/calculator"
	"StockLens/internal/model"
)

func newTestNotifier(url string) *TelegramNotifier {
	tn := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	tn.BaseURL = url
	tn.PollInterval = 10 * time.Millisecond
	return tn
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	if err := newTestNotifier(srv.URL).Send(context.Background(), "<b>hi</b>"); err != nil {
		t.Fatal(err)
	}
	if got["chat_id"] != "42" || got["text"] != "<b>hi</b>" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	if err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "x", 2); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "x", 0)
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Errorf("expected the API status in the error, got %v", err)
	}
}

func TestSendWithRetry_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	tn := newTestNotifier(srv.URL)
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	if err := tn.SendWithRetry(ctx, "x", 5); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStartPolling(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []string
		replies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			offsets = append(offsets, r.URL.Query().Get("offset"))
			if len(offsets) == 1 {
				fmt.Fprint(w, `{"ok":true,"result":[
					{"update_id":7,"message":{"text":" /signal aapl "}},
					{"update_id":8},
					{"update_id":9,"message":{"text":"/quiet"}}]}`)
				return
			}
			fmt.Fprint(w, `{"ok":true,"result":[]}`)
		case "/botTOKEN/sendMessage":
			var p map[string]string
			_ = json.NewDecoder(r.Body).Decode(&p)
			replies = append(replies, p["text"])
			fmt.Fprint(w, `{"ok":true}`)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var seen []string
	handler := func(_ context.Context, cmd string) string {
		seen = append(seen, cmd)
		if cmd == "/quiet" {
			return ""
		}
		return "reply:" + cmd
	}
	go func() {
		newTestNotifier(srv.URL).StartPolling(ctx, handler)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(offsets)
		mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(offsets) < 2 || offsets[0] != "0" || offsets[1] != "10" {
		t.Fatalf("unexpected offsets %v", offsets)
	}
	if len(seen) != 2 || seen[0] != "/signal aapl" {
		t.Errorf("unexpected commands %v", seen)
	}
	if len(replies) != 1 || replies[0] != "reply:/signal aapl" {
		t.Errorf("unexpected replies %v", replies)
	}
}

func TestFormatAnalysis(t *testing.T) {
	frame := &model.IndicatorFrame{Series: &model.PriceSeries{Symbol: "AAPL"}, SMAWindow: 50, RSIWindow: 14}
	r := &analysis.Report{
		Symbol: "AAPL", Period: "1y", HasChange: true,
		Last: 190.5, Change: 2.5, ChangePct: 1.33,
		SMA: math.NaN(), RSI: 28.4, DIF: 0.5, DEA: 0.25,
		Range: calculator.Range{High: 210, Low: 150, Bars: 252}, HasRange: true,
		Signals: &model.SignalFrame{
			IndicatorFrame: frame,
			Advisory: model.Advisory{
				Level: model.LevelBuy, Icon: "🟣", Determinate: true,
				Reason: "RSI < 30 (oversold) + MACD golden cross (DIF > DEA)",
			},
		},
	}
	out := FormatAnalysis(r)
	for _, want := range []string{"<b>AAPL</b>", "190.50 (+2.50, +1.33%)", "Range (252 bars): 150.00 - 210.00, -9.3% from high", "SMA(50): n/a", "RSI(14): 28.4", "🟣 <b>BUY</b>", "RSI &lt; 30", "DIF &gt; DEA"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}

func TestFormatBacktest(t *testing.T) {
	sh := 1.234
	d0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	res := &analysis.BacktestResult{
		Symbol: "MSFT", Period: "2y",
		Curve: &model.EquityCurve{
			Times:    []time.Time{d0, d0.AddDate(0, 0, 1)},
			BuyHold:  []float64{1, 1.1},
			Strategy: []float64{1, 1},
		},
		Summary: model.BacktestSummary{
			Strategy: "rsi", Bars: 2, FinalBuyHoldPct: 10, Trades: 1, Exposure: 0.5,
			BuyHoldMaxDrawdown: -0.05,
		},
		BuyHoldStats:  model.RiskStats{SharpeRatio: &sh, AnnualizedVolatility: 0.2},
		StrategyStats: model.RiskStats{},
	}
	out := FormatBacktest(res)
	for _, want := range []string{"Backtest MSFT", "2024-01-02 → 2024-01-03, 2 bars", "+10.00% (max DD -5.00%)", "Sharpe 1.23", "Sharpe n/a", "Exposure: 50%"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}

func TestFormatComparison(t *testing.T) {
	d0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cmp := &model.Comparison{
		Period: "6mo", Mode: model.ReturnCumulative,
		Times: []time.Time{d0, d0.AddDate(0, 0, 3)},
		Series: []model.ComparisonSeries{
			{Symbol: "AAPL", Values: []float64{0, 4.5}, Stats: &model.RiskStats{FinalReturn: 0.045}},
			{Symbol: "^GSPC", Benchmark: true, Values: []float64{0, 1}},
		},
	}
	out := FormatComparison(cmp, map[string]string{"^GSPC": "S&P 500"})
	for _, want := range []string{"<b>AAPL</b>: +4.50%", "S&amp;P 500 (benchmark)", "total +4.50%", "2 days"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}

	empty := FormatComparison(&model.Comparison{Period: "1mo", Mode: model.ReturnDaily}, nil)
	if !strings.Contains(empty, "No trading days") {
		t.Errorf("unexpected output for an empty comparison: %s", empty)
	}
}

func TestFormatWatchlist(t *testing.T) {
	rsi := 71.26
	out := FormatWatchlist([]model.Quote{
		{Symbol: "NVDA", Last: 120, ChangePct: 3.1, RSI: &rsi, Signal: model.LevelSell},
		{Symbol: "TSLA", Last: 200, ChangePct: -0.5, Signal: model.LevelHold},
	}, time.Date(2024, 5, 6, 16, 30, 0, 0, time.UTC))
	for _, want := range []string{"2024-05-06 16:30", "NVDA", "+3.10%", "71.3", "SELL", "n/a"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
	if !strings.Contains(FormatWatchlist(nil, time.Now()), "No quotes") {
		t.Error("expected a placeholder for an empty watchlist")
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText("📊 <b>S&amp;P</b>\n<pre>RSI &lt; 30</pre>")
	if got != "📊 S&P\nRSI < 30" {
		t.Errorf("unexpected plain text %q", got)
	}
}
