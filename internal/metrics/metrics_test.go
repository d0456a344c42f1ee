package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveFetch("yahoo", 120*time.Millisecond, nil)
	m.ObserveFetch("yahoo", time.Second, errors.New("timeout"))
	m.ObserveFetch("yahoo", time.Second, nil)
	m.RecordSignal("BUY")
	m.RecordJob("watchlist", nil)
	m.TrackSymbols("aapl")
	m.SetLastClose("AAPL", 189.5)

	if got := testutil.ToFloat64(m.fetchTotal.WithLabelValues("yahoo", "ok")); got != 2 {
		t.Errorf("ok fetches: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.fetchTotal.WithLabelValues("yahoo", "error")); got != 1 {
		t.Errorf("failed fetches: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.signalsTotal.WithLabelValues("BUY")); got != 1 {
		t.Errorf("signals: got %v", got)
	}
	if got := testutil.ToFloat64(m.lastClose.WithLabelValues("AAPL")); got != 189.5 {
		t.Errorf("last close: got %v", got)
	}
}

func TestMetrics_LastCloseOnlyTracked(t *testing.T) {
	m := New()
	m.TrackSymbols("MSFT", " ")
	m.SetLastClose("msft", 410)
	m.SetLastClose("ZZZ", 1)
	m.SetLastClose("QQQ", 2)

	if n := testutil.CollectAndCount(m.lastClose); n != 1 {
		t.Errorf("expected 1 exported symbol, got %d", n)
	}
	if got := testutil.ToFloat64(m.lastClose.WithLabelValues("MSFT")); got != 410 {
		t.Errorf("last close: got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveFetch("yahoo", time.Second, nil)
	m.RecordSignal("HOLD")
	m.RecordJob("report", errors.New("x"))
	m.RecordCommand("/signal")
	m.SetLastClose("AAPL", 1)
	m.TrackSymbols("AAPL")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordCommand("/watchlist")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `stocklens_bot_commands_total{command="/watchlist"} 1`) {
		t.Errorf("command counter missing from exposition:\n%s", body)
	}
}
