package notifier

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"StockLens/internal/analysis"
	"StockLens/internal/model"
)

const dateLayout = "2006-01-02"

func num(v float64, format string) string {
	if !model.Defined(v) {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

func sharpe(s *float64) string {
	if s == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", *s)
}

// FormatAnalysis formats a single-symbol report into a Telegram message.
func FormatAnalysis(r *analysis.Report) string {
	var b strings.Builder
	adv := r.Signals.Advisory

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", html.EscapeString(r.Symbol), r.Period))
	if r.HasChange {
		b.WriteString(fmt.Sprintf("Price: %.2f (%+.2f, %+.2f%%)\n", r.Last, r.Change, r.ChangePct))
	} else {
		b.WriteString(fmt.Sprintf("Price: %s\n", num(r.Last, "%.2f")))
	}
	if r.HasRange {
		b.WriteString(fmt.Sprintf("Range (%d bars): %.2f - %.2f, %s%% from high\n",
			r.Range.Bars, r.Range.Low, r.Range.High, num(r.Range.FromHighPct(r.Last), "%+.1f")))
	}
	b.WriteString(fmt.Sprintf("SMA(%d): %s\n", r.Signals.SMAWindow, num(r.SMA, "%.2f")))
	b.WriteString(fmt.Sprintf("RSI(%d): %s\n", r.Signals.RSIWindow, num(r.RSI, "%.1f")))
	b.WriteString(fmt.Sprintf("MACD: DIF %s | DEA %s\n\n", num(r.DIF, "%.3f"), num(r.DEA, "%.3f")))

	b.WriteString(fmt.Sprintf("%s <b>%s</b>\n", adv.Icon, adv.Level))
	b.WriteString(html.EscapeString(adv.Reason))
	b.WriteString("\n")
	return b.String()
}

// FormatBacktest formats a backtest result with both curves' risk statistics.
func FormatBacktest(res *analysis.BacktestResult) string {
	var b strings.Builder
	s := res.Summary

	b.WriteString(fmt.Sprintf("🧪 <b>Backtest %s</b> | %s | %s\n", html.EscapeString(res.Symbol), s.Strategy, res.Period))
	if n := res.Curve.Len(); n > 0 {
		b.WriteString(fmt.Sprintf("%s → %s, %d bars\n",
			res.Curve.Times[0].Format(dateLayout), res.Curve.Times[n-1].Format(dateLayout), n))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Buy &amp; hold: %+.2f%% (max DD %.2f%%)\n", s.FinalBuyHoldPct, s.BuyHoldMaxDrawdown*100))
	b.WriteString(fmt.Sprintf("Strategy:     %+.2f%% (max DD %.2f%%)\n", s.FinalStrategyPct, s.StrategyMaxDrawdown*100))
	b.WriteString(fmt.Sprintf("Trades: %d | Exposure: %.0f%%\n\n", s.Trades, s.Exposure*100))

	b.WriteString("<b>Risk</b>\n")
	writeRisk(&b, "Buy &amp; hold", res.BuyHoldStats)
	writeRisk(&b, "Strategy", res.StrategyStats)
	return b.String()
}

func writeRisk(b *strings.Builder, label string, st model.RiskStats) {
	b.WriteString(fmt.Sprintf("  %s: vol %.2f%% | Sharpe %s | max DD %.2f%%\n",
		label, st.AnnualizedVolatility*100, sharpe(st.SharpeRatio), st.MaxDrawdown*100))
}

// FormatComparison formats the latest aligned values and risk statistics of a
// comparison. names maps benchmark tickers to display names.
func FormatComparison(cmp *model.Comparison, names map[string]string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚖️ <b>Comparison</b> | %s | %s returns\n", cmp.Period, cmp.Mode))
	if len(cmp.Times) == 0 {
		b.WriteString("\nNo trading days shared by every asset.\n")
		return b.String()
	}
	last := len(cmp.Times) - 1
	b.WriteString(fmt.Sprintf("%s → %s, %d days\n\n",
		cmp.Times[0].Format(dateLayout), cmp.Times[last].Format(dateLayout), len(cmp.Times)))

	for _, s := range cmp.Series {
		label := html.EscapeString(s.Symbol)
		if s.Benchmark {
			if name, ok := names[s.Symbol]; ok {
				label = html.EscapeString(name)
			}
			label += " (benchmark)"
		}
		b.WriteString(fmt.Sprintf("<b>%s</b>: %s%%\n", label, num(s.Values[last], "%+.2f")))
		if s.Stats != nil {
			b.WriteString(fmt.Sprintf("  total %+.2f%% | vol %.2f%% | Sharpe %s | max DD %.2f%%\n",
				s.Stats.FinalReturn*100, s.Stats.AnnualizedVolatility*100, sharpe(s.Stats.SharpeRatio), s.Stats.MaxDrawdown*100))
		}
	}
	return b.String()
}

// FormatWatchlist formats the watchlist table.
func FormatWatchlist(quotes []model.Quote, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("👀 <b>Watchlist</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	if len(quotes) == 0 {
		b.WriteString("No quotes available.\n")
		return b.String()
	}
	b.WriteString("<pre>")
	b.WriteString(fmt.Sprintf("%-7s %10s %8s %6s %s\n", "Symbol", "Last", "Chg%", "RSI", "Signal"))
	for _, q := range quotes {
		rsi := "n/a"
		if q.RSI != nil {
			rsi = fmt.Sprintf("%.1f", *q.RSI)
		}
		b.WriteString(fmt.Sprintf("%-7s %10.2f %+7.2f%% %6s %s\n",
			html.EscapeString(q.Symbol), q.Last, q.ChangePct, rsi, q.Signal))
	}
	b.WriteString("</pre>")
	return b.String()
}

// FormatError formats a failed command or job.
func FormatError(what string, err error) string {
	return fmt.Sprintf("❌ %s failed: %s", what, html.EscapeString(err.Error()))
}

var tagPattern = regexp.MustCompile(`</?[a-z]+>`)

// PlainText strips the Telegram HTML markup for terminal output.
func PlainText(msg string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(msg, ""))
}
