package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	lastClose     *prometheus.GaugeVec
	signalsTotal  *prometheus.CounterVec
	jobRuns       *prometheus.CounterVec
	commandsTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer

	mu      sync.RWMutex
	tracked map[string]struct{}
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocklens_fetch_total",
			Help: "Price series fetches by data source and outcome",
		}, []string{"source", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stocklens_fetch_duration_seconds",
			Help:    "Price series fetch latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		lastClose: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stocklens_last_close",
			Help: "Most recent close seen for a symbol",
		}, []string{"symbol"}),
		signalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocklens_signals_total",
			Help: "Composite advisories produced, by level",
		}, []string{"level"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocklens_job_runs_total",
			Help: "Scheduled job runs by job and outcome",
		}, []string{"job", "status"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stocklens_bot_commands_total",
			Help: "Bot commands handled",
		}, []string{"command"}),
		gatherer: reg,
		tracked:  make(map[string]struct{}),
	}
	reg.MustRegister(
		m.fetchTotal,
		m.fetchDuration,
		m.lastClose,
		m.signalsTotal,
		m.jobRuns,
		m.commandsTotal,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch attempt.
func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(source, status(err)).Inc()
	m.fetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// TrackSymbols adds symbols to the set exported by the last close gauge.
// Closes of other symbols, such as ad-hoc bot queries, are dropped so the
// label set stays bounded.
func (m *Metrics) TrackSymbols(symbols ...string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			m.tracked[s] = struct{}{}
		}
	}
}

// SetLastClose records the latest close of a tracked symbol.
func (m *Metrics) SetLastClose(symbol string, close float64) {
	if m == nil {
		return
	}
	symbol = strings.ToUpper(symbol)
	m.mu.RLock()
	_, ok := m.tracked[symbol]
	m.mu.RUnlock()
	if !ok {
		return
	}
	m.lastClose.WithLabelValues(symbol).Set(close)
}

// RecordSignal counts a composite advisory.
func (m *Metrics) RecordSignal(level string) {
	if m == nil {
		return
	}
	m.signalsTotal.WithLabelValues(level).Inc()
}

// RecordJob counts a scheduled job run.
func (m *Metrics) RecordJob(job string, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, status(err)).Inc()
}

// RecordCommand counts a handled bot command.
func (m *Metrics) RecordCommand(command string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
