package model

import "time"

// Quote is one row of the watchlist table.
type Quote struct {
	Symbol    string
	Time      time.Time
	Last      float64
	Change    float64
	ChangePct float64
	RSI       *float64 // nil while the RSI window is incomplete
	Signal    SignalLevel
}

// ReturnMode selects the return series used when comparing assets.
type ReturnMode string

const (
	ReturnCumulative ReturnMode = "cumulative"
	ReturnDaily      ReturnMode = "daily"
)

// ComparisonSeries is one asset's return path on the shared date axis, in percent.
type ComparisonSeries struct {
	Symbol    string
	Benchmark bool
	Values    []float64
	Stats     *RiskStats
}

// Comparison aligns several assets on the dates they all traded.
type Comparison struct {
	Period string
	Mode   ReturnMode
	Times  []time.Time
	Series []ComparisonSeries
}
