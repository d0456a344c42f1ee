package model

import "time"

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the bars of one symbol, sorted strictly ascending by Time.
// Missing sessions are simply absent.
type PriceSeries struct {
	Symbol    string
	Bars      []OHLCV
	FetchedAt time.Time
}

// Len returns the number of bars; a nil series has none.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes extracts the close column.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i := range closes {
		closes[i] = s.Bars[i].Close
	}
	return closes
}

// Times extracts the timestamp column.
func (s *PriceSeries) Times() []time.Time {
	times := make([]time.Time, s.Len())
	for i := range times {
		times[i] = s.Bars[i].Time
	}
	return times
}

// Last returns the most recent bar.
func (s *PriceSeries) Last() (OHLCV, bool) {
	if s.Len() == 0 {
		return OHLCV{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
