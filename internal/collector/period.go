package collector

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPeriod is returned for ranges outside Periods.
var ErrInvalidPeriod = errors.New("invalid period")

// Periods maps the supported ranges to their calendar length in days.
// "max" has no bound.
var Periods = map[string]int{
	"1mo": 30,
	"3mo": 91,
	"6mo": 182,
	"1y":  365,
	"2y":  730,
	"5y":  1826,
	"10y": 3652,
	"max": 0,
}

// ValidatePeriod reports whether period is supported.
func ValidatePeriod(period string) error {
	if _, ok := Periods[period]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return nil
}

// PeriodStart returns the first instant covered by period when it ends at end.
// The zero time means unbounded.
func PeriodStart(period string, end time.Time) (time.Time, error) {
	days, ok := Periods[period]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	if days == 0 {
		return time.Time{}, nil
	}
	return end.AddDate(0, 0, -days), nil
}
