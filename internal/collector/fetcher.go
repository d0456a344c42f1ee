package collector

import (
	"context"

	"StockLens/internal/model"
)

// Fetcher defines the interface for fetching daily price bars.
// period is a Yahoo-style range such as "6mo", "1y" or "5y".
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol, period string) ([]model.OHLCV, error)
	Name() string
}
