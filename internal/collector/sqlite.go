package collector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"StockLens/internal/model"
)

// SQLiteFetcher serves daily bars from a local SQLite file. Periods are
// measured back from the newest stored bar of the symbol, so an offline
// snapshot keeps answering the same ranges.
type SQLiteFetcher struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteFetcher opens (or creates) the bar store and runs migrations.
func NewSQLiteFetcher(dbPath string, log zerolog.Logger) (*SQLiteFetcher, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	f := &SQLiteFetcher{db: db, log: log.With().Str("component", "sqlite").Logger()}
	if err := f.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	f.log.Info().Str("path", dbPath).Msg("bar store opened")
	return f, nil
}

func (f *SQLiteFetcher) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_bars (
			symbol TEXT    NOT NULL,
			day    INTEGER NOT NULL,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL,
			volume REAL,
			PRIMARY KEY (symbol, day)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_day ON daily_bars(day)`,
	}
	for _, s := range stmts {
		if _, err := f.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (f *SQLiteFetcher) Name() string { return "sqlite" }

// FetchDailyBars returns the stored bars of symbol within period, oldest first.
func (f *SQLiteFetcher) FetchDailyBars(ctx context.Context, symbol, period string) ([]model.OHLCV, error) {
	symbol = strings.ToUpper(symbol)

	var latest sql.NullInt64
	if err := f.db.QueryRowContext(ctx,
		`SELECT MAX(day) FROM daily_bars WHERE symbol = ?`, symbol).Scan(&latest); err != nil {
		return nil, fmt.Errorf("sqlite latest bar: %w", err)
	}
	if !latest.Valid {
		return nil, fmt.Errorf("sqlite: no bars stored for %s", symbol)
	}

	start, err := PeriodStart(period, time.Unix(latest.Int64, 0).UTC())
	if err != nil {
		return nil, err
	}
	from := int64(0)
	if !start.IsZero() {
		from = start.Unix()
	}

	rows, err := f.db.QueryContext(ctx, `SELECT day, open, high, low, close, volume
		FROM daily_bars WHERE symbol = ? AND day >= ? ORDER BY day`, symbol, from)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var day int64
		var b model.OHLCV
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bar: %w", err)
		}
		b.Time = time.Unix(day, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite iterate bars: %w", err)
	}
	return bars, nil
}

// SaveBars upserts bars for symbol in one transaction.
func (f *SQLiteFetcher) SaveBars(ctx context.Context, symbol string, bars []model.OHLCV) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO daily_bars
		(symbol, day, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(symbol, day) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	symbol = strings.ToUpper(symbol)
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, b.Time.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert bar: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	f.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("bars saved")
	return nil
}

func (f *SQLiteFetcher) Close() error {
	f.log.Info().Msg("closing bar store")
	return f.db.Close()
}
