package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StockLens/internal/collector"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Analysis holds the indicator, signal and backtest parameters. The composite
// advisory bands and the backtest thresholds are independent groups.
type Analysis struct {
	Period        string  `yaml:"period"`
	SMAWindow     int     `yaml:"sma_window"`
	RSIWindow     int     `yaml:"rsi_window"`
	RSIStrongLow  float64 `yaml:"rsi_strong_low"`
	RSIOversold   float64 `yaml:"rsi_oversold"`
	RSIOverbought float64 `yaml:"rsi_overbought"`
	RSIStrongHigh float64 `yaml:"rsi_strong_high"`

	BacktestRSILow  float64 `yaml:"backtest_rsi_low"`
	BacktestRSIHigh float64 `yaml:"backtest_rsi_high"`

	MACDFast        int     `yaml:"macd_fast"`
	MACDSlow        int     `yaml:"macd_slow"`
	MACDSignal      int     `yaml:"macd_signal"`
	Strategy        string  `yaml:"strategy"`
	MinBacktestBars int     `yaml:"min_backtest_bars"`
}

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	DataSource struct {
		Kind       string `yaml:"kind"` // yahoo, sqlite or mock
		SQLitePath string `yaml:"sqlite_path"`
		Proxy      string `yaml:"proxy"`
	} `yaml:"data_source"`
	Analysis  Analysis `yaml:"analysis"`
	Watchlist struct {
		Symbols []string `yaml:"symbols"`
		Period  string   `yaml:"period"`
	} `yaml:"watchlist"`
	Benchmarks map[string]string `yaml:"benchmarks"` // ticker -> display name
	Schedule   struct {
		WatchlistCron string `yaml:"watchlist_cron"`
		ReportCron    string `yaml:"report_cron"`
		Symbol        string `yaml:"symbol"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// Load reads an optional .env file, the YAML config, then applies
// environment variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.DataSource.Proxy = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.DataSource.Kind = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.DataSource.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("STRATEGY"); v != "" {
		cfg.Analysis.Strategy = v
	}
	if v := os.Getenv("RSI_LOW"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.BacktestRSILow = f
		}
	}
	if v := os.Getenv("RSI_HIGH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.BacktestRSIHigh = f
		}
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Watchlist.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("CRON_WATCHLIST"); v != "" {
		cfg.Schedule.WatchlistCron = v
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		cfg.Schedule.ReportCron = v
	}
	if v := os.Getenv("REPORT_SYMBOL"); v != "" {
		cfg.Schedule.Symbol = v
	}
}

func splitSymbols(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.DataSource.Kind == "" {
		cfg.DataSource.Kind = "yahoo"
	}
	if cfg.DataSource.SQLitePath == "" {
		cfg.DataSource.SQLitePath = "data/stocklens.db"
	}

	a := &cfg.Analysis
	if a.Period == "" {
		a.Period = "1y"
	}
	if a.SMAWindow == 0 {
		a.SMAWindow = 50
	}
	if a.RSIWindow == 0 {
		a.RSIWindow = 14
	}
	if a.RSIStrongLow == 0 {
		a.RSIStrongLow = 25
	}
	if a.RSIOversold == 0 {
		a.RSIOversold = 30
	}
	if a.RSIOverbought == 0 {
		a.RSIOverbought = 70
	}
	if a.RSIStrongHigh == 0 {
		a.RSIStrongHigh = 75
	}
	if a.BacktestRSILow == 0 {
		a.BacktestRSILow = 30
	}
	if a.BacktestRSIHigh == 0 {
		a.BacktestRSIHigh = 70
	}
	if a.MACDFast == 0 {
		a.MACDFast = 12
	}
	if a.MACDSlow == 0 {
		a.MACDSlow = 26
	}
	if a.MACDSignal == 0 {
		a.MACDSignal = 9
	}
	if a.Strategy == "" {
		a.Strategy = "rsi"
	}
	if a.MinBacktestBars == 0 {
		a.MinBacktestBars = 30
	}

	if len(cfg.Watchlist.Symbols) == 0 {
		cfg.Watchlist.Symbols = []string{"AAPL", "MSFT", "NVDA", "TSLA", "AMZN", "GOOGL", "META"}
	}
	if cfg.Watchlist.Period == "" {
		cfg.Watchlist.Period = "1mo"
	}
	if len(cfg.Benchmarks) == 0 {
		cfg.Benchmarks = map[string]string{
			"^GSPC": "S&P 500",
			"^IXIC": "NASDAQ Composite",
			"^DJI":  "Dow Jones Industrial Average",
		}
	}

	if cfg.Schedule.WatchlistCron == "" {
		cfg.Schedule.WatchlistCron = "0 30 16 * * 1-5"
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 0 17 * * 1-5"
	}
	if cfg.Schedule.Symbol == "" {
		cfg.Schedule.Symbol = "AAPL"
	}
}

// Validate checks ranges and cross-field constraints. Telegram settings are
// checked separately by ValidateTelegram.
func (c *Config) Validate() error {
	a := c.Analysis
	switch {
	case a.BacktestRSILow < 10 || a.BacktestRSILow > 40:
		return fmt.Errorf("%w: analysis.backtest_rsi_low must be in [10, 40], got %v", ErrInvalid, a.BacktestRSILow)
	case a.BacktestRSIHigh < 60 || a.BacktestRSIHigh > 90:
		return fmt.Errorf("%w: analysis.backtest_rsi_high must be in [60, 90], got %v", ErrInvalid, a.BacktestRSIHigh)
	case a.RSIStrongLow < 0 || a.RSIStrongHigh > 100:
		return fmt.Errorf("%w: analysis RSI bands must lie in [0, 100]", ErrInvalid)
	case a.RSIStrongLow > a.RSIOversold:
		return fmt.Errorf("%w: analysis.rsi_strong_low must not exceed rsi_oversold", ErrInvalid)
	case a.RSIOversold >= a.RSIOverbought:
		return fmt.Errorf("%w: analysis.rsi_oversold must be below rsi_overbought", ErrInvalid)
	case a.RSIOverbought > a.RSIStrongHigh:
		return fmt.Errorf("%w: analysis.rsi_strong_high must not be below rsi_overbought", ErrInvalid)
	case a.SMAWindow <= 0 || a.RSIWindow <= 0 || a.MACDFast <= 0 || a.MACDSlow <= 0 || a.MACDSignal <= 0:
		return fmt.Errorf("%w: indicator windows must be positive", ErrInvalid)
	case a.MACDFast >= a.MACDSlow:
		return fmt.Errorf("%w: analysis.macd_fast must be below macd_slow", ErrInvalid)
	case a.Strategy != "rsi" && a.Strategy != "rsi_macd":
		return fmt.Errorf("%w: analysis.strategy must be rsi or rsi_macd, got %q", ErrInvalid, a.Strategy)
	case a.MinBacktestBars < 2:
		return fmt.Errorf("%w: analysis.min_backtest_bars must be at least 2", ErrInvalid)
	}
	if err := collector.ValidatePeriod(a.Period); err != nil {
		return fmt.Errorf("%w: analysis.period: %v", ErrInvalid, err)
	}
	if err := collector.ValidatePeriod(c.Watchlist.Period); err != nil {
		return fmt.Errorf("%w: watchlist.period: %v", ErrInvalid, err)
	}
	switch c.DataSource.Kind {
	case "yahoo", "mock":
	case "sqlite":
		if c.DataSource.SQLitePath == "" {
			return fmt.Errorf("%w: data_source.sqlite_path is required for sqlite", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown data_source.kind %q", ErrInvalid, c.DataSource.Kind)
	}
	return nil
}

// ValidateTelegram checks the settings needed by the bot and scheduled reports.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("%w: telegram.bot_token is required", ErrInvalid)
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("%w: telegram.chat_id is required", ErrInvalid)
	}
	return nil
}
