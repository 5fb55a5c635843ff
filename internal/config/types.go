package config

import "time"

// Config is the root configuration of the service.
type Config struct {
	App       AppConfig       `toml:"app"`
	Market    MarketConfig    `toml:"market"`
	Poll      PollConfig      `toml:"poll"`
	Search    SearchConfig    `toml:"search"`
	Portfolio PortfolioConfig `toml:"portfolio"`
	Watchlist WatchlistConfig `toml:"watchlist"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// MarketConfig selects and tunes the market data source.
type MarketConfig struct {
	Source    string          `toml:"source"` // "coingecko" | "binance"
	Coingecko CoingeckoConfig `toml:"coingecko"`
	Binance   BinanceConfig   `toml:"binance"`

	HistoryCachePath       string `toml:"history_cache_path"`
	HistoryCacheTTLSeconds int    `toml:"history_cache_ttl_seconds"`
}

type CoingeckoConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type BinanceConfig struct {
	BaseURL        string            `toml:"base_url"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	ExtraPairs     map[string]string `toml:"extra_pairs"`
}

// PollConfig tunes the quote polling loop and its circuit breaker.
type PollConfig struct {
	IntervalSeconds  int `toml:"interval_seconds"`
	FailureThreshold int `toml:"failure_threshold"`
	CooldownSeconds  int `toml:"cooldown_seconds"`
}

func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

func (p PollConfig) Cooldown() time.Duration {
	return time.Duration(p.CooldownSeconds) * time.Second
}

type SearchConfig struct {
	DebounceMillis int `toml:"debounce_ms"`
}

func (s SearchConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMillis) * time.Millisecond
}

type PortfolioConfig struct {
	StartingBalance float64 `toml:"starting_balance"`
	DBPath          string  `toml:"db_path"`
}

type WatchlistConfig struct {
	Path string `toml:"path"`
}

func (m MarketConfig) HistoryCacheTTL() time.Duration {
	return time.Duration(m.HistoryCacheTTLSeconds) * time.Second
}
