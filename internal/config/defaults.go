package config

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":8080"
	defaultMarketSource     = "coingecko"
	defaultCoingeckoTimeout = 10
	defaultBinanceTimeout   = 10
	defaultHistoryCachePath = "data/history_cache.db"
	defaultHistoryCacheTTL  = 300
	defaultPollInterval     = 30
	defaultPollFailures     = 3
	defaultPollCooldown     = 120
	defaultSearchDebounce   = 300
	defaultStartingBalance  = 10000
	defaultPortfolioDBPath  = "data/portfolio.db"
	defaultWatchlistPath    = "configs/watchlist.yaml"
)

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultAppEnv
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = defaultAppHTTPAddr
	}
	if c.Market.Source == "" {
		c.Market.Source = defaultMarketSource
	}
	if c.Market.Coingecko.TimeoutSeconds <= 0 {
		c.Market.Coingecko.TimeoutSeconds = defaultCoingeckoTimeout
	}
	if c.Market.Binance.TimeoutSeconds <= 0 {
		c.Market.Binance.TimeoutSeconds = defaultBinanceTimeout
	}
	if c.Market.HistoryCachePath == "" {
		c.Market.HistoryCachePath = defaultHistoryCachePath
	}
	if c.Market.HistoryCacheTTLSeconds <= 0 {
		c.Market.HistoryCacheTTLSeconds = defaultHistoryCacheTTL
	}
	if c.Poll.IntervalSeconds <= 0 {
		c.Poll.IntervalSeconds = defaultPollInterval
	}
	if c.Poll.FailureThreshold <= 0 {
		c.Poll.FailureThreshold = defaultPollFailures
	}
	if c.Poll.CooldownSeconds <= 0 {
		c.Poll.CooldownSeconds = defaultPollCooldown
	}
	if c.Search.DebounceMillis <= 0 {
		c.Search.DebounceMillis = defaultSearchDebounce
	}
	if c.Portfolio.StartingBalance <= 0 {
		c.Portfolio.StartingBalance = defaultStartingBalance
	}
	if c.Portfolio.DBPath == "" {
		c.Portfolio.DBPath = defaultPortfolioDBPath
	}
	if c.Watchlist.Path == "" {
		c.Watchlist.Path = defaultWatchlistPath
	}
}
