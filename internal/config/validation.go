package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	switch strings.ToLower(strings.TrimSpace(c.Market.Source)) {
	case "coingecko", "binance":
	default:
		return fmt.Errorf("market.source must be coingecko or binance, got %q", c.Market.Source)
	}
	switch strings.ToLower(strings.TrimSpace(c.App.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be debug/info/warn/error, got %q", c.App.LogLevel)
	}
	if c.Portfolio.StartingBalance <= 0 {
		return fmt.Errorf("portfolio.starting_balance must be positive")
	}
	if c.Poll.IntervalSeconds < 5 {
		return fmt.Errorf("poll.interval_seconds must be at least 5 to stay inside upstream rate limits")
	}
	return nil
}
