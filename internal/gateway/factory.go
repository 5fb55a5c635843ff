// Package gateway builds the configured market data source.
package gateway

import (
	"fmt"
	"strings"
	"time"

	"clawtrader/internal/config"
	"clawtrader/internal/market"
	"clawtrader/internal/market/binance"
	"clawtrader/internal/market/cache"
	"clawtrader/internal/market/coingecko"
)

// NewSource constructs the market source named by cfg.Market.Source and wraps
// it with the on-disk history cache.
func NewSource(cfg *config.Config) (market.Source, error) {
	src, err := newRawSource(cfg)
	if err != nil {
		return nil, err
	}
	return cache.Wrap(src, cfg.Market.HistoryCachePath, cfg.Market.HistoryCacheTTL())
}

func newRawSource(cfg *config.Config) (market.Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Market.Source)) {
	case "coingecko":
		return coingecko.New(coingecko.Config{
			BaseURL: cfg.Market.Coingecko.BaseURL,
			APIKey:  cfg.Market.Coingecko.APIKey,
			Timeout: time.Duration(cfg.Market.Coingecko.TimeoutSeconds) * time.Second,
		}), nil
	case "binance":
		return binance.New(binance.Config{
			BaseURL:    cfg.Market.Binance.BaseURL,
			Timeout:    time.Duration(cfg.Market.Binance.TimeoutSeconds) * time.Second,
			ExtraPairs: cfg.Market.Binance.ExtraPairs,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported market source: %s", cfg.Market.Source)
	}
}
