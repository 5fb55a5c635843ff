package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsForMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "coingecko", cfg.Market.Source)
	assert.Equal(t, 30, cfg.Poll.IntervalSeconds)
	assert.Equal(t, 10000.0, cfg.Portfolio.StartingBalance)
	assert.Equal(t, 300, cfg.Search.DebounceMillis)

	// a starter file was written for the operator
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestLoadParsesAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  log_level: debug
  http_addr: ":9000"
market:
  source: binance
  binance:
    extra_pairs:
      pepe: PEPEUSDT
poll:
  interval_seconds: 60
portfolio:
  starting_balance: 25000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, ":9000", cfg.App.HTTPAddr)
	assert.Equal(t, "binance", cfg.Market.Source)
	assert.Equal(t, "PEPEUSDT", cfg.Market.Binance.ExtraPairs["pepe"])
	assert.Equal(t, 60, cfg.Poll.IntervalSeconds)
	assert.Equal(t, 25000.0, cfg.Portfolio.StartingBalance)
	// untouched sections keep defaults
	assert.Equal(t, "data/portfolio.db", cfg.Portfolio.DBPath)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("market:\n  source: kraken\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "market.source")

	require.NoError(t, os.WriteFile(path, []byte("poll:\n  interval_seconds: 1\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "poll.interval_seconds")
}
