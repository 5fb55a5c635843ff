// Package config loads the service configuration from YAML, applies defaults
// and validates the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads the config file at path. A missing file is not an error: the
// defaults are used and a starter file is written next to the requested path
// so operators have something to edit.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg.applyDefaults()
		if err := writeStarter(path, &cfg); err != nil {
			return nil, err
		}
		return &cfg, validate(&cfg)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// writeStarter dumps the effective defaults as a commented-out starting
// point. Failure to write is not fatal for startup, but is reported so the
// operator knows why no file appeared.
func writeStarter(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	out, err := yaml.Marshal(starterDoc(cfg))
	if err != nil {
		return fmt.Errorf("encoding starter config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing starter config: %w", err)
	}
	return nil
}

// starterDoc mirrors the toml-tagged Config into plain YAML keys.
func starterDoc(cfg *Config) map[string]any {
	return map[string]any{
		"app": map[string]any{
			"env":       cfg.App.Env,
			"log_level": cfg.App.LogLevel,
			"http_addr": cfg.App.HTTPAddr,
			"log_path":  cfg.App.LogPath,
		},
		"market": map[string]any{
			"source":                    cfg.Market.Source,
			"history_cache_path":        cfg.Market.HistoryCachePath,
			"history_cache_ttl_seconds": cfg.Market.HistoryCacheTTLSeconds,
		},
		"poll": map[string]any{
			"interval_seconds":  cfg.Poll.IntervalSeconds,
			"failure_threshold": cfg.Poll.FailureThreshold,
			"cooldown_seconds":  cfg.Poll.CooldownSeconds,
		},
		"search": map[string]any{
			"debounce_ms": cfg.Search.DebounceMillis,
		},
		"portfolio": map[string]any{
			"starting_balance": cfg.Portfolio.StartingBalance,
			"db_path":          cfg.Portfolio.DBPath,
		},
		"watchlist": map[string]any{
			"path": cfg.Watchlist.Path,
		},
	}
}
