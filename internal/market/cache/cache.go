// Package cache adds a SQLite-backed cache in front of a market source's
// History operation. Chart ranges change far more often than daily candles
// do, and the free CoinGecko tier rate-limits aggressively; a short TTL cache
// absorbs most of that traffic and keeps charts usable through a 429 window.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"clawtrader/internal/logger"
	"clawtrader/internal/market"
)

const schema = `
CREATE TABLE IF NOT EXISTS history_cache (
	asset_id   TEXT    NOT NULL,
	days       INTEGER NOT NULL,
	fetched_at INTEGER NOT NULL,
	candles    TEXT    NOT NULL,
	PRIMARY KEY (asset_id, days)
);`

// CachedSource decorates a market.Source. Quotes and Search pass through
// untouched; History is served from the cache while fresh, and stale entries
// still serve as a fallback when the upstream rate-limits.
type CachedSource struct {
	market.Source

	mu  sync.Mutex
	db  *sql.DB
	ttl time.Duration
}

// Wrap opens (or creates) the cache database at path. A non-positive ttl
// defaults to 5 minutes.
func Wrap(src market.Source, path string, ttl time.Duration) (*CachedSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("history cache: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("history cache: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history cache: migrate: %w", err)
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedSource{Source: src, db: db, ttl: ttl}, nil
}

func (c *CachedSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

// History serves a fresh cached entry if present, otherwise fetches upstream
// and stores the result. When the upstream rate-limits, an expired entry is
// better than an empty chart, so stale data is returned with a warning.
func (c *CachedSource) History(ctx context.Context, id string, days int) ([]market.Candle, error) {
	if days <= 0 {
		days = 30
	}
	id = strings.TrimSpace(id)

	cached, fetchedAt, err := c.load(ctx, id, days)
	if err != nil {
		logger.Warnf("history cache: load %s/%dd failed: %v", id, days, err)
	}
	if cached != nil && time.Since(fetchedAt) < c.ttl {
		return cached, nil
	}

	candles, err := c.Source.History(ctx, id, days)
	if err != nil {
		if cached != nil && market.IsRateLimited(err) {
			logger.Warnf("history cache: %s rate limited, serving stale %s/%dd", c.Source.Name(), id, days)
			return cached, nil
		}
		return nil, err
	}

	if err := c.store(ctx, id, days, candles); err != nil {
		logger.Warnf("history cache: store %s/%dd failed: %v", id, days, err)
	}
	return candles, nil
}

func (c *CachedSource) load(ctx context.Context, id string, days int) ([]market.Candle, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fetchedAt int64
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT fetched_at, candles FROM history_cache WHERE asset_id = ? AND days = ?`,
		id, days).Scan(&fetchedAt, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var candles []market.Candle
	if err := json.Unmarshal([]byte(raw), &candles); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding cached candles: %w", err)
	}
	return candles, time.Unix(fetchedAt, 0), nil
}

func (c *CachedSource) store(ctx context.Context, id string, days int, candles []market.Candle) error {
	raw, err := json.Marshal(candles)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO history_cache (asset_id, days, fetched_at, candles) VALUES (?, ?, ?, ?)
		 ON CONFLICT(asset_id, days) DO UPDATE SET fetched_at = excluded.fetched_at, candles = excluded.candles`,
		id, days, time.Now().Unix(), string(raw))
	return err
}
