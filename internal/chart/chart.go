// Package chart loads OHLC history for the currently selected asset and
// range. Selections supersede each other: a fetch that finishes after a newer
// selection was made is discarded, so slow responses never overwrite fresher
// data.
package chart

import (
	"context"
	"sync"

	"clawtrader/internal/logger"
	"clawtrader/internal/market"
	"clawtrader/internal/types"
)

// Service serializes chart state behind one mutex. Fetches run in their own
// goroutine; only the completion holding the latest generation may commit.
type Service struct {
	source market.Source

	mu       sync.Mutex
	gen      uint64
	assetID  string
	rng      types.TimeRange
	candles  []market.Candle
	loading  bool
	onUpdate func()
}

func New(source market.Source) *Service {
	return &Service{source: source}
}

// SetOnUpdate registers a callback invoked after a fetch commits. Used by
// tests and by push-style consumers; may be nil.
func (s *Service) SetOnUpdate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Select switches the chart to (assetID, rng) and starts a background fetch.
// Any in-flight fetch for a previous selection is left to finish and then
// discarded by the generation check.
func (s *Service) Select(ctx context.Context, assetID string, rng types.TimeRange) {
	if assetID == "" {
		return
	}
	if !rng.Valid() {
		rng = types.Range7D
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.assetID = assetID
	s.rng = rng
	s.loading = true
	s.mu.Unlock()

	go s.fetch(ctx, gen, assetID, rng.Days())
}

func (s *Service) fetch(ctx context.Context, gen uint64, assetID string, days int) {
	candles, err := s.source.History(ctx, assetID, days)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		logger.Debugf("chart: dropping stale history for %s (%dd)", assetID, days)
		return
	}
	s.loading = false
	if err != nil {
		logger.Warnf("chart: history fetch %s (%dd) failed: %v", assetID, days, err)
		return
	}
	s.candles = candles
	if s.onUpdate != nil {
		s.onUpdate()
	}
}

// Candles returns the last committed history and whether a fetch is pending.
func (s *Service) Candles() ([]market.Candle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]market.Candle(nil), s.candles...), s.loading
}

// Selection returns the asset and range of the newest selection.
func (s *Service) Selection() (string, types.TimeRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assetID, s.rng
}
