// Package search debounces asset search requests. Every keystroke resets the
// idle timer, so only the query left standing when typing pauses ever reaches
// the upstream.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"clawtrader/internal/logger"
	"clawtrader/internal/market"
)

// Debouncer issues at most one upstream search per idle window. Results are
// delivered through the OnResults callback; a blank query clears results
// immediately without a request.
type Debouncer struct {
	source market.Source
	wait   time.Duration

	// OnResults receives the matches for the most recent query. Called from
	// the timer goroutine.
	OnResults func(query string, results []market.SearchResult)

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

func New(source market.Source, wait time.Duration) *Debouncer {
	if wait <= 0 {
		wait = 300 * time.Millisecond
	}
	return &Debouncer{source: source, wait: wait}
}

// Query registers a keystroke. The pending timer, if any, is stopped; the
// request fires only after the idle window elapses with no newer keystroke.
func (d *Debouncer) Query(ctx context.Context, query string) {
	query = strings.TrimSpace(query)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if query == "" {
		if d.OnResults != nil {
			go d.OnResults("", nil)
		}
		return
	}
	d.timer = time.AfterFunc(d.wait, func() {
		d.run(ctx, gen, query)
	})
}

// Flush cancels any pending query without issuing it.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) run(ctx context.Context, gen uint64, query string) {
	d.mu.Lock()
	stale := gen != d.gen
	d.mu.Unlock()
	if stale {
		return
	}

	results, err := d.source.Search(ctx, query)
	if err != nil {
		logger.Warnf("search: %q failed: %v", query, err)
		return
	}

	d.mu.Lock()
	stale = gen != d.gen
	cb := d.OnResults
	d.mu.Unlock()
	if stale || cb == nil {
		return
	}
	cb(query, results)
}
