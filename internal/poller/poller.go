// Package poller refreshes watched quotes on a fixed interval and runs the
// stop-loss / take-profit sweep after every successful refresh.
package poller

import (
	"context"
	"time"

	"clawtrader/internal/config"
	"clawtrader/internal/logger"
	"clawtrader/internal/market"
	"clawtrader/internal/pkg/circuit"
	"clawtrader/internal/portfolio"
)

// Poller drives the quote refresh loop. A tick failure never stops the loop;
// repeated failures trip the breaker and pause upstream calls for the
// configured cooldown.
type Poller struct {
	store    *portfolio.Store
	source   market.Source
	interval time.Duration
	breaker  *circuit.Breaker
}

func New(store *portfolio.Store, source market.Source, cfg config.PollConfig) *Poller {
	interval := cfg.Interval()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		store:    store,
		source:   source,
		interval: interval,
		breaker:  circuit.New("quotes:"+source.Name(), cfg.FailureThreshold, cfg.Cooldown()),
	}
}

// Run blocks until ctx is cancelled. The first tick fires immediately so the
// dashboard has prices before the first interval elapses.
func (p *Poller) Run(ctx context.Context) error {
	logger.Infof("poller: started source=%s interval=%s", p.source.Name(), p.interval)

	p.tick(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Infof("poller: ctx done, exit")
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	ids := p.store.Snapshot().AssetIDs()
	if len(ids) == 0 {
		return
	}
	if !p.breaker.Allow() {
		logger.Debugf("poller: breaker open, skipping refresh of %d assets", len(ids))
		return
	}

	quotes, err := p.source.Quotes(ctx, ids)
	if err != nil {
		p.breaker.RecordFailure()
		if market.IsRateLimited(err) {
			logger.Warnf("poller: %s rate limited: %v", p.source.Name(), err)
		} else {
			logger.Warnf("poller: quote refresh failed: %v", err)
		}
		return
	}
	p.breaker.RecordSuccess()

	updates := make(map[string]portfolio.PriceUpdate, len(quotes))
	for _, q := range quotes {
		if q.Price <= 0 {
			continue
		}
		updates[q.ID] = portfolio.PriceUpdate{Price: q.Price, Change24h: q.Change24h}
	}
	p.store.UpdatePrices(updates)

	for _, trade := range p.store.CheckTriggers() {
		logger.Infof("poller: trigger closed %s %s at %.4f (pnl=%.2f)",
			trade.Side, trade.Symbol, trade.ExitPrice, trade.Pnl)
	}
}
