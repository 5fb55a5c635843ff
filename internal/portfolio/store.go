// Package portfolio owns all mutable trading state: cash, open positions,
// trade history, watchlist and UI selection. Every operation is an atomic
// state transition serialized behind one mutex; the pure arithmetic lives in
// the engine and metrics packages.
package portfolio

import (
	"errors"
	"sync"

	"clawtrader/internal/engine"
	"clawtrader/internal/logger"
	"clawtrader/internal/metrics"
	"clawtrader/internal/types"
)

const (
	// DefaultStartingBalance is the virtual cash every fresh portfolio gets.
	DefaultStartingBalance = 10000

	// DefaultAssetID and DefaultTimeRange are the selection defaults,
	// restored by ResetPortfolio.
	DefaultAssetID   = "bitcoin"
	DefaultTimeRange = types.Range7D
)

// Close reasons recorded in the audit log.
const (
	CloseReasonManual     = "manual"
	CloseReasonStopLoss   = "stop_loss"
	CloseReasonTakeProfit = "take_profit"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidPrice      = errors.New("price must be positive")
	ErrInsufficientFunds = errors.New("insufficient cash balance")
	ErrInvalidSide       = errors.New("side must be long or short")
)

// Store is the single owner of portfolio state.
type Store struct {
	mu sync.Mutex

	cash              float64
	startingBalance   float64
	positions         []types.Position
	trades            []types.Trade
	watchlist         []types.WatchlistItem
	selectedAssetID   string
	selectedTimeRange types.TimeRange

	persister Persister
}

// Options configures a new store. A zero StartingBalance means the default;
// a nil Persister disables persistence (used by tests).
type Options struct {
	StartingBalance float64
	Persister       Persister
}

// New builds a store with fresh defaults.
func New(opts Options) *Store {
	start := opts.StartingBalance
	if start <= 0 {
		start = DefaultStartingBalance
	}
	return &Store{
		cash:              start,
		startingBalance:   start,
		selectedAssetID:   DefaultAssetID,
		selectedTimeRange: DefaultTimeRange,
		persister:         opts.Persister,
	}
}

// Restore overwrites the full state from a persisted snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.StartingBalance > 0 {
		s.startingBalance = snap.StartingBalance
	}
	s.cash = snap.CashBalance
	s.positions = append([]types.Position(nil), snap.Positions...)
	s.trades = append([]types.Trade(nil), snap.Trades...)
	s.watchlist = append([]types.WatchlistItem(nil), snap.Watchlist...)
	s.selectedAssetID = snap.SelectedAssetID
	if snap.SelectedTimeRange.Valid() {
		s.selectedTimeRange = snap.SelectedTimeRange
	} else {
		s.selectedTimeRange = DefaultTimeRange
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return cloneSnapshot(Snapshot{
		CashBalance:       s.cash,
		StartingBalance:   s.startingBalance,
		Positions:         s.positions,
		Trades:            s.trades,
		Watchlist:         s.watchlist,
		SelectedAssetID:   s.selectedAssetID,
		SelectedTimeRange: s.selectedTimeRange,
	})
}

// persistLocked hands the post-transition snapshot to the persister. Failures
// are logged and swallowed; in-memory state is already committed.
func (s *Store) persistLocked(events ...Event) {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.snapshotLocked(), events); err != nil {
		logger.Warnf("portfolio: persist after %s failed: %v", events[0].Op, err)
	}
}

// SelectAsset records the asset shown on the chart.
func (s *Store) SelectAsset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedAssetID = id
	s.persistLocked(Event{Op: "select_asset", Payload: map[string]any{"assetId": id}})
}

// SelectTimeRange records the chart range. Unknown values are ignored.
func (s *Store) SelectTimeRange(r types.TimeRange) {
	if !r.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedTimeRange = r
	s.persistLocked(Event{Op: "select_time_range", Payload: map[string]any{"range": r}})
}

// AddToWatchlist inserts the asset unless its id is already present.
func (s *Store) AddToWatchlist(asset types.WatchlistItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchlist {
		if w.ID == asset.ID {
			return
		}
	}
	s.watchlist = append(s.watchlist, asset)
	s.persistLocked(Event{Op: "watchlist_add", Payload: map[string]any{"assetId": asset.ID}})
}

// RemoveFromWatchlist deletes by id; absent ids are a no-op.
func (s *Store) RemoveFromWatchlist(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.watchlist {
		if w.ID == id {
			s.watchlist = append(s.watchlist[:i], s.watchlist[i+1:]...)
			s.persistLocked(Event{Op: "watchlist_remove", Payload: map[string]any{"assetId": id}})
			return
		}
	}
}

// PriceUpdate carries a fresh quote for one asset.
type PriceUpdate struct {
	Price     float64
	Change24h float64
}

// UpdatePrices refreshes watchlist prices and position marks from the given
// mapping. Assets missing from the mapping are left untouched. This is the
// only path by which a position's CurrentPrice changes.
func (s *Store) UpdatePrices(updates map[string]PriceUpdate) {
	if len(updates) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for i := range s.watchlist {
		if u, ok := updates[s.watchlist[i].ID]; ok {
			s.watchlist[i].Price = u.Price
			s.watchlist[i].Change24h = u.Change24h
			changed = true
		}
	}
	for i := range s.positions {
		if u, ok := updates[s.positions[i].AssetID]; ok {
			s.positions[i].CurrentPrice = u.Price
			changed = true
		}
	}
	if changed {
		s.persistLocked(Event{Op: "update_prices", Payload: map[string]any{"assets": len(updates)}})
	}
}

// OpenPosition opens a paper trade. The full validation happens here, before
// any engine call: the engine itself accepts anything.
func (s *Store) OpenPosition(assetID, symbol string, side types.PositionSide, amountUSD, price float64, stopLoss, takeProfit *float64) (types.Position, error) {
	if !side.Valid() {
		return types.Position{}, ErrInvalidSide
	}
	if amountUSD <= 0 {
		return types.Position{}, ErrInvalidAmount
	}
	if price <= 0 {
		return types.Position{}, ErrInvalidPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if amountUSD > s.cash {
		return types.Position{}, ErrInsufficientFunds
	}

	quantity := amountUSD / price
	pos := engine.Open(assetID, symbol, side, quantity, price, stopLoss, takeProfit)
	s.positions = append(s.positions, pos)
	s.cash -= amountUSD

	s.persistLocked(Event{Op: "open_position", Payload: pos})
	logger.Infof("portfolio: opened %s %s qty=%.8f entry=%.2f stake=%.2f", side, symbol, quantity, price, amountUSD)
	return pos, nil
}

// ClosePosition realizes the position at exitPrice and credits the proceeds.
// Unknown ids are a no-op and return ok=false.
func (s *Store) ClosePosition(positionID string, exitPrice float64) (types.Trade, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trade, ok := s.closeLocked(positionID, exitPrice, CloseReasonManual)
	if ok {
		s.persistLocked(Event{Op: "close_position", Payload: closeEvent{Trade: trade, Reason: CloseReasonManual}})
	}
	return trade, ok
}

type closeEvent struct {
	Trade  types.Trade `json:"trade"`
	Reason string      `json:"reason"`
}

// closeLocked removes the position, appends the trade and credits the sale
// proceeds (exitPrice x quantity). Cash bookkeeping and the trade's pnl are
// deliberately two independent derivations; do not merge them.
func (s *Store) closeLocked(positionID string, exitPrice float64, reason string) (types.Trade, bool) {
	for i, pos := range s.positions {
		if pos.ID != positionID {
			continue
		}
		trade := engine.Close(pos, exitPrice)
		s.positions = append(s.positions[:i], s.positions[i+1:]...)
		s.trades = append(s.trades, trade)
		s.cash += exitPrice * pos.Quantity
		logger.Infof("portfolio: closed %s %s exit=%.2f pnl=%.2f reason=%s", pos.Side, pos.Symbol, exitPrice, trade.Pnl, reason)
		return trade, true
	}
	return types.Trade{}, false
}

// CheckTriggers closes every position whose stop-loss or take-profit level
// has been crossed by its current price. Stop-loss is evaluated first and
// wins when both conditions hold. Candidates are collected before any close
// is applied so a cascade never re-evaluates a half-updated position set,
// and the whole cascade runs under one lock hold.
func (s *Store) CheckTriggers() []types.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	type candidate struct {
		id     string
		price  float64
		reason string
	}
	var toClose []candidate
	for _, pos := range s.positions {
		switch {
		case engine.ShouldTriggerStopLoss(pos):
			toClose = append(toClose, candidate{pos.ID, pos.CurrentPrice, CloseReasonStopLoss})
		case engine.ShouldTriggerTakeProfit(pos):
			toClose = append(toClose, candidate{pos.ID, pos.CurrentPrice, CloseReasonTakeProfit})
		}
	}
	if len(toClose) == 0 {
		return nil
	}

	closed := make([]types.Trade, 0, len(toClose))
	events := make([]Event, 0, len(toClose))
	for _, c := range toClose {
		if trade, ok := s.closeLocked(c.id, c.price, c.reason); ok {
			closed = append(closed, trade)
			events = append(events, Event{Op: "trigger_close", Payload: closeEvent{Trade: trade, Reason: c.reason}})
		}
	}
	s.persistLocked(events...)
	return closed
}

// ResetPortfolio wipes the trading state back to the starting balance.
// Watchlist membership survives a reset; only cash, positions, trades and
// the selection are restored to defaults.
func (s *Store) ResetPortfolio() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cash = s.startingBalance
	s.positions = nil
	s.trades = nil
	s.selectedAssetID = DefaultAssetID
	s.selectedTimeRange = DefaultTimeRange
	s.persistLocked(Event{Op: "reset_portfolio"})
}

// Metrics derives the portfolio statistics from the current state.
func (s *Store) Metrics() types.PortfolioMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	positionsValue := 0.0
	for _, pos := range s.positions {
		positionsValue += pos.Value()
	}
	return metrics.Calculate(s.trades, s.cash, positionsValue, s.startingBalance)
}
