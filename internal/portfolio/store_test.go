package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawtrader/internal/engine"
	"clawtrader/internal/types"
)

func ptr(v float64) *float64 { return &v }

type recordingPersister struct {
	saves  int
	events []Event
	last   Snapshot
}

func (r *recordingPersister) Save(snap Snapshot, events []Event) error {
	r.saves++
	r.events = append(r.events, events...)
	r.last = snap
	return nil
}

func btc() types.WatchlistItem {
	return types.WatchlistItem{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin"}
}

func TestOpenPositionHappyPath(t *testing.T) {
	s := New(Options{})
	pos, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 1000, 50000, nil, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.02, pos.Quantity, 1e-12)
	assert.Equal(t, 50000.0, pos.EntryPrice)

	snap := s.Snapshot()
	assert.InDelta(t, 9000, snap.CashBalance, 1e-9)
	require.Len(t, snap.Positions, 1)
}

func TestOpenPositionValidation(t *testing.T) {
	s := New(Options{})
	before := s.Snapshot()

	_, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 0, 50000, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.OpenPosition("bitcoin", "BTC", types.SideLong, -5, 50000, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.OpenPosition("bitcoin", "BTC", types.SideLong, 100, 0, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = s.OpenPosition("bitcoin", "BTC", "sideways", 100, 50000, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidSide)
	_, err = s.OpenPosition("bitcoin", "BTC", types.SideLong, 10001, 50000, nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// a rejected open leaves the state untouched
	assert.Equal(t, before, s.Snapshot())
}

func TestOpenNeverDrivesCashNegative(t *testing.T) {
	s := New(Options{})
	_, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 10000, 50000, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Snapshot().CashBalance)

	_, err = s.OpenPosition("bitcoin", "BTC", types.SideLong, 1, 50000, nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestClosePositionCreditsProceeds(t *testing.T) {
	s := New(Options{})
	pos, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 1000, 50000, nil, nil)
	require.NoError(t, err)

	trade, ok := s.ClosePosition(pos.ID, 55000)
	require.True(t, ok)
	assert.InDelta(t, 100, trade.Pnl, 1e-9)
	assert.InDelta(t, 10, trade.PnlPercent, 1e-9)

	snap := s.Snapshot()
	// proceeds are exitPrice x quantity, not stake + pnl reconciliation
	assert.InDelta(t, 9000+55000*0.02, snap.CashBalance, 1e-9)
	assert.Empty(t, snap.Positions)
	require.Len(t, snap.Trades, 1)
}

func TestClosePositionUnknownIDIsNoop(t *testing.T) {
	s := New(Options{})
	before := s.Snapshot()
	_, ok := s.ClosePosition("missing", 100)
	assert.False(t, ok)
	assert.Equal(t, before, s.Snapshot())
}

func TestEndToEndLongBTC(t *testing.T) {
	s := New(Options{})
	s.AddToWatchlist(btc())
	pos, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 1000, 50000, nil, nil)
	require.NoError(t, err)

	s.UpdatePrices(map[string]PriceUpdate{"bitcoin": {Price: 55000, Change24h: 3.2}})

	snap := s.Snapshot()
	require.Len(t, snap.Positions, 1)
	assert.Equal(t, 55000.0, snap.Positions[0].CurrentPrice)
	assert.Equal(t, 55000.0, snap.Watchlist[0].Price)
	assert.Equal(t, 3.2, snap.Watchlist[0].Change24h)

	res := engine.UnrealizedPnl(snap.Positions[0])
	assert.InDelta(t, 100, res.Pnl, 1e-9)
	assert.InDelta(t, 10, res.PnlPercent, 1e-9)

	_, ok := s.ClosePosition(pos.ID, 55000)
	require.True(t, ok)
	snap = s.Snapshot()
	assert.InDelta(t, 10100, snap.CashBalance, 1e-9)
	require.Len(t, snap.Trades, 1)
	assert.InDelta(t, 100, snap.Trades[0].Pnl, 1e-9)
}

func TestWatchlistIdempotence(t *testing.T) {
	s := New(Options{})
	s.AddToWatchlist(btc())
	s.AddToWatchlist(btc())
	assert.Len(t, s.Snapshot().Watchlist, 1)

	s.RemoveFromWatchlist("bitcoin")
	assert.Empty(t, s.Snapshot().Watchlist)
	s.RemoveFromWatchlist("bitcoin") // absent: no-op
	assert.Empty(t, s.Snapshot().Watchlist)
}

func TestUpdatePricesSkipsUnknownAssets(t *testing.T) {
	s := New(Options{})
	s.AddToWatchlist(btc())
	s.UpdatePrices(map[string]PriceUpdate{"ethereum": {Price: 3000}})
	assert.Equal(t, 0.0, s.Snapshot().Watchlist[0].Price)
}

func TestCheckTriggersStopLoss(t *testing.T) {
	s := New(Options{})
	_, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 1000, 50000, ptr(48000), nil)
	require.NoError(t, err)

	s.UpdatePrices(map[string]PriceUpdate{"bitcoin": {Price: 47000}})
	closed := s.CheckTriggers()

	require.Len(t, closed, 1)
	assert.Equal(t, 47000.0, closed[0].ExitPrice)
	assert.Empty(t, s.Snapshot().Positions)
}

func TestCheckTriggersStopLossBeatsTakeProfit(t *testing.T) {
	// degenerate config: stop above take, both straddled by the price
	p := &recordingPersister{}
	s := New(Options{Persister: p})
	_, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 1000, 50000, ptr(60000), ptr(40000))
	require.NoError(t, err)

	s.UpdatePrices(map[string]PriceUpdate{"bitcoin": {Price: 50000}})
	closed := s.CheckTriggers()
	require.Len(t, closed, 1)

	var reasons []string
	for _, ev := range p.events {
		if ev.Op == "trigger_close" {
			reasons = append(reasons, ev.Payload.(closeEvent).Reason)
		}
	}
	require.Equal(t, []string{CloseReasonStopLoss}, reasons)
}

func TestCheckTriggersCollectsBeforeClosing(t *testing.T) {
	s := New(Options{})
	_, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 1000, 50000, ptr(48000), nil)
	require.NoError(t, err)
	_, err = s.OpenPosition("ethereum", "ETH", types.SideShort, 1000, 3000, ptr(3100), nil)
	require.NoError(t, err)

	s.UpdatePrices(map[string]PriceUpdate{
		"bitcoin":  {Price: 47000},
		"ethereum": {Price: 3200},
	})
	closed := s.CheckTriggers()
	assert.Len(t, closed, 2)
	assert.Empty(t, s.Snapshot().Positions)

	// nothing left to trigger
	assert.Empty(t, s.CheckTriggers())
}

func TestResetPreservesWatchlist(t *testing.T) {
	s := New(Options{})
	s.AddToWatchlist(btc())
	s.SelectAsset("ethereum")
	s.SelectTimeRange(types.Range90D)
	_, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 1000, 50000, nil, nil)
	require.NoError(t, err)

	s.ResetPortfolio()

	snap := s.Snapshot()
	assert.Equal(t, float64(DefaultStartingBalance), snap.CashBalance)
	assert.Empty(t, snap.Positions)
	assert.Empty(t, snap.Trades)
	assert.Len(t, snap.Watchlist, 1)
	assert.Equal(t, DefaultAssetID, snap.SelectedAssetID)
	assert.Equal(t, DefaultTimeRange, snap.SelectedTimeRange)
}

func TestMetricsDerivedFromState(t *testing.T) {
	s := New(Options{})
	pos, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 1000, 50000, nil, nil)
	require.NoError(t, err)
	_, ok := s.ClosePosition(pos.ID, 55000)
	require.True(t, ok)

	m := s.Metrics()
	assert.Equal(t, 1, m.TotalTrades)
	assert.Equal(t, 1, m.WinningTrades)
	assert.InDelta(t, 100, m.TotalPnl, 1e-9)
	assert.InDelta(t, 1, m.TotalPnlPercent, 1e-9)
	assert.InDelta(t, 10100, m.TotalValue, 1e-9)
}

func TestPersisterReceivesSnapshots(t *testing.T) {
	p := &recordingPersister{}
	s := New(Options{Persister: p})

	s.AddToWatchlist(btc())
	pos, err := s.OpenPosition("bitcoin", "BTC", types.SideLong, 1000, 50000, nil, nil)
	require.NoError(t, err)
	_, ok := s.ClosePosition(pos.ID, 51000)
	require.True(t, ok)

	assert.Equal(t, 3, p.saves)
	require.Len(t, p.last.Trades, 1)
	assert.InDelta(t, 9000+51000*0.02, p.last.CashBalance, 1e-9)
}

func TestRestoreRoundTrip(t *testing.T) {
	s := New(Options{})
	s.AddToWatchlist(btc())
	_, err := s.OpenPosition("bitcoin", "BTC", types.SideShort, 500, 50000, ptr(52000), ptr(45000))
	require.NoError(t, err)
	snap := s.Snapshot()

	restored := New(Options{})
	restored.Restore(snap)
	assert.Equal(t, snap, restored.Snapshot())
}

func TestSnapshotAssetIDs(t *testing.T) {
	s := New(Options{})
	s.AddToWatchlist(btc())
	s.AddToWatchlist(types.WatchlistItem{ID: "ethereum", Symbol: "ETH"})
	_, err := s.OpenPosition("solana", "SOL", types.SideLong, 100, 150, nil, nil)
	require.NoError(t, err)
	_, err = s.OpenPosition("bitcoin", "BTC", types.SideLong, 100, 50000, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"bitcoin", "ethereum", "solana"}, s.Snapshot().AssetIDs())
}
