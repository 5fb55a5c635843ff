package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawtrader/internal/types"
)

func ptr(v float64) *float64 { return &v }

func TestOpen(t *testing.T) {
	pos := Open("bitcoin", "BTC", types.SideLong, 0.02, 50000, ptr(48000), nil)

	require.NotEmpty(t, pos.ID)
	assert.Equal(t, "bitcoin", pos.AssetID)
	assert.Equal(t, types.SideLong, pos.Side)
	assert.Equal(t, 50000.0, pos.EntryPrice)
	assert.Equal(t, 50000.0, pos.CurrentPrice)
	assert.Equal(t, 0.02, pos.Quantity)
	require.NotNil(t, pos.StopLoss)
	assert.Equal(t, 48000.0, *pos.StopLoss)
	assert.Nil(t, pos.TakeProfit)
	assert.NotZero(t, pos.OpenedAt)

	other := Open("bitcoin", "BTC", types.SideLong, 0.02, 50000, nil, nil)
	assert.NotEqual(t, pos.ID, other.ID)
}

func TestClosePnlSigns(t *testing.T) {
	tests := []struct {
		name  string
		side  types.PositionSide
		entry float64
		exit  float64
		qty   float64
		pnl   float64
		pct   float64
	}{
		{"long closed above entry wins", types.SideLong, 50000, 55000, 0.02, 100, 10},
		{"long closed below entry loses", types.SideLong, 50000, 45000, 0.02, -100, -10},
		{"short closed below entry wins", types.SideShort, 50000, 45000, 0.02, 100, 10},
		{"short closed above entry loses", types.SideShort, 50000, 55000, 0.02, -100, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := Open("bitcoin", "BTC", tt.side, tt.qty, tt.entry, nil, nil)
			trade := Close(pos, tt.exit)

			assert.InDelta(t, tt.pnl, trade.Pnl, 1e-9)
			assert.InDelta(t, tt.pct, trade.PnlPercent, 1e-9)
			assert.Equal(t, pos.AssetID, trade.AssetID)
			assert.Equal(t, pos.OpenedAt, trade.OpenedAt)
			assert.NotEqual(t, pos.ID, trade.ID)
			assert.GreaterOrEqual(t, trade.ClosedAt, trade.OpenedAt)
		})
	}
}

func TestClosePnlPercentZeroCost(t *testing.T) {
	pos := types.Position{Side: types.SideLong, EntryPrice: 0, Quantity: 1, CurrentPrice: 0}
	trade := Close(pos, 10)
	assert.Equal(t, 10.0, trade.Pnl)
	assert.Equal(t, 0.0, trade.PnlPercent)
}

func TestUnrealizedMatchesRealized(t *testing.T) {
	pos := Open("ethereum", "ETH", types.SideShort, 0.5, 3000, nil, nil)
	pos.CurrentPrice = 2800

	unrealized := UnrealizedPnl(pos)
	trade := Close(pos, 2800)

	assert.InDelta(t, trade.Pnl, unrealized.Pnl, 1e-9)
	assert.InDelta(t, trade.PnlPercent, unrealized.PnlPercent, 1e-9)
}

func TestShouldTriggerStopLoss(t *testing.T) {
	long := Open("bitcoin", "BTC", types.SideLong, 1, 100, ptr(90), nil)

	long.CurrentPrice = 95
	assert.False(t, ShouldTriggerStopLoss(long))
	long.CurrentPrice = 90
	assert.True(t, ShouldTriggerStopLoss(long))
	long.CurrentPrice = 80
	assert.True(t, ShouldTriggerStopLoss(long))

	short := Open("bitcoin", "BTC", types.SideShort, 1, 100, ptr(110), nil)
	short.CurrentPrice = 105
	assert.False(t, ShouldTriggerStopLoss(short))
	short.CurrentPrice = 110
	assert.True(t, ShouldTriggerStopLoss(short))

	noStop := Open("bitcoin", "BTC", types.SideLong, 1, 100, nil, nil)
	noStop.CurrentPrice = 1
	assert.False(t, ShouldTriggerStopLoss(noStop))
}

func TestShouldTriggerTakeProfit(t *testing.T) {
	long := Open("bitcoin", "BTC", types.SideLong, 1, 100, nil, ptr(120))
	long.CurrentPrice = 119
	assert.False(t, ShouldTriggerTakeProfit(long))
	long.CurrentPrice = 120
	assert.True(t, ShouldTriggerTakeProfit(long))

	short := Open("bitcoin", "BTC", types.SideShort, 1, 100, nil, ptr(80))
	short.CurrentPrice = 81
	assert.False(t, ShouldTriggerTakeProfit(short))
	short.CurrentPrice = 80
	assert.True(t, ShouldTriggerTakeProfit(short))

	noTP := Open("bitcoin", "BTC", types.SideShort, 1, 100, nil, nil)
	noTP.CurrentPrice = 1
	assert.False(t, ShouldTriggerTakeProfit(noTP))
}
