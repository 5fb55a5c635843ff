package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawtrader/internal/market"
	"clawtrader/internal/portfolio"
	"clawtrader/internal/types"
)

func TestRenderWritesBothCharts(t *testing.T) {
	in := Input{
		Snapshot: portfolio.Snapshot{
			StartingBalance: 10000,
			Trades: []types.Trade{
				{ID: "t1", Symbol: "BTC", Pnl: 100, ClosedAt: 1700000000000},
				{ID: "t2", Symbol: "ETH", Pnl: -50, ClosedAt: 1700000100000},
			},
		},
		Metrics: types.PortfolioMetrics{TotalTrades: 2, WinRate: 50},
		AssetID: "bitcoin",
		Candles: []market.Candle{
			{Time: 1700000000, Open: 100, High: 110, Low: 95, Close: 105},
			{Time: 1700086400, Open: 105, High: 115, Low: 100, Close: 112},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, in))

	html := buf.String()
	assert.Contains(t, html, "Equity Curve")
	assert.Contains(t, html, "BITCOIN")
}

func TestRenderShowsOpenPositions(t *testing.T) {
	in := Input{
		Snapshot: portfolio.Snapshot{
			StartingBalance: 10000,
			Positions: []types.Position{
				{ID: "p1", AssetID: "bitcoin", Symbol: "BTC", Side: types.SideLong,
					EntryPrice: 50000, Quantity: 0.02, CurrentPrice: 51000},
				{ID: "p2", AssetID: "ethereum", Symbol: "ETH", Side: types.SideShort,
					EntryPrice: 3000, Quantity: 1, CurrentPrice: 3100},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, in))

	html := buf.String()
	assert.Contains(t, html, "Open Positions")
	// long up 2%, short down 3.3%
	assert.Contains(t, html, "BTC long (2.0%)")
	assert.Contains(t, html, "ETH short (-3.3%)")
}

func TestRenderWithoutPositionsSkipsPositionsChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Input{
		Snapshot: portfolio.Snapshot{StartingBalance: 10000},
	}))
	assert.NotContains(t, buf.String(), "Open Positions")
}

func TestRenderWithoutCandlesSkipsCandleChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Input{
		Snapshot: portfolio.Snapshot{StartingBalance: 10000},
	}))
	html := buf.String()
	assert.Contains(t, html, "Equity Curve")
	assert.NotContains(t, html, "SMA7")
}

func TestEquityChartOrdersTradesByCloseTime(t *testing.T) {
	snap := portfolio.Snapshot{
		StartingBalance: 10000,
		Trades: []types.Trade{
			{ID: "late", Pnl: 200, ClosedAt: 300},
			{ID: "early", Pnl: -100, ClosedAt: 100},
		},
	}
	line := buildEquityChart(snap, types.PortfolioMetrics{})
	require.NotNil(t, line)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, Input{Snapshot: snap}))
}

func TestToLineDataPadsLeadingGap(t *testing.T) {
	data := toLineData([]float64{1.5, 2.5}, 4)
	require.Len(t, data, 4)
	assert.Nil(t, data[0].Value)
	assert.Nil(t, data[1].Value)
	assert.Equal(t, 1.5, data[2].Value)
	assert.Equal(t, 2.5, data[3].Value)
}
