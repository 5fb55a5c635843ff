// Package report renders the performance review page: an equity curve built
// from the realized trade history, the unrealized PnL of each open position
// and a candle chart of the selected asset with moving-average overlays.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	echartstypes "github.com/go-echarts/go-echarts/v2/types"
	talib "github.com/markcheno/go-talib"

	"clawtrader/internal/engine"
	"clawtrader/internal/market"
	"clawtrader/internal/portfolio"
	"clawtrader/internal/types"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorEquity        = "#3b82f6"
	colorSmaFast       = "#fbbf24"
	colorSmaSlow       = "#f472b6"

	chartWidthPx  = 1200
	chartHeightPx = 500

	smaFastPeriod = 7
	smaSlowPeriod = 25
)

// Input carries everything the page needs. Candles may be empty; the candle
// chart is skipped then.
type Input struct {
	Snapshot portfolio.Snapshot
	Metrics  types.PortfolioMetrics
	AssetID  string
	Candles  []market.Candle
}

// Render writes the full HTML report page.
func Render(w io.Writer, in Input) error {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = "ClawTrader Performance"

	page.AddCharts(buildEquityChart(in.Snapshot, in.Metrics))
	if len(in.Snapshot.Positions) > 0 {
		page.AddCharts(buildPositionsChart(in.Snapshot.Positions))
	}
	if len(in.Candles) > 0 {
		page.AddCharts(buildCandleChart(in.AssetID, in.Candles))
	}
	return page.Render(w)
}

func chartInit() opts.Initialization {
	return opts.Initialization{
		Theme:           echartstypes.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", chartHeightPx),
		BackgroundColor: colorBackground,
	}
}

// buildEquityChart walks the realized trade history in close order and plots
// cash equity after each close, starting from the starting balance.
func buildEquityChart(snap portfolio.Snapshot, m types.PortfolioMetrics) *charts.Line {
	trades := append([]types.Trade(nil), snap.Trades...)
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].ClosedAt < trades[j].ClosedAt
	})

	xAxis := make([]string, 0, len(trades)+1)
	data := make([]opts.LineData, 0, len(trades)+1)
	equity := snap.StartingBalance
	xAxis = append(xAxis, "start")
	data = append(data, opts.LineData{Value: round(equity, 2)})
	for _, t := range trades {
		equity += t.Pnl
		xAxis = append(xAxis, time.UnixMilli(t.ClosedAt).UTC().Format("01-02 15:04"))
		data = append(data, opts.LineData{Value: round(equity, 2)})
	}

	subtitle := fmt.Sprintf("trades=%d win=%.1f%% pf=%.2f sharpe=%.2f maxDD=%.1f%%",
		m.TotalTrades, m.WinRate, m.ProfitFactor, m.SharpeRatio, m.MaxDrawdown)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{
			Title:         "Equity Curve",
			Subtitle:      subtitle,
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", data,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

// buildPositionsChart marks each open position to its last known price and
// plots the unrealized PnL.
func buildPositionsChart(positions []types.Position) *charts.Bar {
	xAxis := make([]string, len(positions))
	data := make([]opts.BarData, len(positions))
	for i, p := range positions {
		res := engine.UnrealizedPnl(p)
		color := colorBull
		if res.Pnl < 0 {
			color = colorBear
		}
		xAxis[i] = fmt.Sprintf("%s %s (%.1f%%)", p.Symbol, p.Side, res.PnlPercent)
		data[i] = opts.BarData{
			Value:     round(res.Pnl, 2),
			ItemStyle: &opts.ItemStyle{Color: color},
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{
			Title:         "Open Positions",
			Subtitle:      "unrealized PnL at last quote",
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)
	bar.SetXAxis(xAxis)
	bar.AddSeries("Unrealized PnL", data)
	return bar
}

func buildCandleChart(assetID string, candles []market.Candle) *charts.Kline {
	minPrice, maxPrice := priceBounds(candles)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1, math.Abs(maxPrice)*0.01)
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTitleOpts(opts.Title{
			Title:      strings.ToUpper(assetID),
			Left:       "left",
			Top:        "10",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(minPrice-padding, 4),
			Max:       round(maxPrice+padding, 4),
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)

	xAxis := make([]string, len(candles))
	data := make([]opts.KlineData, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		xAxis[i] = time.Unix(c.Time, 0).UTC().Format("01-02 15:04")
		data[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
		closes[i] = c.Close
	}
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", data)

	overlay := buildSmaOverlay(closes)
	overlay.SetXAxis(xAxis)
	kline.Overlap(overlay)
	return kline
}

func buildSmaOverlay(closes []float64) *charts.Line {
	line := charts.NewLine()
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	if len(closes) > smaFastPeriod {
		line.AddSeries(fmt.Sprintf("SMA%d", smaFastPeriod),
			toLineData(talib.Sma(closes, smaFastPeriod), len(closes)),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorSmaFast, Width: 2}))
	}
	if len(closes) > smaSlowPeriod {
		line.AddSeries(fmt.Sprintf("SMA%d", smaSlowPeriod),
			toLineData(talib.Sma(closes, smaSlowPeriod), len(closes)),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorSmaSlow, Width: 2}))
	}
	return line
}

func toLineData(series []float64, length int) []opts.LineData {
	line := make([]opts.LineData, length)
	offset := length - len(series)
	if offset < 0 {
		offset = 0
	}
	for i := 0; i < offset; i++ {
		line[i] = opts.LineData{Value: nil}
	}
	for i := 0; i < len(series) && offset+i < length; i++ {
		val := series[i]
		if math.IsNaN(val) || val == 0 {
			line[offset+i] = opts.LineData{Value: nil}
		} else {
			line[offset+i] = opts.LineData{Value: round(val, 4)}
		}
	}
	return line
}

func priceBounds(candles []market.Candle) (minVal, maxVal float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	minVal = candles[0].Low
	maxVal = candles[0].High
	for _, c := range candles {
		if c.Low < minVal {
			minVal = c.Low
		}
		if c.High > maxVal {
			maxVal = c.High
		}
	}
	return minVal, maxVal
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
