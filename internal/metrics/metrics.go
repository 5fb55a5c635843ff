// Package metrics derives portfolio-level statistics from the realized trade
// history. All functions are pure and defined for every input.
package metrics

import (
	"math"
	"sort"

	"clawtrader/internal/types"
)

// tradesPerYear annualizes the Sharpe ratio under a one-trade-per-day
// assumption. This is not a true time-series Sharpe; it is the documented
// approximation the dashboard has always shown.
const tradesPerYear = 252

// Calculate builds the full metrics view. positionsValue is the mark-to-market
// value of the open positions, computed by the caller; startingBalance is the
// fixed initial cash constant used as the PnL-percent denominator.
func Calculate(trades []types.Trade, cashBalance, positionsValue, startingBalance float64) types.PortfolioMetrics {
	m := types.PortfolioMetrics{
		CashBalance:    cashBalance,
		PositionsValue: positionsValue,
		TotalValue:     cashBalance + positionsValue,
		TotalTrades:    len(trades),
	}

	var grossProfit, grossLoss float64
	for _, tr := range trades {
		m.TotalPnl += tr.Pnl
		switch {
		case tr.Pnl > 0:
			m.WinningTrades++
			grossProfit += tr.Pnl
		case tr.Pnl < 0:
			m.LosingTrades++
			grossLoss += -tr.Pnl
		}
		// break-even trades count toward the total only
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	}
	m.ProfitFactor = clampFinite(profitFactor(grossProfit, grossLoss))
	if startingBalance != 0 {
		m.TotalPnlPercent = m.TotalPnl / startingBalance * 100
	}
	m.SharpeRatio = sharpeRatio(trades)
	m.MaxDrawdown = maxDrawdown(trades, startingBalance)
	return m
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss > 0 {
		return grossProfit / grossLoss
	}
	if grossProfit > 0 {
		return grossProfit
	}
	return 0
}

func clampFinite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// sharpeRatio treats each trade's fractional PnL percent as one return
// observation, in the order given, and annualizes by sqrt(252).
func sharpeRatio(trades []types.Trade) float64 {
	if len(trades) < 2 {
		return 0
	}

	n := float64(len(trades))
	var sum float64
	for _, tr := range trades {
		sum += tr.PnlPercent / 100
	}
	mean := sum / n

	var sq float64
	for _, tr := range trades {
		d := tr.PnlPercent/100 - mean
		sq += d * d
	}
	stddev := math.Sqrt(sq / (n - 1)) // sample stddev, unbiased
	if stddev == 0 {
		return 0
	}
	return mean / stddev * math.Sqrt(tradesPerYear)
}

// maxDrawdown walks the equity curve in closed-at order and returns the worst
// peak-to-trough decline as a percent of the peak.
func maxDrawdown(trades []types.Trade, startingBalance float64) float64 {
	if len(trades) == 0 {
		return 0
	}

	sorted := make([]types.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ClosedAt < sorted[j].ClosedAt
	})

	equity := startingBalance
	peak := startingBalance
	maxDd := 0.0
	for _, tr := range sorted {
		equity += tr.Pnl
		if equity > peak {
			peak = equity
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - equity) / peak * 100
		}
		if dd > maxDd {
			maxDd = dd
		}
	}
	return maxDd
}
