// Package engine holds the pure paper-trading arithmetic: position
// construction, realized/unrealized PnL and trigger evaluation. It keeps no
// state and never fails; input validation is the portfolio store's job.
package engine

import (
	"time"

	"github.com/google/uuid"

	"clawtrader/internal/types"
)

// PnlResult pairs absolute PnL with its percentage over the cost basis.
type PnlResult struct {
	Pnl        float64 `json:"pnl"`
	PnlPercent float64 `json:"pnlPercent"`
}

// Open builds a new position at the given price. Quantity and price are taken
// as-is; degenerate inputs produce a degenerate but well-defined position.
func Open(assetID, symbol string, side types.PositionSide, quantity, price float64, stopLoss, takeProfit *float64) types.Position {
	return types.Position{
		ID:           uuid.NewString(),
		AssetID:      assetID,
		Symbol:       symbol,
		Side:         side,
		EntryPrice:   price,
		Quantity:     quantity,
		CurrentPrice: price,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
		OpenedAt:     time.Now().UnixMilli(),
	}
}

// Close realizes a position at exitPrice and returns the resulting trade.
// The input position is not mutated; removing it from the open set is the
// caller's responsibility.
func Close(pos types.Position, exitPrice float64) types.Trade {
	res := pnlAt(pos, exitPrice)
	return types.Trade{
		ID:         uuid.NewString(),
		AssetID:    pos.AssetID,
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   pos.Quantity,
		Pnl:        res.Pnl,
		PnlPercent: res.PnlPercent,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   time.Now().UnixMilli(),
	}
}

// UnrealizedPnl evaluates the position against its last known price.
func UnrealizedPnl(pos types.Position) PnlResult {
	return pnlAt(pos, pos.CurrentPrice)
}

func pnlAt(pos types.Position, price float64) PnlResult {
	var pnl float64
	if pos.Side == types.SideShort {
		pnl = (pos.EntryPrice - price) * pos.Quantity
	} else {
		pnl = (price - pos.EntryPrice) * pos.Quantity
	}
	cost := pos.EntryPrice * pos.Quantity
	pct := 0.0
	if cost != 0 {
		pct = pnl / cost * 100
	}
	return PnlResult{Pnl: pnl, PnlPercent: pct}
}

// ShouldTriggerStopLoss reports whether the stop threshold has been crossed.
// Longs stop out at or below the level, shorts at or above it.
func ShouldTriggerStopLoss(pos types.Position) bool {
	if pos.StopLoss == nil {
		return false
	}
	if pos.Side == types.SideShort {
		return decimalGTE(pos.CurrentPrice, *pos.StopLoss)
	}
	return decimalLTE(pos.CurrentPrice, *pos.StopLoss)
}

// ShouldTriggerTakeProfit reports whether the take-profit threshold has been
// crossed. Longs take profit at or above the level, shorts at or below it.
//
// Callers must evaluate ShouldTriggerStopLoss first: when both thresholds
// straddle the same price the stop-loss wins and determines the exit reason.
func ShouldTriggerTakeProfit(pos types.Position) bool {
	if pos.TakeProfit == nil {
		return false
	}
	if pos.Side == types.SideShort {
		return decimalLTE(pos.CurrentPrice, *pos.TakeProfit)
	}
	return decimalGTE(pos.CurrentPrice, *pos.TakeProfit)
}
