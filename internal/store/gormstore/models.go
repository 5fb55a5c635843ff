package gormstore

import (
	"gorm.io/datatypes"

	"clawtrader/internal/types"
)

// settingsModel is a single-row table holding the scalar portfolio state.
type settingsModel struct {
	ID                int64   `gorm:"column:id;primaryKey"`
	CashBalance       float64 `gorm:"column:cash_balance"`
	StartingBalance   float64 `gorm:"column:starting_balance"`
	SelectedAssetID   string  `gorm:"column:selected_asset_id"`
	SelectedTimeRange string  `gorm:"column:selected_time_range"`
	UpdatedAtUnix     int64   `gorm:"column:updated_at"`
}

func (settingsModel) TableName() string { return "portfolio_settings" }

type positionModel struct {
	ID           string   `gorm:"column:id;primaryKey"`
	AssetID      string   `gorm:"column:asset_id;index"`
	Symbol       string   `gorm:"column:symbol"`
	Side         string   `gorm:"column:side"`
	EntryPrice   float64  `gorm:"column:entry_price"`
	Quantity     float64  `gorm:"column:quantity"`
	CurrentPrice float64  `gorm:"column:current_price"`
	StopLoss     *float64 `gorm:"column:stop_loss"`
	TakeProfit   *float64 `gorm:"column:take_profit"`
	OpenedAt     int64    `gorm:"column:opened_at"`
}

func (positionModel) TableName() string { return "open_positions" }

type tradeModel struct {
	ID         string  `gorm:"column:id;primaryKey"`
	AssetID    string  `gorm:"column:asset_id;index"`
	Symbol     string  `gorm:"column:symbol"`
	Side       string  `gorm:"column:side"`
	EntryPrice float64 `gorm:"column:entry_price"`
	ExitPrice  float64 `gorm:"column:exit_price"`
	Quantity   float64 `gorm:"column:quantity"`
	Pnl        float64 `gorm:"column:pnl"`
	PnlPercent float64 `gorm:"column:pnl_percent"`
	OpenedAt   int64   `gorm:"column:opened_at"`
	ClosedAt   int64   `gorm:"column:closed_at;index"`
}

func (tradeModel) TableName() string { return "trades" }

type watchlistModel struct {
	AssetID   string  `gorm:"column:asset_id;primaryKey"`
	Symbol    string  `gorm:"column:symbol"`
	Name      string  `gorm:"column:name"`
	Price     float64 `gorm:"column:price"`
	Change24h float64 `gorm:"column:change_24h"`
	Image     string  `gorm:"column:image"`
	SortOrder int     `gorm:"column:sort_order"`
}

func (watchlistModel) TableName() string { return "watchlist_items" }

// eventModel is the append-only audit trail of applied state transitions.
type eventModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Op            string         `gorm:"column:op;index"`
	Payload       datatypes.JSON `gorm:"column:payload;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (eventModel) TableName() string { return "portfolio_events" }

func newPositionModel(p types.Position) positionModel {
	return positionModel{
		ID:           p.ID,
		AssetID:      p.AssetID,
		Symbol:       p.Symbol,
		Side:         string(p.Side),
		EntryPrice:   p.EntryPrice,
		Quantity:     p.Quantity,
		CurrentPrice: p.CurrentPrice,
		StopLoss:     copyFloatPtr(p.StopLoss),
		TakeProfit:   copyFloatPtr(p.TakeProfit),
		OpenedAt:     p.OpenedAt,
	}
}

func positionModelToType(m positionModel) types.Position {
	return types.Position{
		ID:           m.ID,
		AssetID:      m.AssetID,
		Symbol:       m.Symbol,
		Side:         types.PositionSide(m.Side),
		EntryPrice:   m.EntryPrice,
		Quantity:     m.Quantity,
		CurrentPrice: m.CurrentPrice,
		StopLoss:     copyFloatPtr(m.StopLoss),
		TakeProfit:   copyFloatPtr(m.TakeProfit),
		OpenedAt:     m.OpenedAt,
	}
}

func newTradeModel(t types.Trade) tradeModel {
	return tradeModel{
		ID:         t.ID,
		AssetID:    t.AssetID,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Quantity:   t.Quantity,
		Pnl:        t.Pnl,
		PnlPercent: t.PnlPercent,
		OpenedAt:   t.OpenedAt,
		ClosedAt:   t.ClosedAt,
	}
}

func tradeModelToType(m tradeModel) types.Trade {
	return types.Trade{
		ID:         m.ID,
		AssetID:    m.AssetID,
		Symbol:     m.Symbol,
		Side:       types.PositionSide(m.Side),
		EntryPrice: m.EntryPrice,
		ExitPrice:  m.ExitPrice,
		Quantity:   m.Quantity,
		Pnl:        m.Pnl,
		PnlPercent: m.PnlPercent,
		OpenedAt:   m.OpenedAt,
		ClosedAt:   m.ClosedAt,
	}
}

func newWatchlistModel(w types.WatchlistItem, order int) watchlistModel {
	return watchlistModel{
		AssetID:   w.ID,
		Symbol:    w.Symbol,
		Name:      w.Name,
		Price:     w.Price,
		Change24h: w.Change24h,
		Image:     w.Image,
		SortOrder: order,
	}
}

func watchlistModelToType(m watchlistModel) types.WatchlistItem {
	return types.WatchlistItem{
		ID:        m.AssetID,
		Symbol:    m.Symbol,
		Name:      m.Name,
		Price:     m.Price,
		Change24h: m.Change24h,
		Image:     m.Image,
	}
}

func copyFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
