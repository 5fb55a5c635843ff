package types

// PositionSide is the direction of a paper position.
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// Valid reports whether the side is one of the two supported directions.
func (s PositionSide) Valid() bool {
	return s == SideLong || s == SideShort
}

// TimeRange selects how far back the chart history reaches.
type TimeRange string

const (
	Range1D  TimeRange = "1D"
	Range7D  TimeRange = "7D"
	Range30D TimeRange = "30D"
	Range90D TimeRange = "90D"
	Range1Y  TimeRange = "1Y"
	RangeAll TimeRange = "ALL"
)

var timeRangeDays = map[TimeRange]int{
	Range1D:  1,
	Range7D:  7,
	Range30D: 30,
	Range90D: 90,
	Range1Y:  365,
	RangeAll: 730,
}

// Days maps a time range onto the day count the market gateway expects.
// Unknown ranges fall back to 30 days.
func (r TimeRange) Days() int {
	if d, ok := timeRangeDays[r]; ok {
		return d
	}
	return 30
}

// Valid reports whether the range is a known enum value.
func (r TimeRange) Valid() bool {
	_, ok := timeRangeDays[r]
	return ok
}

// Asset is a tracked market instrument. Price and Change24h are the only
// mutable fields; they are refreshed by quote updates.
type Asset struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
	Image     string  `json:"image,omitempty"`
}

// WatchlistItem is an asset tracked for display. Membership is keyed by ID.
type WatchlistItem = Asset

// Position is an open paper trade. EntryPrice and Quantity are fixed at open
// time; CurrentPrice is mutated only by price updates.
type Position struct {
	ID           string       `json:"id"`
	AssetID      string       `json:"assetId"`
	Symbol       string       `json:"symbol"`
	Side         PositionSide `json:"side"`
	EntryPrice   float64      `json:"entryPrice"`
	Quantity     float64      `json:"quantity"`
	CurrentPrice float64      `json:"currentPrice"`
	StopLoss     *float64     `json:"stopLoss,omitempty"`
	TakeProfit   *float64     `json:"takeProfit,omitempty"`
	OpenedAt     int64        `json:"openedAt"` // unix ms
}

// Value is the mark-to-market value of the position.
func (p Position) Value() float64 {
	return p.CurrentPrice * p.Quantity
}

// Trade is an immutable record of a closed position.
type Trade struct {
	ID         string       `json:"id"`
	AssetID    string       `json:"assetId"`
	Symbol     string       `json:"symbol"`
	Side       PositionSide `json:"side"`
	EntryPrice float64      `json:"entryPrice"`
	ExitPrice  float64      `json:"exitPrice"`
	Quantity   float64      `json:"quantity"`
	Pnl        float64      `json:"pnl"`
	PnlPercent float64      `json:"pnlPercent"`
	OpenedAt   int64        `json:"openedAt"` // unix ms
	ClosedAt   int64        `json:"closedAt"` // unix ms
}

// PortfolioMetrics is a derived view over the trade history and current
// balances. It is recomputed on every read and never persisted.
type PortfolioMetrics struct {
	TotalValue      float64 `json:"totalValue"`
	CashBalance     float64 `json:"cashBalance"`
	PositionsValue  float64 `json:"positionsValue"`
	TotalPnl        float64 `json:"totalPnl"`
	TotalPnlPercent float64 `json:"totalPnlPercent"`
	WinRate         float64 `json:"winRate"`
	ProfitFactor    float64 `json:"profitFactor"`
	SharpeRatio     float64 `json:"sharpeRatio"`
	MaxDrawdown     float64 `json:"maxDrawdown"`
	TotalTrades     int     `json:"totalTrades"`
	WinningTrades   int     `json:"winningTrades"`
	LosingTrades    int     `json:"losingTrades"`
}
