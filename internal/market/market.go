// Package market defines the read-only gateway to external market data:
// spot quotes, OHLC history and asset search. Implementations hold no trading
// state; the portfolio store and the poller consume them.
package market

import "context"

// Quote is a full market snapshot for one asset.
type Quote struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
	High24h   float64 `json:"high24h"`
	Low24h    float64 `json:"low24h"`
	Volume24h float64 `json:"volume24h"`
	MarketCap float64 `json:"marketCap"`
	Image     string  `json:"image"`
}

// Candle is one OHLC bar. Time is unix seconds; candles are always returned
// in ascending time order.
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// SearchResult is a best-effort asset match.
type SearchResult struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// MaxSearchResults caps the matches any source returns.
const MaxSearchResults = 10

// Source supplies market data. All three operations short-circuit on empty
// input without touching the network, and surface rate limiting distinctly
// from other upstream failures (see errors.go).
type Source interface {
	// Quotes returns one quote per resolvable id. An empty id list yields
	// an empty result.
	Quotes(ctx context.Context, ids []string) ([]Quote, error)

	// History returns up to `days` worth of OHLC candles for the asset.
	History(ctx context.Context, id string, days int) ([]Candle, error)

	// Search returns up to MaxSearchResults matches for the query. A blank
	// query yields an empty result.
	Search(ctx context.Context, query string) ([]SearchResult, error)

	Name() string
}
