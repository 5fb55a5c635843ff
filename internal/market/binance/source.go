// Package binance implements market.Source on top of the Binance spot API.
// It serves deployments that want exchange-grade quote latency instead of the
// default CoinGecko source. Assets are addressed by the same stable ids the
// rest of the system uses; a pair table maps them onto Binance symbols.
package binance

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"clawtrader/internal/market"
)

// pairInfo links a stable asset id to its Binance trading pair.
type pairInfo struct {
	Symbol string // display symbol, e.g. BTC
	Name   string
	Pair   string // Binance pair, e.g. BTCUSDT
}

// Binance has no fuzzy asset search, so the source carries a table of the
// pairs it can serve. Unknown ids are silently skipped by Quotes, matching
// how CoinGecko drops unresolvable ids.
var knownPairs = map[string]pairInfo{
	"bitcoin":      {Symbol: "BTC", Name: "Bitcoin", Pair: "BTCUSDT"},
	"ethereum":     {Symbol: "ETH", Name: "Ethereum", Pair: "ETHUSDT"},
	"solana":       {Symbol: "SOL", Name: "Solana", Pair: "SOLUSDT"},
	"dogecoin":     {Symbol: "DOGE", Name: "Dogecoin", Pair: "DOGEUSDT"},
	"cardano":      {Symbol: "ADA", Name: "Cardano", Pair: "ADAUSDT"},
	"ripple":       {Symbol: "XRP", Name: "XRP", Pair: "XRPUSDT"},
	"binancecoin":  {Symbol: "BNB", Name: "BNB", Pair: "BNBUSDT"},
	"litecoin":     {Symbol: "LTC", Name: "Litecoin", Pair: "LTCUSDT"},
	"polkadot":     {Symbol: "DOT", Name: "Polkadot", Pair: "DOTUSDT"},
	"chainlink":    {Symbol: "LINK", Name: "Chainlink", Pair: "LINKUSDT"},
	"avalanche-2":  {Symbol: "AVAX", Name: "Avalanche", Pair: "AVAXUSDT"},
	"tron":         {Symbol: "TRX", Name: "TRON", Pair: "TRXUSDT"},
	"the-open-network": {Symbol: "TON", Name: "Toncoin", Pair: "TONUSDT"},
}

// Source implements market.Source via the go-binance SDK.
type Source struct {
	client *binance.Client
	pairs  map[string]pairInfo
}

// Config for the Binance source. ExtraPairs lets config add id -> pair
// mappings beyond the built-in table ("assetid" -> "SYMUSDT").
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	ExtraPairs map[string]string
}

func New(cfg Config) *Source {
	client := binance.NewClient("", "")
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		client.BaseURL = base
	}
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	pairs := make(map[string]pairInfo, len(knownPairs)+len(cfg.ExtraPairs))
	for id, info := range knownPairs {
		pairs[id] = info
	}
	for id, pair := range cfg.ExtraPairs {
		id = strings.ToLower(strings.TrimSpace(id))
		pair = strings.ToUpper(strings.TrimSpace(pair))
		if id == "" || pair == "" {
			continue
		}
		sym := strings.TrimSuffix(pair, "USDT")
		pairs[id] = pairInfo{Symbol: sym, Name: sym, Pair: pair}
	}
	return &Source{client: client, pairs: pairs}
}

func (s *Source) Name() string { return "binance" }

// Quotes resolves each id through the pair table and fetches 24h ticker
// statistics. Unmapped ids are skipped.
func (s *Source) Quotes(ctx context.Context, ids []string) ([]market.Quote, error) {
	if len(ids) == 0 {
		return []market.Quote{}, nil
	}

	quotes := make([]market.Quote, 0, len(ids))
	for _, id := range ids {
		info, ok := s.pairs[strings.ToLower(strings.TrimSpace(id))]
		if !ok {
			continue
		}
		stats, err := s.client.NewListPriceChangeStatsService().Symbol(info.Pair).Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("binance: ticker %s: %w", info.Pair, err)
		}
		if len(stats) == 0 {
			continue
		}
		st := stats[0]
		quotes = append(quotes, market.Quote{
			ID:        strings.ToLower(strings.TrimSpace(id)),
			Symbol:    info.Symbol,
			Name:      info.Name,
			Price:     parseFloat(st.LastPrice),
			Change24h: parseFloat(st.PriceChangePercent),
			High24h:   parseFloat(st.HighPrice),
			Low24h:    parseFloat(st.LowPrice),
			Volume24h: parseFloat(st.QuoteVolume),
		})
	}
	return quotes, nil
}

// History maps the day span onto a kline interval roughly matching the
// granularity CoinGecko serves for the same span.
func (s *Source) History(ctx context.Context, id string, days int) ([]market.Candle, error) {
	info, ok := s.pairs[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("binance: no trading pair for asset %q", id)
	}
	if days <= 0 {
		days = 30
	}

	interval, limit := intervalForDays(days)
	klines, err := s.client.NewKlinesService().
		Symbol(info.Pair).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: klines %s: %w", info.Pair, err)
	}

	candles := make([]market.Candle, 0, len(klines))
	for _, kl := range klines {
		if kl == nil {
			continue
		}
		candles = append(candles, market.Candle{
			Time:  kl.OpenTime / 1000,
			Open:  parseFloat(kl.Open),
			High:  parseFloat(kl.High),
			Low:   parseFloat(kl.Low),
			Close: parseFloat(kl.Close),
		})
	}
	return candles, nil
}

// Search matches the query against the pair table; there is no upstream call.
func (s *Source) Search(_ context.Context, query string) ([]market.SearchResult, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []market.SearchResult{}, nil
	}

	var results []market.SearchResult
	for id, info := range s.pairs {
		if strings.Contains(id, query) ||
			strings.Contains(strings.ToLower(info.Symbol), query) ||
			strings.Contains(strings.ToLower(info.Name), query) {
			results = append(results, market.SearchResult{ID: id, Symbol: info.Symbol, Name: info.Name})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	if len(results) > market.MaxSearchResults {
		results = results[:market.MaxSearchResults]
	}
	return results, nil
}

func intervalForDays(days int) (interval string, limit int) {
	switch {
	case days <= 1:
		return "30m", 48
	case days <= 30:
		return "4h", days * 6
	default:
		limit = days
		if limit > 1000 {
			limit = 1000
		}
		return "1d", limit
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
