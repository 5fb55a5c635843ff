// Package coingecko implements market.Source against the public CoinGecko
// REST API. It is the default data source of the dashboard.
package coingecko

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"clawtrader/internal/market"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Source talks to CoinGecko. Safe for concurrent use.
type Source struct {
	baseURL string
	client  *http.Client
	apiKey  string
}

// Config for the CoinGecko source. Zero values pick sane defaults.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config) *Source {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Source{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
		apiKey:  strings.TrimSpace(cfg.APIKey),
	}
}

func (s *Source) Name() string { return "coingecko" }

// Quotes fetches /coins/markets for the given ids. Empty input returns empty
// output without a network call.
func (s *Source) Quotes(ctx context.Context, ids []string) ([]market.Quote, error) {
	ids = compactIDs(ids)
	if len(ids) == 0 {
		return []market.Quote{}, nil
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("ids", strings.Join(ids, ","))
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h")

	body, err := s.get(ctx, "/coins/markets", params)
	if err != nil {
		return nil, err
	}

	var quotes []market.Quote
	gjson.ParseBytes(body).ForEach(func(_, coin gjson.Result) bool {
		quotes = append(quotes, market.Quote{
			ID:        coin.Get("id").String(),
			Symbol:    strings.ToUpper(coin.Get("symbol").String()),
			Name:      coin.Get("name").String(),
			Price:     coin.Get("current_price").Float(),
			Change24h: coin.Get("price_change_percentage_24h").Float(),
			High24h:   coin.Get("high_24h").Float(),
			Low24h:    coin.Get("low_24h").Float(),
			Volume24h: coin.Get("total_volume").Float(),
			MarketCap: coin.Get("market_cap").Float(),
			Image:     coin.Get("image").String(),
		})
		return true
	})
	return quotes, nil
}

// History fetches /coins/{id}/ohlc. CoinGecko returns [ts_ms, o, h, l, c]
// tuples; timestamps are converted to unix seconds.
func (s *Source) History(ctx context.Context, id string, days int) ([]market.Candle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("coingecko: history requires an asset id")
	}
	if days <= 0 {
		days = 30
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", strconv.Itoa(days))

	body, err := s.get(ctx, "/coins/"+url.PathEscape(id)+"/ohlc", params)
	if err != nil {
		return nil, err
	}

	var candles []market.Candle
	gjson.ParseBytes(body).ForEach(func(_, row gjson.Result) bool {
		tuple := row.Array()
		if len(tuple) < 5 {
			return true
		}
		candles = append(candles, market.Candle{
			Time:  tuple[0].Int() / 1000,
			Open:  tuple[1].Float(),
			High:  tuple[2].Float(),
			Low:   tuple[3].Float(),
			Close: tuple[4].Float(),
		})
		return true
	})
	return candles, nil
}

// Search fetches /search and keeps the top matches. A blank query returns
// empty output without a network call.
func (s *Source) Search(ctx context.Context, query string) ([]market.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []market.SearchResult{}, nil
	}

	params := url.Values{}
	params.Set("query", query)

	body, err := s.get(ctx, "/search", params)
	if err != nil {
		return nil, err
	}

	var results []market.SearchResult
	gjson.GetBytes(body, "coins").ForEach(func(_, coin gjson.Result) bool {
		if len(results) >= market.MaxSearchResults {
			return false
		}
		results = append(results, market.SearchResult{
			ID:     coin.Get("id").String(),
			Symbol: strings.ToUpper(coin.Get("symbol").String()),
			Name:   coin.Get("name").String(),
		})
		return true
	})
	return results, nil
}

func (s *Source) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("coingecko: %s: %w", path, market.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &market.UpstreamError{Source: "coingecko", Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coingecko: reading response: %w", err)
	}
	return body, nil
}

func compactIDs(ids []string) []string {
	out := ids[:0:0]
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
