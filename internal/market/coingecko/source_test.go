package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawtrader/internal/market"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL})
}

func TestQuotes(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "bitcoin,ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":50000.5,
			 "price_change_percentage_24h":2.4,"high_24h":51000,"low_24h":49000,
			 "total_volume":123456789,"market_cap":987654321,"image":"https://img/btc.png"},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3000,
			 "price_change_percentage_24h":-1.1}
		]`))
	})

	quotes, err := src.Quotes(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "BTC", quotes[0].Symbol)
	assert.Equal(t, 50000.5, quotes[0].Price)
	assert.Equal(t, 2.4, quotes[0].Change24h)
	assert.Equal(t, "https://img/btc.png", quotes[0].Image)
	// absent fields default to zero
	assert.Equal(t, 0.0, quotes[1].MarketCap)
}

func TestQuotesEmptyInputSkipsNetwork(t *testing.T) {
	called := false
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	quotes, err := src.Quotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
	assert.False(t, called)
}

func TestHistoryConvertsTimestamps(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/ohlc", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		w.Write([]byte(`[[1700000000000,100,110,90,105],[1700003600000,105,120,100,118]]`))
	})

	candles, err := src.History(context.Background(), "bitcoin", 0) // 0 -> default 30
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1700000000), candles[0].Time)
	assert.Equal(t, 105.0, candles[0].Close)
	assert.Equal(t, 118.0, candles[1].Close)
}

func TestSearchCapsResults(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		w.Write([]byte(`{"coins":[
			{"id":"a","symbol":"a","name":"A"},{"id":"b","symbol":"b","name":"B"},
			{"id":"c","symbol":"c","name":"C"},{"id":"d","symbol":"d","name":"D"},
			{"id":"e","symbol":"e","name":"E"},{"id":"f","symbol":"f","name":"F"},
			{"id":"g","symbol":"g","name":"G"},{"id":"h","symbol":"h","name":"H"},
			{"id":"i","symbol":"i","name":"I"},{"id":"j","symbol":"j","name":"J"},
			{"id":"k","symbol":"k","name":"K"}
		]}`))
	})

	results, err := src.Search(context.Background(), "coin")
	require.NoError(t, err)
	assert.Len(t, results, market.MaxSearchResults)
	assert.Equal(t, "A", results[0].Name)
}

func TestSearchBlankQuerySkipsNetwork(t *testing.T) {
	called := false
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	results, err := src.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, called)
}

func TestRateLimitSurfacedDistinctly(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := src.Quotes(context.Background(), []string{"bitcoin"})
	require.Error(t, err)
	assert.True(t, market.IsRateLimited(err))
	assert.Equal(t, 0, market.UpstreamStatus(err))
}

func TestUpstreamErrorCarriesStatus(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := src.History(context.Background(), "bitcoin", 7)
	require.Error(t, err)
	assert.False(t, market.IsRateLimited(err))
	assert.Equal(t, http.StatusBadGateway, market.UpstreamStatus(err))
}
