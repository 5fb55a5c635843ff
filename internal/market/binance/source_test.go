package binance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawtrader/internal/market"
)

func TestSearchAgainstPairTable(t *testing.T) {
	src := New(Config{})

	results, err := src.Search(context.Background(), "bit")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "bitcoin", results[0].ID)
	assert.Equal(t, "BTC", results[0].Symbol)

	results, err = src.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = src.Search(context.Background(), "no-such-asset")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExtraPairsExtendTable(t *testing.T) {
	src := New(Config{ExtraPairs: map[string]string{"pepe": "PEPEUSDT"}})

	results, err := src.Search(context.Background(), "pepe")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "PEPE", results[0].Symbol)
}

func TestQuotesEmptyInput(t *testing.T) {
	src := New(Config{})
	quotes, err := src.Quotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestHistoryUnknownAsset(t *testing.T) {
	src := New(Config{})
	_, err := src.History(context.Background(), "unlisted-coin", 7)
	assert.Error(t, err)
}

func TestIntervalForDays(t *testing.T) {
	iv, limit := intervalForDays(1)
	assert.Equal(t, "30m", iv)
	assert.Equal(t, 48, limit)

	iv, limit = intervalForDays(7)
	assert.Equal(t, "4h", iv)
	assert.Equal(t, 42, limit)

	iv, limit = intervalForDays(365)
	assert.Equal(t, "1d", iv)
	assert.Equal(t, 365, limit)

	_, limit = intervalForDays(2000)
	assert.Equal(t, 1000, limit)
}

var _ market.Source = (*Source)(nil)
