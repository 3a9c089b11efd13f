// Package storetest runs the same behavioural checks against every store backend.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/testutil"
)

// Run exercises a freshly created, empty lake
func Run(t *testing.T, lake contracts.Lake) {
	ctx := context.Background()
	require.NoError(t, lake.EnsureSchema(ctx))
	require.NoError(t, lake.EnsureSchema(ctx), "schema creation is idempotent")

	t.Run("empty", func(t *testing.T) { testEmpty(t, lake.Quotes()) })
	t.Run("quotes", func(t *testing.T) { testQuotes(t, lake.Quotes()) })
	t.Run("featured", func(t *testing.T) { testFeatured(t, lake.Featured()) })
}

func testEmpty(t *testing.T, store contracts.QuoteStore) {
	ctx := context.Background()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.MaxDate(ctx)
	assert.True(t, errors.Is(err, contracts.ErrNotFound))

	_, err = store.Latest(ctx, "VALE3")
	assert.True(t, errors.Is(err, contracts.ErrNotFound))
}

func testQuotes(t *testing.T, store contracts.QuoteStore) {
	ctx := context.Background()
	end := testutil.Date("2025-09-25")
	vale := testutil.Series("VALE3", testutil.Weekdays(end, 30))
	petr := testutil.Series("PETR4", testutil.Weekdays(end, 5))
	vale[3].Close = decimal.NullDecimal{}

	written, err := store.Upsert(ctx, append(append([]contracts.QuoteRecord{}, vale...), petr...))
	require.NoError(t, err)
	assert.Equal(t, 35, written)

	// re-ingesting the same keys does not duplicate rows
	updated := vale[29]
	updated.Company = "VALE RENAMED"
	_, err = store.Upsert(ctx, []contracts.QuoteRecord{updated})
	require.NoError(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(35), n)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 35)
	assert.Equal(t, "PETR4", all[0].Ticker)
	assert.Equal(t, "VALE3", all[34].Ticker)
	assert.False(t, all[5+3].Close.Valid, "null prices survive the round trip")
	assert.True(t, all[5+4].Close.Decimal.Equal(vale[4].Close.Decimal))
	assert.Equal(t, vale[4].Volume, all[5+4].Volume)

	window, err := store.Range(ctx, " vale3", end.AddDate(0, 0, -7), end)
	require.NoError(t, err)
	require.Len(t, window, 6)
	assert.Equal(t, end, window[5].Date)
	assert.True(t, window[0].Date.Before(window[1].Date))

	before, err := store.LatestBefore(ctx, "VALE3", end, 3)
	require.NoError(t, err)
	require.Len(t, before, 3)
	assert.Equal(t, vale[26].Date, before[0].Date)
	assert.Equal(t, vale[28].Date, before[2].Date)

	latest, err := store.Latest(ctx, "VALE3")
	require.NoError(t, err)
	assert.Equal(t, end, latest.Date)
	assert.Equal(t, "VALE RENAMED", latest.Company)

	got, err := store.Get(ctx, "PETR4", petr[2].Date)
	require.NoError(t, err)
	assert.True(t, got.Open.Decimal.Equal(petr[2].Open.Decimal))
	assert.Equal(t, petr[2].Type, got.Type)

	_, err = store.Get(ctx, "PETR4", end.AddDate(0, 0, 1))
	assert.True(t, errors.Is(err, contracts.ErrNotFound))

	maxDate, err := store.MaxDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, end, maxDate)
}

func testFeatured(t *testing.T, store contracts.FeaturedStore) {
	ctx := context.Background()
	day := testutil.Date("2025-09-25")

	rows := []contracts.FeaturedRecord{
		{Date: day, Ticker: "PETR4", Company: "PETROBRAS", RSI14: 40, DayOfWeek: 3},
		{Date: day.AddDate(0, 0, -1), Ticker: "PETR4", Company: "PETROBRAS"},
		{Date: day, Ticker: "PETR3", Company: "PETROBRAS"},
		{Date: day, Ticker: "VALE3", Company: "VALE"},
		{Date: day, Ticker: "BRAP4", Company: "BRADESPAR", MarketTypeNM: 1},
	}
	written, err := store.Upsert(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 5, written)

	_, err = store.Upsert(ctx, rows[:1])
	require.NoError(t, err)
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	assets, total, err := store.ListAssets(ctx, contracts.AssetFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []contracts.AssetSummary{
		{Ticker: "BRAP4", Company: "BRADESPAR"},
		{Ticker: "PETR3", Company: "PETROBRAS"},
	}, assets)

	assets, total, err = store.ListAssets(ctx, contracts.AssetFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, assets, 2)
	assert.Equal(t, "VALE3", assets[1].Ticker)

	assets, total, err = store.ListAssets(ctx, contracts.AssetFilter{Search: "PETRO", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, assets, 2)

	assets, total, err = store.ListAssets(ctx, contracts.AssetFilter{Search: "ZZZ", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, assets)
}
