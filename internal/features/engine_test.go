package features

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/testutil"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

func series(ticker, end string, n int) []contracts.QuoteRecord {
	return testutil.Series(ticker, testutil.Weekdays(testutil.Date(end), n))
}

func TestTransform_MinimumLookback(t *testing.T) {
	engine := NewEngine()

	out, err := engine.Transform(series("PETR4", "2025-09-25", 10))
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = engine.Transform(series("PETR4", "2025-09-25", 20))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "2025-09-25", out[0].Date.Format(contracts.DateLayout))

	out, err = engine.Transform(series("PETR4", "2025-09-25", 30))
	require.NoError(t, err)
	assert.Len(t, out, 30-MaxLookback+1)
}

func TestTransform_AllFeaturesFiniteAndOrdered(t *testing.T) {
	quotes := append(series("VALE3", "2025-09-25", 40), series("ABEV3", "2025-09-25", 35)...)

	out, err := NewEngine().Transform(quotes)
	require.NoError(t, err)
	require.Len(t, out, (40-19)+(35-19))

	for i := range out {
		for j, v := range out[i].Features() {
			assert.True(t, finite(v), "%s %s %s", out[i].Ticker, out[i].Date, contracts.FeatureColumns[j])
		}
		if i == 0 {
			continue
		}
		prev, cur := out[i-1], out[i]
		if prev.Ticker == cur.Ticker {
			assert.True(t, prev.Date.Before(cur.Date), "dates must strictly increase")
		} else {
			assert.Less(t, prev.Ticker, cur.Ticker)
		}
	}
	assert.Equal(t, "ABEV3", out[0].Ticker)
}

func TestTransform_OrderIndependentAndIdempotent(t *testing.T) {
	quotes := append(series("VALE3", "2025-09-25", 40), series("PETR4", "2025-09-25", 30)...)
	engine := NewEngine()

	first, err := engine.Transform(quotes)
	require.NoError(t, err)

	again, err := engine.Transform(quotes)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	shuffled := make([]contracts.QuoteRecord, len(quotes))
	copy(shuffled, quotes)
	rnd := rand.New(rand.NewSource(7))
	rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	fromShuffled, err := engine.Transform(shuffled)
	require.NoError(t, err)
	assert.Equal(t, first, fromShuffled)
}

func TestTransform_TickersDoNotShareHistory(t *testing.T) {
	quotes := append(series("VALE3", "2025-09-25", 30), series("PETR4", "2025-09-25", 10)...)

	out, err := NewEngine().Transform(quotes)
	require.NoError(t, err)
	for _, rec := range out {
		assert.Equal(t, "VALE3", rec.Ticker)
	}
	assert.Len(t, out, 11)
}

func TestTransform_KnownValues(t *testing.T) {
	quotes := series("VALE3", "2025-09-25", 26)
	out, err := NewEngine().Transform(quotes)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	last := out[len(out)-1]
	q := quotes[len(quotes)-1]
	closeF, openF := contracts.Float(q.Close), contracts.Float(q.Open)

	assert.Equal(t, "2025-09-25", last.Date.Format(contracts.DateLayout))
	assert.Equal(t, 3, last.DayOfWeek) // Thursday
	assert.InDelta(t, (closeF-openF)/openF, last.DailyReturn, 1e-12)
	assert.InDelta(t, contracts.Float(q.BestSell)-contracts.Float(q.BestBuy), last.BestBuySellSpread, 1e-9)
	assert.Equal(t, 1, last.AssetTypeON)
	assert.Equal(t, 0, last.MarketTypeNM)

	var sum float64
	for _, r := range quotes[len(quotes)-10:] {
		sum += contracts.Float(r.Close)
	}
	assert.InDelta(t, sum/10, last.MovingAvg10, 1e-9)

	prev5 := contracts.Float(quotes[len(quotes)-6].Close)
	assert.InDelta(t, (closeF-prev5)/prev5, last.PriceMomentum5, 1e-12)

	closes := make([]float64, len(quotes))
	for i := range quotes {
		closes[i] = contracts.Float(quotes[i].Close)
	}
	assert.InDelta(t, ema(closes, 12)[25]-ema(closes, 26)[25], last.MACD, 1e-12)
	assert.GreaterOrEqual(t, last.RSI14, 0.0)
	assert.LessOrEqual(t, last.RSI14, 100.0)
	assert.GreaterOrEqual(t, last.Stochastic14, 0.0)
	assert.LessOrEqual(t, last.Stochastic14, 100.0)
}

func TestTransform_MarketFlag(t *testing.T) {
	tests := []struct {
		name        string
		market      string
		placeholder string
		want        int
	}{
		{"nm market", "10NM", "", 1},
		{"plain market", "000", "", 0},
		{"absent market uses default placeholder", "", "", 0},
		{"absent market uses configured placeholder", "", "NM1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotes := series("PETR4", "2025-09-25", 20)
			for i := range quotes {
				quotes[i].Market = tt.market
			}

			out, err := NewEngine(WithPlaceholderMarket(tt.placeholder)).Transform(quotes)
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].MarketTypeNM)
		})
	}
}

func TestTransform_HighBreakout(t *testing.T) {
	quotes := series("ITUB4", "2025-09-25", 20)
	quotes[19].High = decimal.NewNullDecimal(decimal.New(99999, -2))

	out, err := NewEngine().Transform(quotes)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].HighBreakout20)

	quotes[19].High = decimal.NewNullDecimal(decimal.New(1, -2))
	out, err = NewEngine().Transform(quotes)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].HighBreakout20)
}

func TestTransform_UndefinedValuesDropRows(t *testing.T) {
	quotes := series("BBAS3", "2025-09-25", 40)
	quotes[25].Close = decimal.NullDecimal{}

	out, err := NewEngine().Transform(quotes)
	require.NoError(t, err)
	// rows 19..24 survive; every later row has the gap inside a 20-day window
	assert.Len(t, out, 6)
	assert.Equal(t, quotes[24].Date, out[len(out)-1].Date)
}

func TestTransform_DivisionByZeroDropsRow(t *testing.T) {
	quotes := series("BBAS3", "2025-09-25", 21)
	quotes[20].BestBuy = decimal.NewNullDecimal(decimal.Zero)

	out, err := NewEngine().Transform(quotes)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, quotes[19].Date, out[0].Date)
	for _, v := range out[0].Features() {
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestTransform_Duplicates(t *testing.T) {
	quotes := series("WEGE3", "2025-09-25", 25)
	want, err := NewEngine().Transform(quotes)
	require.NoError(t, err)

	var buf bytes.Buffer
	engine := NewEngine(WithLogger(logger.NewWithWriter(&buf, "warn")))

	dup := quotes[22]
	dup.Ticker = " wege3 "
	withDup := append(append([]contracts.QuoteRecord{}, quotes...), dup)

	got, err := engine.Transform(withDup)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Contains(t, buf.String(), `"duplicates":1`)
}

func TestTransform_ConflictingDuplicateIsOrderIndependent(t *testing.T) {
	quotes := series("VALE3", "2025-09-25", 25)
	last := len(quotes) - 1

	conflict := quotes[last]
	conflict.Close = decimal.NewNullDecimal(conflict.Close.Decimal.Add(decimal.NewFromInt(3)))
	conflict.Volume = contracts.Count(1)

	appended := append(append([]contracts.QuoteRecord{}, quotes...), conflict)
	prepended := append([]contracts.QuoteRecord{conflict}, quotes...)

	engine := NewEngine()
	fromAppended, err := engine.Transform(appended)
	require.NoError(t, err)
	fromPrepended, err := engine.Transform(prepended)
	require.NoError(t, err)
	assert.Equal(t, fromAppended, fromPrepended)

	// the higher close wins
	withWinner := append([]contracts.QuoteRecord{}, quotes...)
	withWinner[last] = conflict
	want, err := engine.Transform(withWinner)
	require.NoError(t, err)
	assert.Equal(t, want, fromAppended)
}

func TestPreferQuote(t *testing.T) {
	base := testutil.Quote("PETR4", testutil.Date("2025-09-25"), 3)

	higherVolume := base
	higherVolume.Volume = contracts.Count(base.Volume.Int64 + 1)
	assert.True(t, preferQuote(higherVolume, base))
	assert.False(t, preferQuote(base, higherVolume))

	noClose := base
	noClose.Close = decimal.NullDecimal{}
	assert.True(t, preferQuote(base, noClose))

	assert.False(t, preferQuote(base, base))
}

func TestTransform_MissingRequiredField(t *testing.T) {
	quotes := series("PETR4", "2025-09-25", 5)

	noClose := make([]contracts.QuoteRecord, len(quotes))
	copy(noClose, quotes)
	for i := range noClose {
		noClose[i].Close = decimal.NullDecimal{}
	}
	_, err := NewEngine().Transform(noClose)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "close")

	noTicker := make([]contracts.QuoteRecord, len(quotes))
	copy(noTicker, quotes)
	for i := range noTicker {
		noTicker[i].Ticker = "  "
	}
	_, err = NewEngine().Transform(noTicker)
	assert.True(t, errors.Is(err, ErrMissingField))

	// a single missing value is not structural
	partial := make([]contracts.QuoteRecord, len(quotes))
	copy(partial, quotes)
	partial[0].Open = decimal.NullDecimal{}
	_, err = NewEngine().Transform(partial)
	assert.NoError(t, err)
}

func TestTransform_Empty(t *testing.T) {
	out, err := NewEngine().Transform(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
