package features

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/pkg/logger"
	"github.com/wonny/b3lake/backend/pkg/metrics"
)

// ErrMissingField is returned when a required raw field is absent from every record
var ErrMissingField = errors.New("required field missing from every record")

// DefaultPlaceholderMarket replaces an absent market code
const DefaultPlaceholderMarket = "000"

// Indicator windows
const (
	volatilityWindow = 5
	movingAvgWindow  = 10
	emaFastSpan      = 12
	emaSlowSpan      = 26
	rsiWindow        = 14
	volumeAvgWindow  = 10
	momentumLag      = 5
	breakoutWindow   = 20
	bollingerWindow  = 20
	stochasticWindow = 14
)

// MaxLookback is the longest window any feature needs
const MaxLookback = 20

// Engine turns quote history into engineered feature rows.
// It performs no I/O and holds no state between calls.
// ⭐ SSOT: 피처 계산은 여기서만
type Engine struct {
	placeholderMarket string
	logger            *logger.Logger
	metrics           *metrics.Metrics
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) { e.logger = log }
}

// WithMetrics records transform latency
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPlaceholderMarket overrides the market code used when none is present
func WithPlaceholderMarket(code string) Option {
	return func(e *Engine) {
		if code != "" {
			e.placeholderMarket = code
		}
	}
}

// NewEngine creates a feature engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		placeholderMarket: DefaultPlaceholderMarket,
		logger:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transform computes features for every ticker in quotes.
// Input order does not matter. Output is sorted by (ticker, date) and holds
// only rows whose sixteen features are all finite.
func (e *Engine) Transform(quotes []contracts.QuoteRecord) ([]contracts.FeaturedRecord, error) {
	start := time.Now()
	if len(quotes) == 0 {
		return nil, nil
	}

	if err := checkRequired(quotes); err != nil {
		return nil, err
	}

	groups := e.group(quotes)

	tickers := make([]string, 0, len(groups))
	for ticker := range groups {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	var out []contracts.FeaturedRecord
	for _, ticker := range tickers {
		out = append(out, e.transformTicker(groups[ticker])...)
	}

	elapsed := time.Since(start)
	e.metrics.ObserveTransform(elapsed)
	e.logger.WithFields(map[string]interface{}{
		"input_rows":  len(quotes),
		"tickers":     len(tickers),
		"output_rows": len(out),
		"elapsed_ms":  elapsed.Milliseconds(),
	}).Debug("Feature transform completed")

	return out, nil
}

func checkRequired(quotes []contracts.QuoteRecord) error {
	var hasTicker, hasDate, hasClose, hasOpen bool
	for i := range quotes {
		q := &quotes[i]
		hasTicker = hasTicker || strings.TrimSpace(q.Ticker) != ""
		hasDate = hasDate || !q.Date.IsZero()
		hasClose = hasClose || q.Close.Valid
		hasOpen = hasOpen || q.Open.Valid
	}

	switch {
	case !hasTicker:
		return fmt.Errorf("ticker: %w", ErrMissingField)
	case !hasDate:
		return fmt.Errorf("date: %w", ErrMissingField)
	case !hasClose:
		return fmt.Errorf("close: %w", ErrMissingField)
	case !hasOpen:
		return fmt.Errorf("open: %w", ErrMissingField)
	}
	return nil
}

// group splits quotes per ticker, date-ascending. Of duplicate (ticker, date) records the
// one ranked highest by preferQuote is kept. Rows without a ticker or date are skipped.
func (e *Engine) group(quotes []contracts.QuoteRecord) map[string][]contracts.QuoteRecord {
	kept := make(map[contracts.QuoteKey]contracts.QuoteRecord, len(quotes))
	duplicates, unkeyed := 0, 0

	for _, q := range quotes {
		key := q.Key()
		if key.Ticker == "" || q.Date.IsZero() {
			unkeyed++
			continue
		}
		q.Ticker = key.Ticker
		q.Date = contracts.DateOnly(q.Date)
		if prev, dup := kept[key]; dup {
			duplicates++
			if !preferQuote(q, prev) {
				continue
			}
		}
		kept[key] = q
	}

	groups := make(map[string][]contracts.QuoteRecord)
	for key, q := range kept {
		groups[key.Ticker] = append(groups[key.Ticker], q)
	}
	for _, rows := range groups {
		sort.Slice(rows, func(i, j int) bool {
			return rows[i].Date.Before(rows[j].Date)
		})
	}

	if duplicates > 0 || unkeyed > 0 {
		e.logger.WithFields(map[string]interface{}{
			"duplicates": duplicates,
			"unkeyed":    unkeyed,
		}).Warn("Dropped quotes without a unique (ticker, date)")
	}
	return groups
}

// preferQuote reports whether a outranks b among records sharing (ticker, date):
// greater close, then volume, open, high, low, best buy, best sell, then company name.
func preferQuote(a, b contracts.QuoteRecord) bool {
	if c := compareNull(a.Close, b.Close); c != 0 {
		return c > 0
	}
	if c := compareCount(a.Volume, b.Volume); c != 0 {
		return c > 0
	}
	for _, pair := range [][2]decimal.NullDecimal{
		{a.Open, b.Open},
		{a.High, b.High},
		{a.Low, b.Low},
		{a.BestBuy, b.BestBuy},
		{a.BestSell, b.BestSell},
	} {
		if c := compareNull(pair[0], pair[1]); c != 0 {
			return c > 0
		}
	}
	return a.Company > b.Company
}

// compareNull orders invalid values below every valid one
func compareNull(a, b decimal.NullDecimal) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	}
	return a.Decimal.Cmp(b.Decimal)
}

func compareCount(a, b sql.NullInt64) int {
	switch {
	case !a.Valid && !b.Valid:
		return 0
	case !a.Valid:
		return -1
	case !b.Valid:
		return 1
	case a.Int64 < b.Int64:
		return -1
	case a.Int64 > b.Int64:
		return 1
	}
	return 0
}

// transformTicker computes one ticker's features over its date-ordered rows
func (e *Engine) transformTicker(rows []contracts.QuoteRecord) []contracts.FeaturedRecord {
	n := len(rows)
	open := make([]float64, n)
	high := make([]float64, n)
	closes := make([]float64, n)
	bestBuy := make([]float64, n)
	bestSell := make([]float64, n)
	volume := make([]float64, n)
	for i := range rows {
		open[i] = contracts.Float(rows[i].Open)
		high[i] = contracts.Float(rows[i].High)
		closes[i] = contracts.Float(rows[i].Close)
		bestBuy[i] = contracts.Float(rows[i].BestBuy)
		bestSell[i] = contracts.Float(rows[i].BestSell)
		volume[i] = contracts.IntFloat(rows[i].Volume)
	}

	dailyReturn := make([]float64, n)
	for i := range rows {
		dailyReturn[i] = (closes[i] - open[i]) / open[i]
	}

	volatility := rollingStd(dailyReturn, volatilityWindow)
	movingAvg := rollingMean(closes, movingAvgWindow)
	emaFast := ema(closes, emaFastSpan)
	emaSlow := ema(closes, emaSlowSpan)
	rsi14 := rsi(closes, rsiWindow)
	volumeChange := pctChange(volume, 1)
	avgVolume := rollingMean(volume, volumeAvgWindow)
	momentum := pctChange(closes, momentumLag)
	highMax := rollingMax(high, breakoutWindow)
	bollMean := rollingMean(closes, bollingerWindow)
	bollStd := rollingStd(closes, bollingerWindow)
	low14 := rollingMin(closes, stochasticWindow)
	high14 := rollingMax(closes, stochasticWindow)

	out := make([]contracts.FeaturedRecord, 0, n)
	for i := range rows {
		market := rows[i].Market
		if strings.TrimSpace(market) == "" {
			market = e.placeholderMarket
		}

		breakout := 0
		if !math.IsNaN(highMax[i]) && high[i] == highMax[i] {
			breakout = 1
		}

		rec := contracts.FeaturedRecord{
			Date:               rows[i].Date,
			Ticker:             rows[i].Ticker,
			Company:            rows[i].Company,
			DailyReturn:        dailyReturn[i],
			RollingVolatility5: volatility[i],
			MovingAvg10:        movingAvg[i],
			MACD:               emaFast[i] - emaSlow[i],
			RSI14:              rsi14[i],
			VolumeChange:       volumeChange[i],
			AvgVolume10:        avgVolume[i],
			BestBuySellSpread:  bestSell[i] - bestBuy[i],
			CloseToBestBuy:     (closes[i] - bestBuy[i]) / bestBuy[i],
			MarketTypeNM:       flag(strings.Contains(market, "NM")),
			AssetTypeON:        flag(strings.Contains(rows[i].Type, "ON")),
			DayOfWeek:          weekday(rows[i].Date),
			PriceMomentum5:     momentum[i],
			HighBreakout20:     breakout,
			BollingerUpper:     bollMean[i] + 2*bollStd[i],
			Stochastic14:       100 * (closes[i] - low14[i]) / (high14[i] - low14[i]),
		}

		if complete(&rec) {
			out = append(out, rec)
		}
	}
	return out
}

func complete(rec *contracts.FeaturedRecord) bool {
	for _, v := range rec.Features() {
		if !finite(v) {
			return false
		}
	}
	return true
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// weekday maps Monday to 0 and Sunday to 6
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
