package contracts

import (
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used across stores, API and CLI
const DateLayout = "2006-01-02"

// ErrNotFound is returned by store lookups that match no row
var ErrNotFound = errors.New("not found")

// QuoteRecord is one trading day of one ticker as published by the exchange.
// Unparseable numbers are carried as invalid (null) values.
// ⭐ SSOT: b3_hist 한 행
type QuoteRecord struct {
	Date     time.Time
	Ticker   string // trimmed, upper-cased
	Company  string
	Type     string // instrument type code, e.g. "ON  NM"
	Market   string // market code, e.g. "010"
	Currency string
	ISIN     string

	Open     decimal.NullDecimal
	High     decimal.NullDecimal
	Low      decimal.NullDecimal
	Avg      decimal.NullDecimal
	Close    decimal.NullDecimal
	BestBuy  decimal.NullDecimal
	BestSell decimal.NullDecimal

	Trades   sql.NullInt64
	Volume   sql.NullInt64
	Turnover decimal.NullDecimal
}

// QuoteKey identifies a quote row
type QuoteKey struct {
	Ticker string
	Date   string // DateLayout
}

// Key returns the (ticker, date) identity of the record
func (q *QuoteRecord) Key() QuoteKey {
	return QuoteKey{Ticker: NormalizeTicker(q.Ticker), Date: q.Date.Format(DateLayout)}
}

// NormalizeTicker trims and upper-cases a symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ParseDate parses a YYYY-MM-DD date in UTC
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// DateOnly truncates t to its UTC calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Float converts a nullable decimal to float64, NaN when invalid
func Float(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return math.NaN()
	}
	f, _ := d.Decimal.Float64()
	return f
}

// IntFloat converts a nullable integer to float64, NaN when invalid
func IntFloat(n sql.NullInt64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return float64(n.Int64)
}

// Price builds a valid nullable decimal from a float (tests, fixtures)
func Price(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}

// Count builds a valid nullable integer
func Count(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
