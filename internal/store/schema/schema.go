// Package schema holds the b3_hist / b3_featured column layout shared by store backends.
package schema

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/store/query"
)

// Table names
const (
	HistTable     = "b3_hist"
	FeaturedTable = "b3_featured"
)

// HistColumns is the b3_hist column order used for reads and writes.
// Prices and turnover are integer cents.
var HistColumns = []string{
	"date", "ticker", "company", "type", "market", "currency", "isin",
	"open", "high", "low", "avg", "close", "best_buy", "best_sell",
	"trades", "volume", "turnover",
}

// FeaturedColumns is the b3_featured column order
var FeaturedColumns = append([]string{"date", "ticker", "company"}, contracts.FeatureColumns...)

// Key is the primary key of both tables
var Key = []string{"ticker", "date"}

// flagColumns are integer-valued features
var flagColumns = map[string]bool{
	"market_type_NM":   true,
	"asset_type_ON":    true,
	"day_of_week":      true,
	"high_breakout_20": true,
}

// Types maps SQL types per dialect
type Types struct {
	Date  string
	Text  string
	Int   string
	Float string
}

// TypesFor returns the column types of a dialect
func TypesFor(d query.Dialect) Types {
	if d == query.SQLite {
		// TEXT dates keep the driver from converting to time.Time
		return Types{Date: "TEXT", Text: "TEXT", Int: "INTEGER", Float: "REAL"}
	}
	return Types{Date: "DATE", Text: "TEXT", Int: "BIGINT", Float: "DOUBLE PRECISION"}
}

// CreateStatements returns create-if-absent DDL for both tables
func CreateStatements(d query.Dialect) []string {
	t := TypesFor(d)

	hist := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	"date" %s NOT NULL,
	"ticker" %s NOT NULL,
	"company" %s NOT NULL DEFAULT '',
	"type" %s NOT NULL DEFAULT '',
	"market" %s NOT NULL DEFAULT '',
	"currency" %s NOT NULL DEFAULT '',
	"isin" %s NOT NULL DEFAULT '',
	"open" %s, "high" %s, "low" %s, "avg" %s, "close" %s, "best_buy" %s, "best_sell" %s,
	"trades" %s, "volume" %s, "turnover" %s,
	PRIMARY KEY ("ticker", "date")
)`, HistTable,
		t.Date, t.Text, t.Text, t.Text, t.Text, t.Text, t.Text,
		t.Int, t.Int, t.Int, t.Int, t.Int, t.Int, t.Int,
		t.Int, t.Int, t.Int)

	featured := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (\n\t\"date\" %s NOT NULL,\n\t\"ticker\" %s NOT NULL,\n\t\"company\" %s NOT NULL DEFAULT ''",
		FeaturedTable, t.Date, t.Text, t.Text)
	for _, col := range contracts.FeatureColumns {
		typ := t.Float
		if flagColumns[col] {
			typ = t.Int
		}
		featured += fmt.Sprintf(",\n\t%q %s NOT NULL", col, typ)
	}
	featured += ",\n\tPRIMARY KEY (\"ticker\", \"date\")\n)"

	return []string{
		hist,
		featured,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "idx_%s_date" ON %q ("date")`, HistTable, HistTable),
	}
}

// ToCents converts a nullable decimal to nullable integer cents
func ToCents(d decimal.NullDecimal) sql.NullInt64 {
	if !d.Valid {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: d.Decimal.Shift(2).Round(0).IntPart(), Valid: true}
}

// FromCents converts nullable integer cents back to a decimal
func FromCents(n sql.NullInt64) decimal.NullDecimal {
	if !n.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.New(n.Int64, -2))
}

// QuoteArgs returns q's values in HistColumns order
func QuoteArgs(d query.Dialect, q *contracts.QuoteRecord) []interface{} {
	return []interface{}{
		query.DateValue(d, q.Date),
		contracts.NormalizeTicker(q.Ticker),
		q.Company, q.Type, q.Market, q.Currency, q.ISIN,
		ToCents(q.Open), ToCents(q.High), ToCents(q.Low), ToCents(q.Avg),
		ToCents(q.Close), ToCents(q.BestBuy), ToCents(q.BestSell),
		q.Trades, q.Volume, ToCents(q.Turnover),
	}
}

// FeaturedArgs returns r's values in FeaturedColumns order
func FeaturedArgs(d query.Dialect, r *contracts.FeaturedRecord) []interface{} {
	args := []interface{}{query.DateValue(d, r.Date), r.Ticker, r.Company}
	for i, v := range r.Features() {
		if flagColumns[contracts.FeatureColumns[i]] {
			args = append(args, int64(v))
			continue
		}
		args = append(args, v)
	}
	return args
}

// Scanner is satisfied by pgx.Row(s) and *sql.Row(s)
type Scanner interface {
	Scan(dest ...interface{}) error
}

// dateDest scans a date column per dialect
type dateDest struct {
	dialect query.Dialect
	t       time.Time
	s       string
}

func (d *dateDest) target() interface{} {
	if d.dialect == query.SQLite {
		return &d.s
	}
	return &d.t
}

func (d *dateDest) value() (time.Time, error) {
	if d.dialect == query.SQLite {
		t, err := contracts.ParseDate(d.s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse stored date %q: %w", d.s, err)
		}
		return t, nil
	}
	return contracts.DateOnly(d.t), nil
}

// ScanQuote reads one row selected with HistColumns
func ScanQuote(s Scanner, d query.Dialect) (contracts.QuoteRecord, error) {
	var (
		q      contracts.QuoteRecord
		date   = dateDest{dialect: d}
		prices [8]sql.NullInt64 // open high low avg close best_buy best_sell turnover
	)

	err := s.Scan(
		date.target(), &q.Ticker, &q.Company, &q.Type, &q.Market, &q.Currency, &q.ISIN,
		&prices[0], &prices[1], &prices[2], &prices[3], &prices[4], &prices[5], &prices[6],
		&q.Trades, &q.Volume, &prices[7],
	)
	if err != nil {
		return q, err
	}

	if q.Date, err = date.value(); err != nil {
		return q, err
	}
	q.Open = FromCents(prices[0])
	q.High = FromCents(prices[1])
	q.Low = FromCents(prices[2])
	q.Avg = FromCents(prices[3])
	q.Close = FromCents(prices[4])
	q.BestBuy = FromCents(prices[5])
	q.BestSell = FromCents(prices[6])
	q.Turnover = FromCents(prices[7])
	return q, nil
}

// ScanFeatured reads one row selected with FeaturedColumns
func ScanFeatured(s Scanner, d query.Dialect) (contracts.FeaturedRecord, error) {
	var (
		r      contracts.FeaturedRecord
		date   = dateDest{dialect: d}
		values = make([]float64, len(contracts.FeatureColumns))
		flags  = make([]int64, len(contracts.FeatureColumns))
	)

	dest := []interface{}{date.target(), &r.Ticker, &r.Company}
	for i, col := range contracts.FeatureColumns {
		if flagColumns[col] {
			dest = append(dest, &flags[i])
		} else {
			dest = append(dest, &values[i])
		}
	}
	if err := s.Scan(dest...); err != nil {
		return r, err
	}

	for i, col := range contracts.FeatureColumns {
		if flagColumns[col] {
			values[i] = float64(flags[i])
		}
	}
	if err := r.SetFeatures(values); err != nil {
		return r, err
	}

	var err error
	r.Date, err = date.value()
	return r, err
}
