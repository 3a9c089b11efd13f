package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/store/query"
	"github.com/wonny/b3lake/backend/internal/store/schema"
)

const dialect = query.SQLite

// QuoteRepository implements contracts.QuoteStore over b3_hist in SQLite
type QuoteRepository struct {
	db *sql.DB
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) query(ctx context.Context, b *query.SelectBuilder) ([]contracts.QuoteRecord, error) {
	stmt, args, err := b.Build(dialect)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", schema.HistTable, err)
	}
	defer rows.Close()

	var quotes []contracts.QuoteRecord
	for rows.Next() {
		q, err := schema.ScanQuote(rows, dialect)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", schema.HistTable, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func (r *QuoteRepository) one(ctx context.Context, b *query.SelectBuilder) (*contracts.QuoteRecord, error) {
	quotes, err := r.query(ctx, b.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, contracts.ErrNotFound
	}
	return &quotes[0], nil
}

func hist() *query.SelectBuilder {
	return query.Select(schema.HistTable, schema.HistColumns...)
}

// All returns every row ordered by (ticker, date)
func (r *QuoteRepository) All(ctx context.Context) ([]contracts.QuoteRecord, error) {
	return r.query(ctx, hist().OrderBy("ticker", query.Asc).OrderBy("date", query.Asc))
}

// Range returns one ticker's rows in [from, to], ascending
func (r *QuoteRepository) Range(ctx context.Context, ticker string, from, to time.Time) ([]contracts.QuoteRecord, error) {
	return r.query(ctx, hist().
		Where(query.TickerEq(ticker), query.DateGTE("date", from), query.DateLTE("date", to)).
		OrderBy("date", query.Asc))
}

// LatestBefore returns up to n rows strictly before the date, ascending
func (r *QuoteRepository) LatestBefore(ctx context.Context, ticker string, before time.Time, n int) ([]contracts.QuoteRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	quotes, err := r.query(ctx, hist().
		Where(query.TickerEq(ticker), query.DateLT("date", before)).
		OrderBy("date", query.Desc).
		Limit(n))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(quotes)-1; i < j; i, j = i+1, j-1 {
		quotes[i], quotes[j] = quotes[j], quotes[i]
	}
	return quotes, nil
}

// Latest returns the most recent row of a ticker
func (r *QuoteRepository) Latest(ctx context.Context, ticker string) (*contracts.QuoteRecord, error) {
	return r.one(ctx, hist().Where(query.TickerEq(ticker)).OrderBy("date", query.Desc))
}

// Get returns the row of a ticker on a date
func (r *QuoteRepository) Get(ctx context.Context, ticker string, date time.Time) (*contracts.QuoteRecord, error) {
	return r.one(ctx, hist().Where(query.TickerEq(ticker), query.DateEq("date", date)))
}

// Count returns the number of rows
func (r *QuoteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "b3_hist"`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", schema.HistTable, err)
	}
	return n, nil
}

// MaxDate returns the latest trade date in the table
func (r *QuoteRepository) MaxDate(ctx context.Context) (time.Time, error) {
	var d sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX("date") FROM "b3_hist"`).Scan(&d); err != nil {
		return time.Time{}, fmt.Errorf("max date: %w", err)
	}
	if !d.Valid {
		return time.Time{}, contracts.ErrNotFound
	}
	return contracts.ParseDate(d.String)
}

// Upsert writes quotes keyed by (ticker, date) in one transaction
func (r *QuoteRepository) Upsert(ctx context.Context, quotes []contracts.QuoteRecord) (int, error) {
	if len(quotes) == 0 {
		return 0, nil
	}
	stmt, err := query.Upsert(schema.HistTable, schema.HistColumns, schema.Key...).Build(dialect)
	if err != nil {
		return 0, err
	}
	return execInTx(ctx, r.db, stmt, len(quotes), func(i int) []interface{} {
		return schema.QuoteArgs(dialect, &quotes[i])
	})
}

// execInTx runs one prepared statement n times inside a transaction
func execInTx(ctx context.Context, db *sql.DB, stmt string, n int, args func(i int) []interface{}) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer prepared.Close()

	for i := 0; i < n; i++ {
		if _, err := prepared.ExecContext(ctx, args(i)...); err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
