package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/store/query"
	"github.com/wonny/b3lake/backend/internal/store/schema"
)

const dialect = query.Postgres

// batchSize bounds one pgx.Batch round trip
const batchSize = 1000

// QuoteRepository implements contracts.QuoteStore over b3_hist
// ⭐ SSOT: 시세 저장소는 여기서만
type QuoteRepository struct {
	pool *pgxpool.Pool
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(pool *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

func (r *QuoteRepository) query(ctx context.Context, b *query.SelectBuilder) ([]contracts.QuoteRecord, error) {
	sql, args, err := b.Build(dialect)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sql, args...)
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
	reverse(quotes)
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
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM "b3_hist"`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", schema.HistTable, err)
	}
	return n, nil
}

// MaxDate returns the latest trade date in the table
func (r *QuoteRepository) MaxDate(ctx context.Context) (time.Time, error) {
	var d *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX("date") FROM "b3_hist"`).Scan(&d)
	if err != nil {
		return time.Time{}, fmt.Errorf("max date: %w", err)
	}
	if d == nil {
		return time.Time{}, contracts.ErrNotFound
	}
	return contracts.DateOnly(*d), nil
}

// Upsert writes quotes keyed by (ticker, date) in batches
func (r *QuoteRepository) Upsert(ctx context.Context, quotes []contracts.QuoteRecord) (int, error) {
	if len(quotes) == 0 {
		return 0, nil
	}

	sql, err := query.Upsert(schema.HistTable, schema.HistColumns, schema.Key...).Build(dialect)
	if err != nil {
		return 0, err
	}

	return sendBatches(ctx, r.pool, len(quotes), func(b *pgx.Batch, i int) {
		b.Queue(sql, schema.QuoteArgs(dialect, &quotes[i])...)
	})
}

// sendBatches queues n statements in chunks and executes them
func sendBatches(ctx context.Context, pool *pgxpool.Pool, n int, queue func(b *pgx.Batch, i int)) (int, error) {
	written := 0
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}

		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			queue(batch, i)
		}

		br := pool.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return written, fmt.Errorf("batch row %d: %w", i, err)
			}
			written++
		}
		if err := br.Close(); err != nil {
			return written, fmt.Errorf("close batch: %w", err)
		}
	}
	return written, nil
}

func reverse(quotes []contracts.QuoteRecord) {
	for i, j := 0, len(quotes)-1; i < j; i, j = i+1, j-1 {
		quotes[i], quotes[j] = quotes[j], quotes[i]
	}
}

