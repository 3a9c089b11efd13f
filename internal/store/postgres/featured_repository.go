package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/store/query"
	"github.com/wonny/b3lake/backend/internal/store/schema"
)

// FeaturedRepository implements contracts.FeaturedStore over b3_featured
type FeaturedRepository struct {
	pool *pgxpool.Pool
}

// NewFeaturedRepository creates a new featured repository
func NewFeaturedRepository(pool *pgxpool.Pool) *FeaturedRepository {
	return &FeaturedRepository{pool: pool}
}

// Upsert writes featured rows keyed by (ticker, date)
func (r *FeaturedRepository) Upsert(ctx context.Context, rows []contracts.FeaturedRecord) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	sql, err := query.Upsert(schema.FeaturedTable, schema.FeaturedColumns, schema.Key...).Build(dialect)
	if err != nil {
		return 0, err
	}

	return sendBatches(ctx, r.pool, len(rows), func(b *pgx.Batch, i int) {
		b.Queue(sql, schema.FeaturedArgs(dialect, &rows[i])...)
	})
}

// Count returns the number of rows
func (r *FeaturedRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM "b3_featured"`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", schema.FeaturedTable, err)
	}
	return n, nil
}

// ListAssets returns one page of distinct (ticker, company) pairs plus the total
func (r *FeaturedRepository) ListAssets(ctx context.Context, filter contracts.AssetFilter) ([]contracts.AssetSummary, int64, error) {
	b := assetQuery(filter)

	countSQL, countArgs, err := b.BuildCount(dialect)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count assets: %w", err)
	}

	sql, args, err := b.Build(dialect)
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	assets := make([]contracts.AssetSummary, 0)
	for rows.Next() {
		var a contracts.AssetSummary
		if err := rows.Scan(&a.Ticker, &a.Company); err != nil {
			return nil, 0, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, total, rows.Err()
}

func assetQuery(filter contracts.AssetFilter) *query.SelectBuilder {
	b := query.Select(schema.FeaturedTable, "ticker", "company").
		Distinct().
		Where(query.NotNull("ticker"), query.NotNull("company"))
	if filter.Search != "" {
		b.Where(query.Search(filter.Search, "ticker", "company"))
	}
	return b.OrderBy("ticker", query.Asc).OrderBy("company", query.Asc).
		Limit(filter.Limit).
		Offset(filter.Offset)
}
