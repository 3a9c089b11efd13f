package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: 저장소 인터페이스 정의는 여기서만

// QuoteStore reads and writes b3_hist
type QuoteStore interface {
	// All returns every row ordered by (ticker, date)
	All(ctx context.Context) ([]QuoteRecord, error)
	// Range returns rows of one ticker with from <= date <= to, ascending
	Range(ctx context.Context, ticker string, from, to time.Time) ([]QuoteRecord, error)
	// LatestBefore returns up to n rows strictly before the date, ascending
	LatestBefore(ctx context.Context, ticker string, before time.Time, n int) ([]QuoteRecord, error)
	Latest(ctx context.Context, ticker string) (*QuoteRecord, error)
	Get(ctx context.Context, ticker string, date time.Time) (*QuoteRecord, error)
	Count(ctx context.Context) (int64, error)
	MaxDate(ctx context.Context) (time.Time, error)
	// Upsert writes rows keyed by (ticker, date) and returns how many were written
	Upsert(ctx context.Context, quotes []QuoteRecord) (int, error)
}

// FeaturedStore reads and writes b3_featured
type FeaturedStore interface {
	Upsert(ctx context.Context, rows []FeaturedRecord) (int, error)
	Count(ctx context.Context) (int64, error)
	// ListAssets returns one page of distinct (ticker, company) pairs plus the total
	ListAssets(ctx context.Context, filter AssetFilter) ([]AssetSummary, int64, error)
}

// Lake bundles both stores of one backend
type Lake interface {
	Quotes() QuoteStore
	Featured() FeaturedStore
	EnsureSchema(ctx context.Context) error
	Close() error
}
