package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wonny/b3lake/backend/internal/assembler"
	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/features"
	"github.com/wonny/b3lake/backend/pkg/logger"
	"github.com/wonny/b3lake/backend/pkg/metrics"
	"github.com/wonny/b3lake/backend/pkg/redis"
)

// Listing limits
const (
	MinSearchLength = 3
	MaxPageSize     = 100
	DefaultPageSize = 20
)

// DailySource fetches one trading day of quotes from the exchange
type DailySource interface {
	FetchDay(ctx context.Context, day time.Time) ([]contracts.QuoteRecord, error)
}

// DayResolver finds the most recent business day strictly before a date
type DayResolver interface {
	LastBusinessDay(ctx context.Context, before time.Time) (time.Time, error)
}

// Pagination is the listing page metadata
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int64 `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Page is one page of the asset listing
type Page struct {
	Assets     []contracts.AssetSummary `json:"assets"`
	Pagination Pagination               `json:"pagination"`
	SearchTerm *string                  `json:"search_term"`
}

// Service answers single-asset lookups and asset listings
// ⭐ SSOT: 종목 조회 비즈니스 로직은 여기서만
type Service struct {
	quotes    contracts.QuoteStore
	featured  contracts.FeaturedStore
	assembler *assembler.Assembler
	engine    *features.Engine
	cache     *redis.Cache
	cacheTTL  time.Duration
	daily     DailySource
	days      DayResolver
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService creates the asset service
func NewService(
	quotes contracts.QuoteStore,
	featured contracts.FeaturedStore,
	asm *assembler.Assembler,
	engine *features.Engine,
	cache *redis.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		quotes:    quotes,
		featured:  featured,
		assembler: asm,
		engine:    engine,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    log,
		metrics:   m,
		now:       time.Now,
	}
}

// WithDailySource resolves targets from the latest daily file before the store
func (s *Service) WithDailySource(src DailySource, days DayResolver) *Service {
	s.daily = src
	s.days = days
	return s
}

// GetAsset computes the featured row of ticker on date (nil = latest available).
// contracts.ErrNotFound reports that no row could be produced.
func (s *Service) GetAsset(ctx context.Context, ticker string, date *time.Time) (*contracts.FeaturedRecord, error) {
	ticker = contracts.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, invalid("Invalid ticker", "Ticker must be a non-empty string")
	}

	dateKey := ""
	if date != nil {
		dateKey = date.Format(contracts.DateLayout)
	}
	cacheKey := redis.AssetKey(ticker, dateKey)

	var cached contracts.FeaturedRecord
	if found, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		s.logger.WithError(err).Warn("Asset cache read failed")
	} else if found {
		s.metrics.AssetLookup("cache")
		return &cached, nil
	}

	target, err := s.resolveTarget(ctx, ticker, date)
	if errors.Is(err, contracts.ErrNotFound) {
		s.metrics.AssetLookup("not_found")
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		// on-demand store failures degrade to not found
		s.metrics.AssetLookup("error")
		s.logger.WithError(err).WithField("ticker", ticker).Error("Failed to resolve target quote")
		return nil, contracts.ErrNotFound
	}

	combined := s.assembler.Assemble(ctx, *target)
	rows, err := s.engine.Transform(combined)
	if err != nil {
		s.metrics.AssetLookup("error")
		return nil, fmt.Errorf("transform %s: %w", ticker, err)
	}

	rec, exact := Select(rows, target.Date)
	if rec == nil {
		s.metrics.AssetLookup("not_found")
		s.logger.WithFields(map[string]interface{}{
			"ticker":  ticker,
			"date":    target.Date.Format(contracts.DateLayout),
			"context": len(combined),
		}).Info("No featured row for asset")
		return nil, contracts.ErrNotFound
	}

	if exact {
		s.metrics.AssetLookup("found")
	} else {
		s.metrics.AssetLookup("fallback")
	}

	if err := s.cache.Set(ctx, cacheKey, rec, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Asset cache write failed")
	}
	return rec, nil
}

// resolveTarget finds the quote row to compute features for
func (s *Service) resolveTarget(ctx context.Context, ticker string, date *time.Time) (*contracts.QuoteRecord, error) {
	if s.daily != nil {
		q, err := s.fromDaily(ctx, ticker, date)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, contracts.ErrNotFound) {
			s.logger.WithError(err).WithField("ticker", ticker).Warn("Daily file lookup failed, using store")
		}
	}

	if date != nil {
		return s.quotes.Get(ctx, ticker, *date)
	}
	return s.quotes.Latest(ctx, ticker)
}

func (s *Service) fromDaily(ctx context.Context, ticker string, date *time.Time) (*contracts.QuoteRecord, error) {
	day := s.now()
	if date != nil {
		day = *date
	} else {
		prev, err := s.days.LastBusinessDay(ctx, day)
		if err != nil {
			return nil, err
		}
		day = prev
	}

	quotes, err := s.daily.FetchDay(ctx, day)
	if err != nil {
		return nil, err
	}

	var match *contracts.QuoteRecord
	for i := range quotes {
		q := &quotes[i]
		if contracts.NormalizeTicker(q.Ticker) != ticker {
			continue
		}
		if date != nil && !contracts.DateOnly(q.Date).Equal(contracts.DateOnly(*date)) {
			continue
		}
		match = q
	}
	if match == nil {
		return nil, contracts.ErrNotFound
	}
	return match, nil
}

// ListAssets returns one page of the distinct assets in b3_featured
func (s *Service) ListAssets(ctx context.Context, search string, page, pageSize int) (*Page, error) {
	if page < 1 {
		return nil, invalid("Invalid page number", "Page must be greater than 0")
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, invalid("Invalid page size", fmt.Sprintf("Page size must be between 1 and %d", MaxPageSize))
	}

	search = strings.ToUpper(strings.TrimSpace(search))
	if search != "" && utf8.RuneCountInString(search) < MinSearchLength {
		return nil, invalid("Invalid search term", fmt.Sprintf("Search term must have at least %d characters", MinSearchLength))
	}

	cacheKey := redis.AssetListKey(search, page, pageSize)
	var cached Page
	if found, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return &cached, nil
	}

	assets, total, err := s.featured.ListAssets(ctx, contracts.AssetFilter{
		Search: search,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing assets: %w", err)
	}

	totalPages := (total + int64(pageSize) - 1) / int64(pageSize)
	result := &Page{
		Assets: assets,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalCount: total,
			TotalPages: totalPages,
			HasNext:    int64(page) < totalPages,
			HasPrev:    page > 1,
		},
	}
	if search != "" {
		result.SearchTerm = &search
	}

	if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
		s.logger.WithError(err).Warn("Asset list cache write failed")
	}
	return result, nil
}
