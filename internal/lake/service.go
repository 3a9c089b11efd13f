package lake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/external/b3"
	"github.com/wonny/b3lake/backend/internal/features"
	"github.com/wonny/b3lake/backend/pkg/logger"
	"github.com/wonny/b3lake/backend/pkg/metrics"
	"github.com/wonny/b3lake/backend/pkg/redis"
)

// DailySource fetches one trading day of quotes
type DailySource interface {
	FetchDay(ctx context.Context, day time.Time) ([]contracts.QuoteRecord, error)
}

// RunResult summarizes one batch run
type RunResult struct {
	RunID     string        `json:"run_id"`
	Operation string        `json:"operation"`
	InputRows int           `json:"input_rows"`
	Rows      int           `json:"rows"`
	TableRows int64         `json:"table_rows"`
	Elapsed   time.Duration `json:"elapsed"`

	// Quality is set by the quote ingest runs
	Quality *contracts.QuoteQualitySnapshot `json:"quality,omitempty"`
}

// Service runs the batch path: historical ingest and the featured rebuild
// ⭐ SSOT: b3_hist / b3_featured 적재는 여기서만
type Service struct {
	quotes     contracts.QuoteStore
	featured   contracts.FeaturedStore
	engine     *features.Engine
	daily      DailySource
	cache      *redis.Cache
	configHash string
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewService creates the lake service. daily and cache may be nil.
func NewService(
	quotes contracts.QuoteStore,
	featured contracts.FeaturedStore,
	engine *features.Engine,
	daily DailySource,
	cache *redis.Cache,
	configHash string,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		quotes:     quotes,
		featured:   featured,
		engine:     engine,
		daily:      daily,
		cache:      cache,
		configHash: configHash,
		logger:     log.WithField("module", "lake"),
		metrics:    m,
	}
}

func (s *Service) begin(op string) (*RunResult, *logger.Logger, time.Time) {
	run := &RunResult{RunID: uuid.NewString(), Operation: op}
	log := s.logger.WithFields(map[string]interface{}{
		"run_id":      run.RunID,
		"operation":   op,
		"config_hash": s.configHash,
	})
	log.Info("Lake run started")
	return run, log, time.Now()
}

func (s *Service) finish(run *RunResult, log *logger.Logger, start time.Time) *RunResult {
	run.Elapsed = time.Since(start)
	log.WithFields(map[string]interface{}{
		"input_rows": run.InputRows,
		"rows":       run.Rows,
		"table_rows": run.TableRows,
		"elapsed_ms": run.Elapsed.Milliseconds(),
	}).Info("Lake run completed")
	return run
}

// CreateHistLake loads a local COTAHIST file into b3_hist
func (s *Service) CreateHistLake(ctx context.Context, path string) (*RunResult, error) {
	run, log, start := s.begin("create_hist")

	quotes, err := b3.ParseFile(path)
	if err != nil {
		log.WithError(err).Error("Failed to parse historical file")
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	run.InputRows = len(quotes)
	log.WithFields(map[string]interface{}{"file": path, "records": len(quotes)}).Info("Parsed historical file")

	s.checkQuality(run, log, quotes)
	if err := s.storeQuotes(ctx, run, quotes); err != nil {
		log.WithError(err).Error("Failed to store historical quotes")
		return nil, err
	}
	return s.finish(run, log, start), nil
}

// IngestDaily downloads the daily file of day and upserts it into b3_hist
func (s *Service) IngestDaily(ctx context.Context, day time.Time) (*RunResult, error) {
	if s.daily == nil {
		return nil, fmt.Errorf("no daily source configured")
	}
	run, log, start := s.begin("ingest_daily")
	log = log.WithField("date", day.Format(contracts.DateLayout))

	quotes, err := s.daily.FetchDay(ctx, day)
	if err != nil {
		log.WithError(err).Error("Failed to fetch daily file")
		return nil, fmt.Errorf("fetch %s: %w", day.Format(contracts.DateLayout), err)
	}
	run.InputRows = len(quotes)
	if len(quotes) == 0 {
		log.Warn("Daily file holds no trading records")
	}

	s.checkQuality(run, log, quotes)
	if err := s.storeQuotes(ctx, run, quotes); err != nil {
		log.WithError(err).Error("Failed to store daily quotes")
		return nil, err
	}
	return s.finish(run, log, start), nil
}

// checkQuality flags a weak batch without blocking the load
func (s *Service) checkQuality(run *RunResult, log *logger.Logger, quotes []contracts.QuoteRecord) {
	if len(quotes) == 0 {
		return
	}
	run.Quality = CheckQuality(quotes)
	entry := log.WithFields(map[string]interface{}{
		"quality_score": run.Quality.QualityScore,
		"tickers":       run.Quality.Tickers,
		"coverage":      run.Quality.Coverage,
	})
	if !run.Quality.Passed {
		entry.Warn("Quote batch below quality threshold")
		return
	}
	entry.Debug("Quote batch quality checked")
}

func (s *Service) storeQuotes(ctx context.Context, run *RunResult, quotes []contracts.QuoteRecord) error {
	n, err := s.quotes.Upsert(ctx, quotes)
	if err != nil {
		return fmt.Errorf("upsert b3_hist: %w", err)
	}
	run.Rows = n
	s.metrics.AddIngested(n)

	total, err := s.quotes.Count(ctx)
	if err != nil {
		return fmt.Errorf("count b3_hist: %w", err)
	}
	run.TableRows = total
	s.metrics.SetHistRows(total)
	return nil
}

// CreateFeaturedLake recomputes b3_featured from the whole of b3_hist.
// A failed full-table read aborts the run.
func (s *Service) CreateFeaturedLake(ctx context.Context) (*RunResult, error) {
	run, log, start := s.begin("create_featured")

	quotes, err := s.quotes.All(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to read b3_hist")
		return nil, fmt.Errorf("read b3_hist: %w", err)
	}
	run.InputRows = len(quotes)

	rows, err := s.engine.Transform(quotes)
	if err != nil {
		log.WithError(err).Error("Feature transform failed")
		return nil, fmt.Errorf("transform: %w", err)
	}

	n, err := s.featured.Upsert(ctx, rows)
	if err != nil {
		log.WithError(err).Error("Failed to store featured rows")
		return nil, fmt.Errorf("upsert b3_featured: %w", err)
	}
	run.Rows = n

	total, err := s.featured.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count b3_featured: %w", err)
	}
	run.TableRows = total
	s.metrics.SetFeaturedRows(total)

	if s.cache != nil {
		flushed, err := s.cache.Flush(ctx)
		if err != nil {
			log.WithError(err).Warn("Failed to flush lookup cache")
		} else if flushed > 0 {
			log.WithField("keys", flushed).Info("Flushed lookup cache")
		}
	}

	return s.finish(run, log, start), nil
}
