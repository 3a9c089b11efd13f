package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/lake"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

// DailyIngester loads one daily file into b3_hist
type DailyIngester interface {
	IngestDaily(ctx context.Context, day time.Time) (*lake.RunResult, error)
}

// DayResolver finds the last business day before a date
type DayResolver interface {
	LastBusinessDay(ctx context.Context, before time.Time) (time.Time, error)
}

// QuoteIngestJob loads the last business day's quotes
// ⭐ SSOT: 일별 시세 적재 스케줄은 이 Job에서만
type QuoteIngestJob struct {
	lake     DailyIngester
	days     DayResolver
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewQuoteIngestJob creates a new quote ingest job
func NewQuoteIngestJob(ingester DailyIngester, days DayResolver, schedule string, log *logger.Logger) *QuoteIngestJob {
	return &QuoteIngestJob{
		lake:     ingester,
		days:     days,
		schedule: schedule,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *QuoteIngestJob) Name() string {
	return "quote_ingest"
}

// Schedule returns the cron schedule
func (j *QuoteIngestJob) Schedule() string {
	return j.schedule
}

// Run ingests the daily file of the last business day.
// A file B3 has not published is logged and not retried.
func (j *QuoteIngestJob) Run(ctx context.Context) error {
	day, err := j.days.LastBusinessDay(ctx, j.now())
	if err != nil {
		return fmt.Errorf("resolve business day: %w", err)
	}

	log := j.logger.WithField("date", day.Format(contracts.DateLayout))
	log.Info("Starting scheduled quote ingest")

	run, err := j.lake.IngestDaily(ctx, day)
	if errors.Is(err, contracts.ErrNotFound) {
		log.Warn("Daily file not published, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ingest %s: %w", day.Format(contracts.DateLayout), err)
	}

	log.WithField("rows", run.Rows).Info("Scheduled quote ingest completed")
	return nil
}
