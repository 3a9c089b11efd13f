package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/lake"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

type stubLake struct {
	err      error
	days     []time.Time
	rebuilds int
}

func (s *stubLake) IngestDaily(ctx context.Context, day time.Time) (*lake.RunResult, error) {
	s.days = append(s.days, day)
	if s.err != nil {
		return nil, s.err
	}
	return &lake.RunResult{Rows: 10}, nil
}

func (s *stubLake) CreateFeaturedLake(ctx context.Context) (*lake.RunResult, error) {
	s.rebuilds++
	if s.err != nil {
		return nil, s.err
	}
	return &lake.RunResult{Rows: 5, TableRows: 5}, nil
}

type stubDays struct {
	day    time.Time
	err    error
	before time.Time
}

func (s *stubDays) LastBusinessDay(ctx context.Context, before time.Time) (time.Time, error) {
	s.before = before
	return s.day, s.err
}

func TestQuoteIngestJob(t *testing.T) {
	now := time.Date(2025, 9, 26, 21, 0, 0, 0, time.UTC)
	last := time.Date(2025, 9, 25, 0, 0, 0, 0, time.UTC)
	ingester := &stubLake{}
	days := &stubDays{day: last}

	job := NewQuoteIngestJob(ingester, days, "0 0 21 * * 1-5", logger.Nop())
	job.now = func() time.Time { return now }

	assert.Equal(t, "quote_ingest", job.Name())
	assert.Equal(t, "0 0 21 * * 1-5", job.Schedule())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now, days.before)
	assert.Equal(t, []time.Time{last}, ingester.days)
}

func TestQuoteIngestJob_Errors(t *testing.T) {
	ctx := context.Background()

	job := NewQuoteIngestJob(&stubLake{err: contracts.ErrNotFound}, &stubDays{}, "", logger.Nop())
	assert.NoError(t, job.Run(ctx), "unpublished file is not a failure")

	job = NewQuoteIngestJob(&stubLake{err: errors.New("disk full")}, &stubDays{}, "", logger.Nop())
	assert.Error(t, job.Run(ctx))

	ingester := &stubLake{}
	job = NewQuoteIngestJob(ingester, &stubDays{err: errors.New("no date")}, "", logger.Nop())
	assert.Error(t, job.Run(ctx))
	assert.Empty(t, ingester.days)
}

func TestFeaturedRebuildJob(t *testing.T) {
	builder := &stubLake{}
	job := NewFeaturedRebuildJob(builder, "0 30 21 * * 1-5", logger.Nop())

	assert.Equal(t, "featured_rebuild", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, builder.rebuilds)

	builder.err = errors.New("read b3_hist")
	assert.Error(t, job.Run(context.Background()))
}
