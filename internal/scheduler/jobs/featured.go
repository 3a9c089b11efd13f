package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/b3lake/backend/internal/lake"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

// FeaturedBuilder rebuilds b3_featured
type FeaturedBuilder interface {
	CreateFeaturedLake(ctx context.Context) (*lake.RunResult, error)
}

// FeaturedRebuildJob recomputes the featured table after ingest
type FeaturedRebuildJob struct {
	lake     FeaturedBuilder
	schedule string
	logger   *logger.Logger
}

// NewFeaturedRebuildJob creates a new featured rebuild job
func NewFeaturedRebuildJob(builder FeaturedBuilder, schedule string, log *logger.Logger) *FeaturedRebuildJob {
	return &FeaturedRebuildJob{
		lake:     builder,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *FeaturedRebuildJob) Name() string {
	return "featured_rebuild"
}

// Schedule returns the cron schedule
func (j *FeaturedRebuildJob) Schedule() string {
	return j.schedule
}

// Run executes the rebuild
func (j *FeaturedRebuildJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled featured rebuild")

	run, err := j.lake.CreateFeaturedLake(ctx)
	if err != nil {
		return fmt.Errorf("featured rebuild: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"rows":       run.Rows,
		"table_rows": run.TableRows,
	}).Info("Scheduled featured rebuild completed")
	return nil
}
