package scheduler

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/b3lake/backend/pkg/logger"
	"github.com/wonny/b3lake/backend/pkg/metrics"
)

type funcJob struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Schedule() string              { return j.schedule }
func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

func newScheduler() (*Scheduler, *metrics.Metrics) {
	m := metrics.New()
	return New(logger.Nop(), m).WithRetry(2, time.Millisecond), m
}

func TestAddJob(t *testing.T) {
	s, _ := newScheduler()
	ok := func(ctx context.Context) error { return nil }

	require.NoError(t, s.AddJob(&funcJob{name: "featured_rebuild", schedule: "0 30 21 * * 1-5", run: ok}))
	require.NoError(t, s.AddJob(&funcJob{name: "quote_ingest", schedule: "0 0 21 * * 1-5", run: ok}))
	assert.Error(t, s.AddJob(&funcJob{name: "quote_ingest", schedule: "0 0 21 * * 1-5", run: ok}))
	assert.Error(t, s.AddJob(&funcJob{name: "bad", schedule: "every day", run: ok}))

	assert.Equal(t, []string{"featured_rebuild", "quote_ingest"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("featured_rebuild"))
	assert.Error(t, s.RemoveJob("featured_rebuild"))
	assert.Equal(t, []string{"quote_ingest"}, s.GetAllJobs())
}

func TestRunJob_Success(t *testing.T) {
	s, m := newScheduler()
	var calls int32
	require.NoError(t, s.AddJob(&funcJob{name: "quote_ingest", schedule: "@daily", run: func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}}))

	result, err := s.RunJob(context.Background(), "quote_ingest")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	stats := s.GetJobStats()["quote_ingest"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.True(t, strings.Contains(w.Body.String(), `lake_job_runs_total{job="quote_ingest",status="success"} 1`))
}

func TestRunJob_RetriesThenFails(t *testing.T) {
	s, _ := newScheduler()
	var calls int32
	require.NoError(t, s.AddJob(&funcJob{name: "featured_rebuild", schedule: "@daily", run: func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("store down")
	}}))

	result, err := s.RunJob(context.Background(), "featured_rebuild")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "store down", result.Error)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	history, err := s.GetJobHistory("featured_rebuild")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.Equal(t, 1, history.Failures())
}

func TestRunJob_RetrySucceeds(t *testing.T) {
	s, _ := newScheduler()
	var calls int32
	require.NoError(t, s.AddJob(&funcJob{name: "flaky", schedule: "@daily", run: func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 2 {
			return errors.New("timeout")
		}
		return nil
	}}))

	result, err := s.RunJob(context.Background(), "flaky")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
}

func TestRunJob_PanicAndTimeout(t *testing.T) {
	s, _ := newScheduler()
	s.WithRetry(0, 0).WithTimeout(10 * time.Millisecond)

	require.NoError(t, s.AddJob(&funcJob{name: "panics", schedule: "@daily", run: func(ctx context.Context) error {
		panic("nil map")
	}}))
	require.NoError(t, s.AddJob(&funcJob{name: "slow", schedule: "@daily", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	result, err := s.RunJob(context.Background(), "panics")
	require.Error(t, err)
	assert.Contains(t, result.Error, "panic: nil map")

	result, err = s.RunJob(context.Background(), "slow")
	require.Error(t, err)
	assert.Contains(t, result.Error, "deadline exceeded")
}

func TestRunJob_Unknown(t *testing.T) {
	s, _ := newScheduler()
	_, err := s.RunJob(context.Background(), "nope")
	assert.Error(t, err)
	_, err = s.GetJobHistory("nope")
	assert.Error(t, err)
}

func TestNextRun(t *testing.T) {
	s, _ := newScheduler()
	require.NoError(t, s.AddJob(&funcJob{name: "quote_ingest", schedule: "0 0 21 * * 1-5", run: func(ctx context.Context) error { return nil }}))

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return !s.NextRun("quote_ingest").IsZero() }, time.Second, 10*time.Millisecond)
	assert.True(t, s.NextRun("missing").IsZero())
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Empty(t, h.Latest(5))
	assert.Equal(t, 0.0, h.SuccessRate())

	for i := 0; i < maxHistory+20; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%4 != 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.Latest(3), 3)
	assert.Equal(t, 25, h.Failures())
	assert.InDelta(t, 0.75, h.SuccessRate(), 1e-9)
}
