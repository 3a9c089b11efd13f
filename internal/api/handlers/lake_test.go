package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/lake"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

type stubLake struct {
	err       error
	ingestDay time.Time
}

func (s *stubLake) CreateFeaturedLake(ctx context.Context) (*lake.RunResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &lake.RunResult{RunID: "run-1", Operation: "create_featured", Rows: 42}, nil
}

func (s *stubLake) IngestDaily(ctx context.Context, day time.Time) (*lake.RunResult, error) {
	s.ingestDay = day
	if s.err != nil {
		return nil, s.err
	}
	return &lake.RunResult{RunID: "run-2", Operation: "ingest_daily", Rows: 400}, nil
}

type fixedDay struct{ day time.Time }

func (f fixedDay) LastBusinessDay(ctx context.Context, before time.Time) (time.Time, error) {
	return f.day, nil
}

func TestRebuildFeatured(t *testing.T) {
	h := NewLakeHandler(&stubLake{}, fixedDay{}, logger.Nop())

	w := httptest.NewRecorder()
	h.RebuildFeatured(w, httptest.NewRequest(http.MethodPost, "/api/lake/featured", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, 42.0, body["data"].(map[string]interface{})["rows"])
}

func TestRebuildFeatured_Failure(t *testing.T) {
	h := NewLakeHandler(&stubLake{err: errors.New("read b3_hist: timeout")}, fixedDay{}, logger.Nop())

	w := httptest.NewRecorder()
	h.RebuildFeatured(w, httptest.NewRequest(http.MethodPost, "/api/lake/featured", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "read b3_hist: timeout", decode(t, w)["message"])
}

func TestIngest(t *testing.T) {
	last := time.Date(2025, 9, 25, 0, 0, 0, 0, time.UTC)

	t.Run("explicit date", func(t *testing.T) {
		runner := &stubLake{}
		w := httptest.NewRecorder()
		NewLakeHandler(runner, fixedDay{last}, logger.Nop()).
			Ingest(w, httptest.NewRequest(http.MethodPost, "/api/lake/ingest", strings.NewReader(`{"date":"2025-09-19"}`)))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2025-09-19", runner.ingestDay.Format(contracts.DateLayout))
	})

	t.Run("default day", func(t *testing.T) {
		runner := &stubLake{}
		w := httptest.NewRecorder()
		NewLakeHandler(runner, fixedDay{last}, logger.Nop()).
			Ingest(w, httptest.NewRequest(http.MethodPost, "/api/lake/ingest", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, last, runner.ingestDay)
	})

	t.Run("bad body", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewLakeHandler(&stubLake{}, fixedDay{last}, logger.Nop()).
			Ingest(w, httptest.NewRequest(http.MethodPost, "/api/lake/ingest", strings.NewReader(`{"date":`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewLakeHandler(&stubLake{err: contracts.ErrNotFound}, fixedDay{last}, logger.Nop()).
			Ingest(w, httptest.NewRequest(http.MethodPost, "/api/lake/ingest", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
