package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/internal/lake"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

// LakeRunner runs batch lake operations
type LakeRunner interface {
	CreateFeaturedLake(ctx context.Context) (*lake.RunResult, error)
	IngestDaily(ctx context.Context, day time.Time) (*lake.RunResult, error)
}

// DayResolver picks the default ingest day
type DayResolver interface {
	LastBusinessDay(ctx context.Context, before time.Time) (time.Time, error)
}

// LakeHandler handles batch trigger endpoints
type LakeHandler struct {
	lake   LakeRunner
	days   DayResolver
	logger *logger.Logger
}

// NewLakeHandler creates a new lake handler
func NewLakeHandler(runner LakeRunner, days DayResolver, log *logger.Logger) *LakeHandler {
	return &LakeHandler{
		lake:   runner,
		days:   days,
		logger: log,
	}
}

// RunResponse reports a finished batch run
type RunResponse struct {
	Status string          `json:"status"`
	Data   *lake.RunResult `json:"data"`
}

// RebuildFeatured recomputes b3_featured
// POST /api/lake/featured
func (h *LakeHandler) RebuildFeatured(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Featured rebuild triggered")

	run, err := h.lake.CreateFeaturedLake(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Featured rebuild failed")
		respondError(w, http.StatusInternalServerError, "Featured rebuild failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, RunResponse{Status: "success", Data: run})
}

// IngestRequest optionally names the trading day to ingest
type IngestRequest struct {
	Date string `json:"date"` // YYYY-MM-DD, default last business day
}

// Ingest downloads one daily file into b3_hist
// POST /api/lake/ingest
func (h *LakeHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	var day time.Time
	if req.Date != "" {
		d, err := contracts.ParseDate(req.Date)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date format", "Date must be in YYYY-MM-DD format")
			return
		}
		day = d
	} else {
		d, err := h.days.LastBusinessDay(ctx, time.Now())
		if err != nil {
			h.logger.WithError(err).Error("Failed to resolve last business day")
			respondError(w, http.StatusInternalServerError, "Ingest failed", err.Error())
			return
		}
		day = d
	}

	run, err := h.lake.IngestDaily(ctx, day)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, RunResponse{Status: "success", Data: run})
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, "Daily file not found", err.Error())
	default:
		h.logger.WithError(err).Error("Ingest failed")
		respondError(w, http.StatusInternalServerError, "Ingest failed", err.Error())
	}
}
