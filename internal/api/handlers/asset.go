package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/b3lake/backend/internal/asset"
	"github.com/wonny/b3lake/backend/internal/contracts"
	"github.com/wonny/b3lake/backend/pkg/logger"
)

// AssetService answers asset lookups
type AssetService interface {
	GetAsset(ctx context.Context, ticker string, date *time.Time) (*contracts.FeaturedRecord, error)
	ListAssets(ctx context.Context, search string, page, pageSize int) (*asset.Page, error)
}

// AssetHandler handles asset API endpoints
// ⭐ SSOT: 종목 API 핸들러는 이 구조체에서만
type AssetHandler struct {
	service AssetService
	logger  *logger.Logger
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(service AssetService, log *logger.Logger) *AssetHandler {
	return &AssetHandler{
		service: service,
		logger:  log,
	}
}

// AssetResponse wraps one featured row
type AssetResponse struct {
	Ticker string                    `json:"ticker"`
	Data   *contracts.FeaturedRecord `json:"data"`
}

// GetAsset returns the featured row of one asset
// GET /api/assets/{ticker}?date=YYYY-MM-DD
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["ticker"]))

	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := contracts.ParseDate(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date format", "Date must be in YYYY-MM-DD format")
			return
		}
		date = &d
	}

	rec, err := h.service.GetAsset(r.Context(), ticker, date)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, AssetResponse{Ticker: ticker, Data: rec})
	case errors.Is(err, contracts.ErrNotFound):
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "Asset not found", Ticker: ticker})
	default:
		h.handleError(w, err, "Failed to get asset")
	}
}

// ListAssets returns one page of available assets
// GET /api/assets?search=&page=1&page_size=20
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, ok := intParam(q.Get("page"), 1)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid page number", "Page must be an integer")
		return
	}
	pageSize, ok := intParam(q.Get("page_size"), asset.DefaultPageSize)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid page size", "Page size must be an integer")
		return
	}

	result, err := h.service.ListAssets(r.Context(), q.Get("search"), page, pageSize)
	if err != nil {
		h.handleError(w, err, "Failed to list assets")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *AssetHandler) handleError(w http.ResponseWriter, err error, msg string) {
	var reqErr *asset.RequestError
	if errors.As(err, &reqErr) {
		respondError(w, http.StatusBadRequest, reqErr.Title, reqErr.Message)
		return
	}
	h.logger.WithError(err).Error(msg)
	respondError(w, http.StatusInternalServerError, "Internal server error", msg)
}

func intParam(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
