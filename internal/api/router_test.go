package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/b3lake/backend/internal/api/handlers"
	"github.com/wonny/b3lake/backend/internal/assembler"
	"github.com/wonny/b3lake/backend/internal/asset"
	"github.com/wonny/b3lake/backend/internal/features"
	"github.com/wonny/b3lake/backend/internal/lake"
	"github.com/wonny/b3lake/backend/internal/lakeconfig"
	"github.com/wonny/b3lake/backend/internal/testutil"
	"github.com/wonny/b3lake/backend/pkg/logger"
	"github.com/wonny/b3lake/backend/pkg/metrics"
	"github.com/wonny/b3lake/backend/pkg/redis"
)

func newTestServer(t *testing.T) (*httptest.Server, *metrics.Metrics, *mux.Router) {
	t.Helper()
	return newTestServerWith(t, testutil.NewMemoryQuotes(testutil.Series("PETR4", testutil.Weekdays(testutil.Date("2025-09-25"), 30))...))
}

func newTestServerWith(t *testing.T, quotes *testutil.MemoryQuotes) (*httptest.Server, *metrics.Metrics, *mux.Router) {
	t.Helper()

	featured := testutil.NewMemoryFeatured()
	m := metrics.New()
	cfg := lakeconfig.Defaults()
	cache := redis.NewCache(redis.Disabled(), "test")
	engine := features.NewEngine(features.WithMetrics(m))

	assets := asset.NewService(quotes, featured, assembler.New(quotes, cfg.Assembler, logger.Nop(), m), engine, cache, cfg.Cache.AssetTTL, logger.Nop(), m)
	lakeSvc := lake.NewService(quotes, featured, engine, nil, cache, "hash", logger.Nop(), m)

	router := NewRouter(
		handlers.NewAssetHandler(assets, logger.Nop()),
		handlers.NewLakeHandler(lakeSvc, nil, logger.Nop()),
		logger.Nop(),
		m,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, m, router.(*mux.Router)
}

func get(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestGetAssetRoute(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/assets/petr4?date=2025-09-25")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PETR4", body["ticker"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "2025-09-25", data["date"])
	assert.Equal(t, 3.0, data["day_of_week"])

	resp, body = get(t, srv.URL+"/api/assets/XXXX3")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Asset not found", body["error"])
	assert.Equal(t, "XXXX3", body["ticker"])

	resp, _ = get(t, srv.URL+"/api/assets/PETR4?date=2025-13-01")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAssetRoute_StoreDown(t *testing.T) {
	quotes := testutil.NewMemoryQuotes()
	quotes.Err = errors.New("connection refused")
	srv, _, _ := newTestServerWith(t, quotes)

	resp, body := get(t, srv.URL+"/api/assets/VALE3?date=2025-09-25")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Asset not found", body["error"])
	assert.Equal(t, "VALE3", body["ticker"])
}

func TestRebuildAndListRoutes(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/api/assets")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, body["pagination"].(map[string]interface{})["total_count"])

	post, err := http.Post(srv.URL+"/api/lake/featured", "application/json", nil)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, post.Body)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	resp, body = get(t, srv.URL+"/api/assets?search=petr&page_size=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assets := body["assets"].([]interface{})
	require.Len(t, assets, 1)
	assert.Equal(t, "PETR4", assets[0].(map[string]interface{})["ticker"])
	assert.Equal(t, "PETR", body["search_term"])

	resp, body = get(t, srv.URL+"/api/assets?search=pe")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid search term", body["error"])
}

func TestRequestIDPropagation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestRecoveryAndMetrics(t *testing.T) {
	srv, m, router := newTestServer(t)
	router.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	resp, body := get(t, srv.URL+"/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal server error", body["error"])

	_, _ = get(t, srv.URL+"/api/assets/VALE3")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	text := w.Body.String()
	assert.True(t, strings.Contains(text, `lake_http_requests_total{code="500",route="/boom"} 1`), text)
	assert.True(t, strings.Contains(text, `lake_http_requests_total{code="404",route="/api/assets/{ticker}"} 1`), text)
}
