package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/b3lake/backend/internal/api/handlers"
	"github.com/wonny/b3lake/backend/pkg/logger"
	"github.com/wonny/b3lake/backend/pkg/metrics"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(assetHandler *handlers.AssetHandler, lakeHandler *handlers.LakeHandler, log *logger.Logger, m *metrics.Metrics) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Asset endpoints
	api.HandleFunc("/assets", assetHandler.ListAssets).Methods("GET")
	api.HandleFunc("/assets/{ticker}", assetHandler.GetAsset).Methods("GET")

	// Batch triggers
	if lakeHandler != nil {
		api.HandleFunc("/lake/featured", lakeHandler.RebuildFeatured).Methods("POST")
		api.HandleFunc("/lake/ingest", lakeHandler.Ingest).Methods("POST")
	}

	// Apply middleware
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log, m))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"service": "b3lake-api",
	})
}
