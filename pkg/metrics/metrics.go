package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the lake.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	TransformDur       prometheus.Histogram
	FeaturedRows       prometheus.Gauge
	HistRows           prometheus.Gauge
	IngestedRows       prometheus.Counter
	AssetLookups       *prometheus.CounterVec // labels: result=found|fallback|cache|not_found|error
	AssemblerFallbacks prometheus.Counter
	HTTPRequests       *prometheus.CounterVec // labels: route, code
	HTTPDuration       *prometheus.HistogramVec
	JobRuns            *prometheus.CounterVec // labels: job, status
}

// New registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		TransformDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lake_feature_transform_seconds",
			Help:    "Feature engine latency per transform call",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		FeaturedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lake_featured_rows",
			Help: "Rows in b3_featured after the last rebuild",
		}),
		HistRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lake_hist_rows",
			Help: "Rows in b3_hist after the last load",
		}),
		IngestedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lake_ingested_rows_total",
			Help: "Quote rows upserted by daily ingestion",
		}),
		AssetLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lake_asset_lookups_total",
			Help: "On-demand asset lookups by result",
		}, []string{"result"}),
		AssemblerFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lake_assembler_fallback_total",
			Help: "Context assemblies that needed the fallback history query",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lake_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lake_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lake_job_runs_total",
			Help: "Scheduled job runs by job and status",
		}, []string{"job", "status"}),
	}

	m.registry.MustRegister(
		m.TransformDur,
		m.FeaturedRows,
		m.HistRows,
		m.IngestedRows,
		m.AssetLookups,
		m.AssemblerFallbacks,
		m.HTTPRequests,
		m.HTTPDuration,
		m.JobRuns,
	)

	return m
}

// Registry exposes the underlying registry (tests, custom collectors)
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTransform records one feature engine call
func (m *Metrics) ObserveTransform(d time.Duration) {
	if m == nil {
		return
	}
	m.TransformDur.Observe(d.Seconds())
}

// SetFeaturedRows records the featured table size
func (m *Metrics) SetFeaturedRows(n int64) {
	if m == nil {
		return
	}
	m.FeaturedRows.Set(float64(n))
}

// SetHistRows records the history table size
func (m *Metrics) SetHistRows(n int64) {
	if m == nil {
		return
	}
	m.HistRows.Set(float64(n))
}

// AddIngested counts rows upserted by an ingestion run
func (m *Metrics) AddIngested(n int) {
	if m == nil {
		return
	}
	m.IngestedRows.Add(float64(n))
}

// AssetLookup counts a lookup outcome
func (m *Metrics) AssetLookup(result string) {
	if m == nil {
		return
	}
	m.AssetLookups.WithLabelValues(result).Inc()
}

// AssemblerFallback counts a fallback history query
func (m *Metrics) AssemblerFallback() {
	if m == nil {
		return
	}
	m.AssemblerFallbacks.Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// JobRun counts a scheduled job outcome
func (m *Metrics) JobRun(job string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
