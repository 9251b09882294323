// Package metrics holds the Prometheus collectors for the HTTP layer and the
// catalogue operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mppms_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mppms_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// UploadsTotal counts upload attempts by outcome: created, duplicate,
	// invalid or failed.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mppms_uploads_total",
			Help: "Paper uploads by outcome.",
		},
		[]string{"outcome"},
	)

	DownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mppms_downloads_total",
		Help: "Paper downloads served.",
	})

	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mppms_search_results",
		Help:    "Number of papers matching a catalogue query.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
	})

	ConfigCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mppms_config_cache_hits_total",
		Help: "Config document cache hits.",
	})
	ConfigCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mppms_config_cache_misses_total",
		Help: "Config document cache misses.",
	})
)

const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// Middleware records request count and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
