// Package metrics exposes the service's Prometheus collectors and the HTTP
// instrumentation middleware.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts HTTP requests by method, route pattern and status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splittab_http_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "route", "status"})

	// RequestDuration observes request latency by route pattern.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splittab_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// RecalculationsTotal counts participant total resums.
	RecalculationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splittab_participant_recalculations_total",
		Help: "Participant totalOwed recalculations performed.",
	})

	// CascadesTotal counts item-change cascades across allocations.
	CascadesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splittab_item_cascades_total",
		Help: "Item price/quantity cascades performed.",
	})
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records request counts and latency. It reads the chi route
// pattern after the handler runs so paths with IDs collapse into one series.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
