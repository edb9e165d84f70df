// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Probe kinds
const (
	ProbeDiagnostics = "diagnostics"
	ProbePingFrom    = "ping_from"
	ProbeLiveness    = "liveness"
	ProbeLocalPing   = "local_ping"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "linkwatch_build_info",
		Help: "Build information",
	}, []string{"version", "commit"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkwatch_runs_total",
		Help: "Monitoring runs by outcome",
	}, []string{"outcome"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "linkwatch_run_duration_seconds",
		Help:    "Wall time of completed monitoring runs",
		Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 300},
	})

	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkwatch_probes_total",
		Help: "Probes issued by kind and result",
	}, []string{"kind", "result"})

	ProbeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkwatch_probe_errors_total",
		Help: "Probe failures by error class",
	}, []string{"kind", "class"})

	// EdgeStatus is 1 for up, 0 for down and -1 for unknown
	EdgeStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "linkwatch_edge_status",
		Help: "Current status of each modeled link",
	}, []string{"edge"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkwatch_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"method", "route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linkwatch_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveProbe counts one probe outcome
func ObserveProbe(kind string, ok bool) {
	result := "fail"
	if ok {
		result = "ok"
	}
	ProbesTotal.WithLabelValues(kind, result).Inc()
}

// Middleware records request counts and latency keyed by chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		// Pattern is only known after routing
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
