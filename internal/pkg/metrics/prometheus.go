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
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuepulse",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "venuepulse",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "venuepulse",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Entitlement metrics
	entitlementDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuepulse",
			Subsystem: "entitlement",
			Name:      "decisions_total",
			Help:      "Total number of entitlement decisions by reason",
		},
		[]string{"reason", "allowed"},
	)

	entitlementEvalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "venuepulse",
			Subsystem: "entitlement",
			Name:      "eval_duration_seconds",
			Help:      "Duration of entitlement evaluations in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	entitlementLookupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuepulse",
			Subsystem: "entitlement",
			Name:      "lookup_failures_total",
			Help:      "Total number of upstream lookup failures by fail mode",
		},
		[]string{"mode"},
	)

	entitlementCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "venuepulse",
			Subsystem: "entitlement",
			Name:      "cache_requests_total",
			Help:      "Decision cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// Trial metrics
	trialsExpiringSoon = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "venuepulse",
			Subsystem: "trial",
			Name:      "expiring_soon_count",
			Help:      "Number of trials expiring within the watch horizon",
		},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a middleware that records Prometheus metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()

		// Get route pattern from chi
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}

		status := strconv.Itoa(wrapped.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, routePattern, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, routePattern, status).Observe(duration)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDecision records an entitlement decision
func RecordDecision(reason string, allowed bool, duration time.Duration) {
	entitlementDecisionsTotal.WithLabelValues(reason, strconv.FormatBool(allowed)).Inc()
	entitlementEvalDuration.Observe(duration.Seconds())
}

// RecordLookupFailure records an upstream lookup failure
func RecordLookupFailure(mode string) {
	entitlementLookupFailures.WithLabelValues(mode).Inc()
}

// RecordCacheHit records a decision cache hit
func RecordCacheHit() {
	entitlementCacheRequests.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a decision cache miss
func RecordCacheMiss() {
	entitlementCacheRequests.WithLabelValues("miss").Inc()
}

// SetTrialsExpiring sets the gauge for trials expiring within the horizon
func SetTrialsExpiring(count float64) {
	trialsExpiringSoon.Set(count)
}
