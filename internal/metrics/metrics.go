// Package metrics provides Prometheus metrics for the membership card API.
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
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "membercard",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "membercard",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks current in-flight requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "membercard",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

var (
	// CardsIssuedTotal counts issued card numbers
	CardsIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "membercard",
			Subsystem: "card",
			Name:      "issued_total",
			Help:      "Total number of card identifiers issued",
		},
	)

	// CardGenerationRetriesTotal counts uniqueness collisions during generation
	CardGenerationRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "membercard",
			Subsystem: "card",
			Name:      "generation_retries_total",
			Help:      "Total number of card generation retries caused by uniqueness collisions",
		},
	)

	// CardGenerationExhaustedTotal counts generation attempts that hit the retry cap
	CardGenerationExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "membercard",
			Subsystem: "card",
			Name:      "generation_exhausted_total",
			Help:      "Total number of card generation calls that exhausted the retry cap",
		},
	)

	// LuhnValidationsTotal counts checksum validations by outcome
	LuhnValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "membercard",
			Subsystem: "card",
			Name:      "luhn_validations_total",
			Help:      "Total number of card number validations by outcome",
		},
		[]string{"valid"},
	)
)

var (
	// TokensEncodedTotal counts verification tokens issued by kind
	TokensEncodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "membercard",
			Subsystem: "token",
			Name:      "encoded_total",
			Help:      "Total number of verification tokens encoded by kind",
		},
		[]string{"kind"},
	)

	// TokenDecodesTotal counts decode attempts by result
	// (verified, bad_signature, unsupported_version, expired, malformed, replayed)
	TokenDecodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "membercard",
			Subsystem: "token",
			Name:      "decodes_total",
			Help:      "Total number of token decode attempts by result",
		},
		[]string{"result"},
	)

	// EligibilityDerivationsDegradedTotal counts derivations that fell back
	// to the conservative not-eligible default
	EligibilityDerivationsDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "membercard",
			Subsystem: "token",
			Name:      "derivations_degraded_total",
			Help:      "Total number of eligibility derivations that degraded to not-eligible",
		},
	)
)

var (
	// DBConnectionsOpen tracks open database connections
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "membercard",
			Subsystem: "db",
			Name:      "connections_open",
			Help:      "Number of open database connections",
		},
	)

	// DBConnectionsInUse tracks database connections currently in use
	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "membercard",
			Subsystem: "db",
			Name:      "connections_in_use",
			Help:      "Number of database connections currently in use",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "membercard",
			Subsystem: "db",
			Name:      "connections_idle",
			Help:      "Number of idle database connections",
		},
	)

	// DBConnectionsMaxOpen tracks maximum open database connections
	DBConnectionsMaxOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "membercard",
			Subsystem: "db",
			Name:      "connections_max_open",
			Help:      "Maximum number of open database connections",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware instruments HTTP requests with request count, duration, and
// in-flight gauges. Route patterns from chi are used instead of raw paths to
// keep label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = "unmatched"
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captures the response status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
