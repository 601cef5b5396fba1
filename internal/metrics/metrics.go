// Package metrics holds the Prometheus collectors for the trivia service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trivia",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trivia",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trivia",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "path"},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trivia",
			Subsystem: "rewards",
			Name:      "settlements_total",
			Help:      "Reward settlement attempts by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	settlementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trivia",
			Subsystem: "rewards",
			Name:      "settlement_duration_seconds",
			Help:      "Duration of reward settlements.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~30s
		},
		[]string{"mode"},
	)

	activations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trivia",
			Subsystem: "rewards",
			Name:      "activations_total",
			Help:      "Account activation outcomes.",
		},
		[]string{"outcome"},
	)

	trustLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trivia",
			Subsystem: "rewards",
			Name:      "trustlines_total",
			Help:      "Trust line workflow outcomes.",
		},
		[]string{"outcome"},
	)

	rounds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trivia",
			Subsystem: "rounds",
			Name:      "transitions_total",
			Help:      "Round state transitions.",
		},
		[]string{"status"},
	)

	payouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trivia",
			Subsystem: "payouts",
			Name:      "attempts_total",
			Help:      "Payout dispatch attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		settlements,
		settlementDuration,
		activations,
		trustLines,
		rounds,
		payouts,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// pathOf maps a request to a low-cardinality label; nil uses the first
// two path segments.
func InstrumentHandler(next http.Handler, pathOf func(*http.Request) string) http.Handler {
	if pathOf == nil {
		pathOf = func(r *http.Request) string { return canonicalPath(r.URL.Path) }
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		method := strings.ToUpper(r.Method)
		path := pathOf(r)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordSettlement records one reward settlement. Outcome is "ok" or the
// failure code.
func RecordSettlement(mode, outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	settlements.WithLabelValues(mode, outcome).Inc()
	settlementDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordActivation records an activation workflow outcome.
func RecordActivation(outcome string) {
	activations.WithLabelValues(outcome).Inc()
}

// RecordTrustLine records a trust line workflow outcome.
func RecordTrustLine(outcome string) {
	trustLines.WithLabelValues(outcome).Inc()
}

// RecordRound records a round reaching status.
func RecordRound(status string) {
	rounds.WithLabelValues(status).Inc()
}

// RecordPayout records a payout dispatch attempt.
func RecordPayout(outcome string) {
	payouts.WithLabelValues(outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return "/" + strings.Join(parts, "/")
}
