// Package metrics defines the Prometheus metric collectors used across the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	MatchRequestsTotal   *prometheus.CounterVec
	MatchLatency         *prometheus.HistogramVec
	MatchResultsCount    prometheus.Histogram
	JobsScoredTotal      prometheus.Counter
	SkillsExtracted      prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	JobsLoaded           prometheus.Gauge
	RateLimitedTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. A nil reg uses the
// default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		MatchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "match_requests_total",
				Help: "Total match requests by result type (hit, miss, zero_result, error).",
			},
			[]string{"result_type"},
		),
		MatchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "match_latency_seconds",
				Help:    "Match request latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		MatchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "match_results_count",
				Help:    "Number of jobs returned per match request.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		JobsScoredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "jobs_scored_total",
				Help: "Total job postings scored against a resume.",
			},
		),
		SkillsExtracted: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "skills_extracted_count",
				Help:    "Number of skills extracted per resume.",
				Buckets: []float64{0, 1, 3, 6, 9, 12},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		JobsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "jobs_loaded",
				Help: "Number of job postings in the current collection.",
			},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rate_limited_total",
				Help: "Total requests rejected by the rate limiter.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.MatchRequestsTotal,
		m.MatchLatency,
		m.MatchResultsCount,
		m.JobsScoredTotal,
		m.SkillsExtracted,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.JobsLoaded,
		m.RateLimitedTotal,
		m.CircuitBreakerState,
	)

	return m
}

// HandlerFor returns a scrape handler for g that logs gather errors and
// offers the OpenMetrics format.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
	})
}
