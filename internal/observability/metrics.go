package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	gradingOutcomesTotal *prometheus.CounterVec
	analysisRunsTotal    *prometheus.CounterVec
	analysisCacheLookups *prometheus.CounterVec
	eventsPublishedTotal *prometheus.CounterVec
	rateLimitedTotal     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codementor_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codementor_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0, 30.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codementor_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		gradingOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codementor_grading_outcomes_total",
			Help: "Graded submissions by feedback mode and outcome (graded or fallback).",
		}, []string{"mode", "outcome"})

		analysisRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codementor_analysis_runs_total",
			Help: "Class performance analysis requests by result.",
		}, []string{"result"})

		analysisCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codementor_analysis_cache_lookups_total",
			Help: "Stored analysis cache lookups by result.",
		}, []string{"result"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codementor_events_published_total",
			Help: "Domain events published to the message broker.",
		}, []string{"subject", "status"})

		rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codementor_rate_limited_total",
			Help: "Requests rejected by the per-user rate limiter.",
		}, []string{"scope"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			gradingOutcomesTotal,
			analysisRunsTotal,
			analysisCacheLookups,
			eventsPublishedTotal,
			rateLimitedTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// GradingOutcomes counts graded submissions.
func GradingOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingOutcomesTotal
}

// AnalysisRuns counts class analysis requests.
func AnalysisRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return analysisRunsTotal
}

// AnalysisCacheLookups counts stored analysis cache hits and misses.
func AnalysisCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return analysisCacheLookups
}

// EventsPublished counts broker publishes.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// RateLimited counts requests rejected by a rate limiter scope.
func RateLimited() *prometheus.CounterVec {
	RegisterMetrics()
	return rateLimitedTotal
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
