package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const OutcomeSuccess = "success"

// Endpoint labels. Paths outside the API collapse into EndpointOther so
// scanners cannot grow the label set.
const (
	EndpointAsk     = "ask"
	EndpointQuery   = "query"
	EndpointSchema  = "schema"
	EndpointHistory = "history"
	EndpointHealth  = "health"
	EndpointReady   = "ready"
	EndpointMetrics = "metrics"
	EndpointOther   = "other"
)

var endpointsByPath = map[string]string{
	"/v1/ask":     EndpointAsk,
	"/v1/query":   EndpointQuery,
	"/v1/schema":  EndpointSchema,
	"/v1/history": EndpointHistory,
	"/v1/health":  EndpointHealth,
	"/v1/ready":   EndpointReady,
	"/v1/metrics": EndpointMetrics,
}

// EndpointName maps a request path to its metrics label.
func EndpointName(path string) string {
	if name, ok := endpointsByPath[strings.TrimSuffix(path, "/")]; ok {
		return name
	}
	return EndpointOther
}


var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckask_http_requests_total",
			Help: "Total number of HTTP requests by endpoint.",
		},
		[]string{"endpoint", "method", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckask_http_request_duration_seconds",
			Help:    "HTTP request latency by endpoint. Ask requests include generation time.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"endpoint", "method"},
	)

	queryCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckask_query_cycles_total",
			Help: "Total number of question-to-result cycles by outcome.",
		},
		[]string{"outcome"},
	)
	queryCycleDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckask_query_cycle_duration_seconds",
			Help:    "End-to-end latency of a query cycle, including generation.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)
	generationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckask_generation_duration_seconds",
			Help:    "Latency of text-generation calls by provider.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"provider"},
	)
	rowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckask_rows_returned",
			Help:    "Rows returned per successful query cycle.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
	rowsTruncatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "duckask_rows_truncated_total",
			Help: "Total number of results cut at the configured row cap.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		queryCyclesTotal,
		queryCycleDurationSeconds,
		generationDurationSeconds,
		rowsReturned,
		rowsTruncatedTotal,
	)
}

// ObserveQueryCycle records one finished cycle. outcome is OutcomeSuccess or
// the failure kind reported on the result.
func ObserveQueryCycle(outcome string, rows int, truncated bool, elapsed time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	queryCyclesTotal.WithLabelValues(outcome).Inc()
	queryCycleDurationSeconds.Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		rowsReturned.Observe(float64(rows))
	}
	if truncated {
		rowsTruncatedTotal.Inc()
	}
}

func ObserveGeneration(provider string, elapsed time.Duration) {
	generationDurationSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}
