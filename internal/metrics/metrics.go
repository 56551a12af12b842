// Package metrics provides Prometheus metrics for socialear.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "socialear"

var (
	// HTTPRequestsTotal counts served HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	// AnalysesTotal counts analyze pipeline runs by outcome.
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of sentiment analyses",
		},
		[]string{"outcome"},
	)

	// ArticlesClassified counts classified articles by label.
	ArticlesClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_classified_total",
			Help:      "Total number of articles classified, by label",
		},
		[]string{"label"},
	)

	// UpstreamRequestDuration measures calls to external providers.
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of external provider calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)

	// StoreOperationsTotal counts result store operations.
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of result store operations",
		},
		[]string{"operation", "status"},
	)
)

// RecordUpstream records one call to an external provider.
func RecordUpstream(service string, ok bool, seconds float64) {
	UpstreamRequestDuration.WithLabelValues(service, statusLabel(ok)).Observe(seconds)
}

// RecordStore records one result store operation.
func RecordStore(operation string, ok bool) {
	StoreOperationsTotal.WithLabelValues(operation, statusLabel(ok)).Inc()
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
