package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP series are labelled by route pattern, e.g. "GET /elements/{id}/children",
// never by raw path, so element ids cannot grow the label space.
func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_http_requests_total",
			Help: "Query API requests by route pattern and status",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bimgraph_http_request_duration_seconds",
			Help:    "Query API latency by route pattern",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bimgraph_http_requests_in_flight",
			Help: "Query API requests being served",
		},
	)

	r.HTTPResponseSizeBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bimgraph_http_response_size_bytes",
			Help:    "Query API response size by route pattern",
			Buckets: prometheus.ExponentialBuckets(128, 4, 7),
		},
		[]string{"route"},
	)

	r.HTTPElementMisses = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_http_element_misses_total",
			Help: "Requests on a matched route that named an element id missing from the graph",
		},
		[]string{"route"},
	)
}
