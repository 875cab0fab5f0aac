package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initQueryMetrics() {
	r.QueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_queries_total",
			Help: "Total number of traversal and aggregation queries",
		},
		[]string{"query_type", "status"},
	)

	r.QueryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bimgraph_query_duration_seconds",
			Help:    "Query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"query_type"},
	)

	r.QueryElementsReturned = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bimgraph_query_elements_returned",
			Help:    "Number of elements returned per query",
			Buckets: []float64{1, 10, 100, 1000, 10000},
		},
		[]string{"query_type"},
	)

	r.QueryVerticesVisited = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bimgraph_query_vertices_visited",
			Help:    "Number of vertices expanded per query",
			Buckets: []float64{1, 10, 100, 1000, 10000},
		},
		[]string{"query_type"},
	)

	r.SlowQueries = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_slow_queries_total",
			Help: "Total number of slow queries (>500ms)",
		},
		[]string{"query_type"},
	)
}
