package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStorageMetrics() {
	r.StorageVerticesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bimgraph_storage_vertices_total",
			Help: "Total number of element vertices in the graph",
		},
	)

	r.StorageEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bimgraph_storage_edges_total",
			Help: "Total number of relationship edges in the graph",
		},
	)

	r.StorageOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_storage_operations_total",
			Help: "Total number of graph store operations",
		},
		[]string{"operation", "status"},
	)

	r.StorageOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bimgraph_storage_operation_duration_seconds",
			Help:    "Graph store operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"operation"},
	)

	r.StorageWALEntriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_storage_wal_entries_total",
			Help: "Write-ahead log entries appended, by operation",
		},
		[]string{"op"},
	)
}
