package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initIngestMetrics() {
	r.IngestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_ingests_total",
			Help: "Element set ingests by result",
		},
		[]string{"status"},
	)

	r.IngestDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bimgraph_ingest_duration_seconds",
			Help:    "Time spent validating an element set",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.IngestElements = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bimgraph_ingest_elements",
			Help: "Elements in the last accepted element set",
		},
	)

	r.EdgesDerivedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_edges_derived_total",
			Help: "Relationships derived from element sets",
		},
		[]string{"kind"},
	)

	r.EdgesSkippedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_edges_skipped_total",
			Help: "Relationships skipped because an endpoint is not in the store",
		},
		[]string{"kind"},
	)

	r.LastLoadTimestamp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bimgraph_last_load_timestamp_seconds",
			Help: "Unix time of the last successful graph load",
		},
	)

	r.ReloadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_reloads_total",
			Help: "Graph reloads by trigger and result",
		},
		[]string{"trigger", "status"},
	)

	r.BackupsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "bimgraph_backups_total",
			Help: "Snapshot uploads by result",
		},
		[]string{"status"},
	)

	r.BackupSizeBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bimgraph_backup_size_bytes",
			Help: "Size of the last uploaded snapshot",
		},
	)
}
