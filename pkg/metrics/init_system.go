package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process gauges are refreshed by UpdateSystemMetrics before each scrape
func (r *Registry) initSystemMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bimgraph_uptime_seconds",
			Help: "Seconds since this process started serving",
		},
	)

	r.GraphAgeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bimgraph_graph_age_seconds",
			Help: "Seconds since the served graph was loaded, reloaded or restored; -1 before the first load",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bimgraph_goroutines",
			Help: "Goroutines, including one per in-flight request",
		},
	)

	r.MemoryAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "bimgraph_heap_alloc_bytes",
			Help: "Heap bytes in use, dominated by the in-memory graph",
		},
	)
}
