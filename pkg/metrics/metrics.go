package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry:  reg,
		startedAt: time.Now(),
	}

	r.initHTTPMetrics()
	r.initStorageMetrics()
	r.initQueryMetrics()
	r.initIngestMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Status maps an error to a status label value
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordHTTPRequest records a query API request under its route pattern. A
// 404 on a matched route counts as an element miss.
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration, size int) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
	r.HTTPResponseSizeBytes.WithLabelValues(route).Observe(float64(size))
	if status == "404" && route != UnmatchedRoute {
		r.HTTPElementMisses.WithLabelValues(route).Inc()
	}
}

// RecordStorageOperation records a storage operation
func (r *Registry) RecordStorageOperation(operation string, err error, duration time.Duration) {
	r.StorageOperationsTotal.WithLabelValues(operation, Status(err)).Inc()
	r.StorageOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordWALEntry counts a write-ahead log append
func (r *Registry) RecordWALEntry(op string) {
	r.StorageWALEntriesTotal.WithLabelValues(op).Inc()
}

// SetGraphSize updates the vertex and edge gauges
func (r *Registry) SetGraphSize(vertices, edges int) {
	r.StorageVerticesTotal.Set(float64(vertices))
	r.StorageEdgesTotal.Set(float64(edges))
}

// RecordQuery records a traversal or aggregation
func (r *Registry) RecordQuery(queryType string, err error, duration time.Duration, returned, visited int) {
	r.QueriesTotal.WithLabelValues(queryType, Status(err)).Inc()
	r.QueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
	if err != nil {
		return
	}
	r.QueryElementsReturned.WithLabelValues(queryType).Observe(float64(returned))
	r.QueryVerticesVisited.WithLabelValues(queryType).Observe(float64(visited))

	if duration > SlowQueryThreshold {
		r.SlowQueries.WithLabelValues(queryType).Inc()
	}
}

// RecordIngest records one registry ingest
func (r *Registry) RecordIngest(err error, elements int, duration time.Duration) {
	r.IngestsTotal.WithLabelValues(Status(err)).Inc()
	r.IngestDuration.Observe(duration.Seconds())
	if err == nil {
		r.IngestElements.Set(float64(elements))
	}
}

// RecordDerivedEdge counts an edge produced by derivation
func (r *Registry) RecordDerivedEdge(kind string) {
	r.EdgesDerivedTotal.WithLabelValues(kind).Inc()
}

// RecordSkippedEdge counts an edge skipped because an endpoint is missing
func (r *Registry) RecordSkippedEdge(kind string) {
	r.EdgesSkippedTotal.WithLabelValues(kind).Inc()
}

// MarkLoaded stamps the time of the last successful load
func (r *Registry) MarkLoaded(at time.Time) {
	r.LastLoadTimestamp.Set(float64(at.Unix()))
	r.mu.Lock()
	r.loadedAt = at
	r.mu.Unlock()
}

// RecordReload records a reload triggered by a signal or a file change
func (r *Registry) RecordReload(trigger string, err error) {
	r.ReloadsTotal.WithLabelValues(trigger, Status(err)).Inc()
}

// RecordBackup records a snapshot upload
func (r *Registry) RecordBackup(err error, size int64) {
	r.BackupsTotal.WithLabelValues(Status(err)).Inc()
	if err == nil {
		r.BackupSizeBytes.Set(float64(size))
	}
}

// UpdateSystemMetrics refreshes the runtime gauges. Called before a scrape.
func (r *Registry) UpdateSystemMetrics() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	r.UptimeSeconds.Set(time.Since(r.startedAt).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	if r.loadedAt.IsZero() {
		r.GraphAgeSeconds.Set(-1)
	} else {
		r.GraphAgeSeconds.Set(time.Since(r.loadedAt).Seconds())
	}
}
