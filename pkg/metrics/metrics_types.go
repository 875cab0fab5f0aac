package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec
	HTTPElementMisses     *prometheus.CounterVec

	// Storage Metrics
	StorageVerticesTotal     prometheus.Gauge
	StorageEdgesTotal        prometheus.Gauge
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec
	StorageWALEntriesTotal   *prometheus.CounterVec

	// Query Metrics
	QueriesTotal          *prometheus.CounterVec
	QueryDuration         *prometheus.HistogramVec
	QueryElementsReturned *prometheus.HistogramVec
	QueryVerticesVisited  *prometheus.HistogramVec
	SlowQueries           *prometheus.CounterVec

	// Ingest Metrics
	IngestsTotal      *prometheus.CounterVec
	IngestDuration    prometheus.Histogram
	IngestElements    prometheus.Gauge
	EdgesDerivedTotal *prometheus.CounterVec
	EdgesSkippedTotal *prometheus.CounterVec
	LastLoadTimestamp prometheus.Gauge
	ReloadsTotal      *prometheus.CounterVec
	BackupsTotal      *prometheus.CounterVec
	BackupSizeBytes   prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GraphAgeSeconds  prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	startedAt time.Time
	loadedAt  time.Time
	registry  *prometheus.Registry
	mu        sync.Mutex
}

// SlowQueryThreshold marks a traversal as slow in SlowQueries
const SlowQueryThreshold = 500 * time.Millisecond

// UnmatchedRoute labels requests no route pattern matched
const UnmatchedRoute = "unmatched"

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
