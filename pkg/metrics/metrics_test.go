package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal not initialized")
	}
	if r.StorageVerticesTotal == nil {
		t.Error("StorageVerticesTotal not initialized")
	}
	if r.QueriesTotal == nil {
		t.Error("QueriesTotal not initialized")
	}
	if r.IngestsTotal == nil {
		t.Error("IngestsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	r := NewRegistry()

	r.RecordHTTPRequest("GET", "/elements/{id}", "200", 100*time.Millisecond, 512)
	r.RecordHTTPRequest("GET", "/elements/{id}", "404", 50*time.Millisecond, 40)

	if got := counterValue(t, r.HTTPRequestsTotal.WithLabelValues("GET", "/elements/{id}", "200")); got != 1 {
		t.Errorf("Counter value = %v, want 1", got)
	}
	if got := counterValue(t, r.HTTPElementMisses.WithLabelValues("/elements/{id}")); got != 1 {
		t.Errorf("Element misses = %v, want 1", got)
	}

	// A path no route matched is not an element miss
	r.RecordHTTPRequest("GET", UnmatchedRoute, "404", time.Millisecond, 19)
	if got := counterValue(t, r.HTTPElementMisses.WithLabelValues(UnmatchedRoute)); got != 0 {
		t.Errorf("Unmatched misses = %v, want 0", got)
	}
}

func TestRecordStorageOperation(t *testing.T) {
	r := NewRegistry()

	r.RecordStorageOperation("upsert_vertex", nil, 10*time.Millisecond)
	r.RecordStorageOperation("upsert_vertex", nil, 20*time.Millisecond)
	r.RecordStorageOperation("upsert_vertex", errors.New("closed"), 5*time.Millisecond)

	if got := counterValue(t, r.StorageOperationsTotal.WithLabelValues("upsert_vertex", StatusSuccess)); got != 2 {
		t.Errorf("Success counter = %v, want 2", got)
	}
	if got := counterValue(t, r.StorageOperationsTotal.WithLabelValues("upsert_vertex", StatusError)); got != 1 {
		t.Errorf("Error counter = %v, want 1", got)
	}
}

func TestRecordQuery(t *testing.T) {
	r := NewRegistry()

	r.RecordQuery("descendants", nil, 10*time.Millisecond, 12, 14)
	r.RecordQuery("descendants", nil, time.Second, 1, 1)
	r.RecordQuery("find_path", errors.New("store unavailable"), time.Second, 0, 0)

	if got := counterValue(t, r.QueriesTotal.WithLabelValues("descendants", StatusSuccess)); got != 2 {
		t.Errorf("QueriesTotal = %v, want 2", got)
	}
	if got := counterValue(t, r.SlowQueries.WithLabelValues("descendants")); got != 1 {
		t.Errorf("SlowQueries = %v, want 1", got)
	}
	if got := counterValue(t, r.SlowQueries.WithLabelValues("find_path")); got != 0 {
		t.Errorf("failed queries should not count as slow, got %v", got)
	}

	var metric dto.Metric
	h := r.QueryElementsReturned.WithLabelValues("descendants").(prometheus.Histogram)
	if err := h.Write(&metric); err != nil {
		t.Fatal(err)
	}
	if metric.Histogram.GetSampleCount() != 2 || metric.Histogram.GetSampleSum() != 13 {
		t.Errorf("elements returned = %d samples / %v sum", metric.Histogram.GetSampleCount(), metric.Histogram.GetSampleSum())
	}
}

func TestIngestMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordIngest(nil, 42, time.Millisecond)
	r.RecordIngest(errors.New("duplicate"), 7, time.Millisecond)
	r.RecordDerivedEdge("PART_OF")
	r.RecordDerivedEdge("PART_OF")
	r.RecordSkippedEdge("CONNECTS_TO")
	r.RecordReload("sighup", nil)
	r.RecordBackup(nil, 2048)
	r.MarkLoaded(time.Unix(1700000000, 0))

	if got := gaugeValue(t, r.IngestElements); got != 42 {
		t.Errorf("IngestElements = %v, want 42 (failed ingest must not overwrite)", got)
	}
	if got := counterValue(t, r.IngestsTotal.WithLabelValues(StatusError)); got != 1 {
		t.Errorf("failed ingests = %v, want 1", got)
	}
	if got := counterValue(t, r.EdgesDerivedTotal.WithLabelValues("PART_OF")); got != 2 {
		t.Errorf("EdgesDerivedTotal = %v, want 2", got)
	}
	if got := counterValue(t, r.EdgesSkippedTotal.WithLabelValues("CONNECTS_TO")); got != 1 {
		t.Errorf("EdgesSkippedTotal = %v, want 1", got)
	}
	if got := counterValue(t, r.ReloadsTotal.WithLabelValues("sighup", StatusSuccess)); got != 1 {
		t.Errorf("ReloadsTotal = %v, want 1", got)
	}
	if got := gaugeValue(t, r.BackupSizeBytes); got != 2048 {
		t.Errorf("BackupSizeBytes = %v, want 2048", got)
	}
	if got := gaugeValue(t, r.LastLoadTimestamp); got != 1700000000 {
		t.Errorf("LastLoadTimestamp = %v", got)
	}
}

func TestGraphSizeAndSystemMetrics(t *testing.T) {
	r := NewRegistry()

	r.SetGraphSize(10, 18)
	if gaugeValue(t, r.StorageVerticesTotal) != 10 || gaugeValue(t, r.StorageEdgesTotal) != 18 {
		t.Error("graph size gauges not set")
	}

	r.UpdateSystemMetrics()
	if gaugeValue(t, r.GoRoutines) <= 0 {
		t.Error("GoRoutines should be positive")
	}
	if gaugeValue(t, r.MemoryAllocBytes) <= 0 {
		t.Error("MemoryAllocBytes should be positive")
	}
	if got := gaugeValue(t, r.GraphAgeSeconds); got != -1 {
		t.Errorf("GraphAgeSeconds before any load = %v, want -1", got)
	}

	r.MarkLoaded(time.Now().Add(-time.Minute))
	r.UpdateSystemMetrics()
	if got := gaugeValue(t, r.GraphAgeSeconds); got < 60 {
		t.Errorf("GraphAgeSeconds = %v, want >= 60", got)
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.RecordQuery("children", nil, time.Millisecond, 3, 1)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if got := counterValue(t, r.QueriesTotal.WithLabelValues("children", StatusSuccess)); got != 1000 {
		t.Errorf("Counter = %v, want 1000", got)
	}
}

func TestMetricNaming(t *testing.T) {
	r := NewRegistry()
	r.RecordQuery("children", nil, time.Millisecond, 1, 1)

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metrics gathered")
	}

	for _, m := range families {
		if !strings.HasPrefix(m.GetName(), "bimgraph_") {
			t.Errorf("Metric %s does not have bimgraph_ prefix", m.GetName())
		}
	}
}

func BenchmarkRecordQuery(b *testing.B) {
	r := NewRegistry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.RecordQuery("descendants", nil, time.Millisecond, 10, 10)
	}
}
