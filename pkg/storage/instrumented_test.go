package storage_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/storage"
	"github.com/dd0wney/cluso-bim/pkg/storage/storetest"
)

func counter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.Counter.GetValue()
}

func TestInstrumentedContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.GraphStore {
		return storage.Instrumented(storage.NewMemoryStore(), metrics.NewRegistry())
	})
}

func TestInstrumentedRecordsOperations(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewRegistry()
	s := storage.Instrumented(storage.NewMemoryStore(), m)
	defer s.Close()

	require.NoError(t, s.UpsertVertex(ctx, &bim.Element{ID: "a", Type: bim.TypeRoom, Name: "A"}))
	require.Error(t, s.UpsertEdge(ctx, "a", bim.ConnectsTo, "missing", nil))
	_, err := s.Get(ctx, "missing")
	require.Error(t, err)
	_, err = s.Neighbors(ctx, "a", storage.Any)
	require.NoError(t, err)

	assert.Equal(t, 1.0, counter(t, m.StorageOperationsTotal.WithLabelValues("upsert_vertex", metrics.StatusSuccess)))
	assert.Equal(t, 1.0, counter(t, m.StorageOperationsTotal.WithLabelValues("upsert_edge", metrics.StatusError)))
	assert.Equal(t, 1.0, counter(t, m.StorageOperationsTotal.WithLabelValues("get", metrics.StatusSuccess)),
		"a missing vertex is not a store failure")
	assert.Equal(t, 1.0, counter(t, m.StorageOperationsTotal.WithLabelValues("neighbors", metrics.StatusSuccess)))
}

func TestInstrumentedUnwrapAndDescribe(t *testing.T) {
	inner := storage.NewMemoryStore()
	s := storage.Instrumented(inner, metrics.NewRegistry())
	assert.Same(t, inner, s.Unwrap())
	assert.Equal(t, "memory", storage.Describe(s))
}

func TestInstrumentedPing(t *testing.T) {
	m := metrics.NewRegistry()
	inner := storage.NewMemoryStore()
	s := storage.Instrumented(inner, m)

	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, inner.Close())
	assert.True(t, storage.IsClosed(s.Ping(context.Background())))

	assert.Equal(t, 1.0, counter(t, m.StorageOperationsTotal.WithLabelValues("ping", metrics.StatusSuccess)))
	assert.Equal(t, 1.0, counter(t, m.StorageOperationsTotal.WithLabelValues("ping", metrics.StatusError)))
}
