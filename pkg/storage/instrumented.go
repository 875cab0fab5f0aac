package storage

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
)

// InstrumentedStore records the count and latency of every call on the
// wrapped store.
type InstrumentedStore struct {
	next    GraphStore
	metrics *metrics.Registry
}

// Instrumented wraps store so its operations are recorded on m
func Instrumented(store GraphStore, m *metrics.Registry) *InstrumentedStore {
	return &InstrumentedStore{next: store, metrics: m}
}

// Unwrap returns the wrapped store
func (s *InstrumentedStore) Unwrap() GraphStore {
	return s.next
}

func (s *InstrumentedStore) record(op string, start time.Time, err error) {
	s.metrics.RecordStorageOperation(op, err, time.Since(start))
}

func (s *InstrumentedStore) UpsertVertex(ctx context.Context, e *bim.Element) (err error) {
	defer func(start time.Time) { s.record("upsert_vertex", start, err) }(time.Now())
	return s.next.UpsertVertex(ctx, e)
}

func (s *InstrumentedStore) UpsertEdge(ctx context.Context, from string, kind bim.RelationshipKind, to string, props bim.Properties) (err error) {
	defer func(start time.Time) { s.record("upsert_edge", start, err) }(time.Now())
	return s.next.UpsertEdge(ctx, from, kind, to, props)
}

func (s *InstrumentedStore) Exists(ctx context.Context, id string) (ok bool, err error) {
	defer func(start time.Time) { s.record("exists", start, err) }(time.Now())
	return s.next.Exists(ctx, id)
}

func (s *InstrumentedStore) Get(ctx context.Context, id string) (e *bim.Element, err error) {
	defer func(start time.Time) {
		// A missing vertex is an answer, not a failure.
		if IsNotFound(err) {
			s.record("get", start, nil)
			return
		}
		s.record("get", start, err)
	}(time.Now())
	return s.next.Get(ctx, id)
}

func (s *InstrumentedStore) Neighbors(ctx context.Context, id string, dir Direction, kinds ...bim.RelationshipKind) (out []*bim.Element, err error) {
	defer func(start time.Time) { s.record("neighbors", start, err) }(time.Now())
	return s.next.Neighbors(ctx, id, dir, kinds...)
}

func (s *InstrumentedStore) VerticesByType(ctx context.Context, t bim.ElementType) (out []*bim.Element, err error) {
	defer func(start time.Time) { s.record("vertices_by_type", start, err) }(time.Now())
	return s.next.VerticesByType(ctx, t)
}

func (s *InstrumentedStore) TruncateAll(ctx context.Context) (res TruncateResult, err error) {
	defer func(start time.Time) {
		s.record("truncate", start, err)
		if err == nil {
			s.metrics.SetGraphSize(0, 0)
		}
	}(time.Now())
	return s.next.TruncateAll(ctx)
}

func (s *InstrumentedStore) CountVertices(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { s.record("count_vertices", start, err) }(time.Now())
	return s.next.CountVertices(ctx)
}

func (s *InstrumentedStore) CountVerticesByType(ctx context.Context) (counts map[bim.ElementType]int, err error) {
	defer func(start time.Time) { s.record("count_vertices_by_type", start, err) }(time.Now())
	return s.next.CountVerticesByType(ctx)
}

func (s *InstrumentedStore) CountEdgesByKind(ctx context.Context) (counts map[bim.RelationshipKind]int, err error) {
	defer func(start time.Time) { s.record("count_edges_by_kind", start, err) }(time.Now())
	return s.next.CountEdgesByKind(ctx)
}

func (s *InstrumentedStore) Export(ctx context.Context) (snap *bim.Snapshot, err error) {
	defer func(start time.Time) { s.record("export", start, err) }(time.Now())
	return s.next.Export(ctx)
}

func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}

// Describe names the wrapped backend
func (s *InstrumentedStore) Describe() string {
	return Describe(s.next)
}

// Ping checks the wrapped backend when it supports a connectivity check,
// otherwise it counts vertices
func (s *InstrumentedStore) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { s.record("ping", start, err) }(time.Now())
	if p, ok := s.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err = s.next.CountVertices(ctx)
	return err
}

var _ GraphStore = (*InstrumentedStore)(nil)
