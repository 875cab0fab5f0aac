package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/wal"
)

// NewMemoryStore creates a volatile store with no write-ahead log
func NewMemoryStore() *MemoryStore {
	s, _ := OpenMemoryStore(MemoryConfig{})
	return s
}

// OpenMemoryStore creates a store and, when cfg.DataDir is set, replays the
// write-ahead log found there.
func OpenMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	s := &MemoryStore{
		dataDir: cfg.DataDir,
		metrics: cfg.Metrics,
		logger:  logging.OrDefault(cfg.Logger).With(logging.Component("memstore")),
	}
	s.reset()

	if cfg.DataDir == "" {
		return s, nil
	}

	log, err := wal.Open(cfg.DataDir, cfg.CompressWAL, s.logger)
	if err != nil {
		return nil, NewError("open").WAL().Cause(err).Err()
	}
	s.log = log

	start := time.Now()
	if err := s.replay(); err != nil {
		log.Close()
		return nil, NewError("replay").WAL().Cause(err).Err()
	}
	s.logger.Info("store recovered",
		logging.Path(log.Path()),
		logging.Int("vertices", len(s.vertices)),
		logging.Int("edges", len(s.edges)),
		logging.Int("entries", s.stats.ReplayedEntries),
		logging.Latency(time.Since(start)))

	return s, nil
}

func (s *MemoryStore) reset() {
	s.vertices = make([]vertexSlot, 0)
	s.index = make(map[string]int)
	s.edges = make([]edgeSlot, 0)
	s.edgeIndex = make(map[bim.EdgeKey]int)
	s.byType = make(map[bim.ElementType][]int)
}

// check validates context and store state. Caller holds at least the read lock.
func (s *MemoryStore) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return NewError(op).Store().Cause(err).Err()
	}
	if s.closed {
		return ClosedError(op)
	}
	return nil
}

// UpsertVertex inserts e or replaces the vertex with the same id. A replaced
// vertex keeps its position in store order and its edges.
func (s *MemoryStore) UpsertVertex(ctx context.Context, e *bim.Element) error {
	if e == nil || e.ID == "" {
		return NewError("upsert_vertex").Vertex("").Cause(fmt.Errorf("element id is required")).Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "upsert_vertex"); err != nil {
		return err
	}
	if err := s.appendLog("upsert_vertex", wal.OpUpsertVertex, e); err != nil {
		return err
	}
	s.applyUpsertVertex(e.Clone())
	return nil
}

func (s *MemoryStore) applyUpsertVertex(e *bim.Element) {
	s.stats.VertexUpserts++

	if i, ok := s.index[e.ID]; ok {
		old := s.vertices[i].elem
		if old.Type != e.Type {
			s.byType[old.Type] = removeIndex(s.byType[old.Type], i)
			s.byType[e.Type] = insertSorted(s.byType[e.Type], i)
		}
		s.vertices[i].elem = e
		return
	}

	i := len(s.vertices)
	s.vertices = append(s.vertices, vertexSlot{elem: e})
	s.index[e.ID] = i
	s.byType[e.Type] = append(s.byType[e.Type], i)
}

// UpsertEdge inserts the edge (from, kind, to) or replaces its properties.
// Both endpoints must exist.
func (s *MemoryStore) UpsertEdge(ctx context.Context, from string, kind bim.RelationshipKind, to string, props bim.Properties) error {
	rel := bim.Relationship{From: from, Kind: kind, To: to, Properties: props.Clone()}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "upsert_edge"); err != nil {
		return err
	}
	if _, ok := s.index[from]; !ok {
		return NewError("upsert_edge").Edge(rel.Key()).Context("from " + from).Cause(ErrVertexNotFound).Err()
	}
	if _, ok := s.index[to]; !ok {
		return NewError("upsert_edge").Edge(rel.Key()).Context("to " + to).Cause(ErrVertexNotFound).Err()
	}
	if err := s.appendLog("upsert_edge", wal.OpUpsertEdge, rel); err != nil {
		return err
	}
	return s.applyUpsertEdge(rel)
}

func (s *MemoryStore) applyUpsertEdge(rel bim.Relationship) error {
	fromIdx, ok := s.index[rel.From]
	if !ok {
		return VertexNotFoundError("upsert_edge", rel.From)
	}
	toIdx, ok := s.index[rel.To]
	if !ok {
		return VertexNotFoundError("upsert_edge", rel.To)
	}

	s.stats.EdgeUpserts++

	key := rel.Key()
	if i, ok := s.edgeIndex[key]; ok {
		s.edges[i].rel.Properties = rel.Properties
		return nil
	}

	i := len(s.edges)
	s.edges = append(s.edges, edgeSlot{rel: rel, from: fromIdx, to: toIdx})
	s.edgeIndex[key] = i
	s.vertices[fromIdx].out = append(s.vertices[fromIdx].out, i)
	s.vertices[toIdx].in = append(s.vertices[toIdx].in, i)
	return nil
}

// Exists reports whether a vertex with id is stored
func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "exists"); err != nil {
		return false, err
	}
	_, ok := s.index[id]
	return ok, nil
}

// Get returns a copy of the vertex with id
func (s *MemoryStore) Get(ctx context.Context, id string) (*bim.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "get"); err != nil {
		return nil, err
	}
	i, ok := s.index[id]
	if !ok {
		return nil, VertexNotFoundError("get", id)
	}
	return s.vertices[i].elem.Clone(), nil
}

// Neighbors returns the far endpoints of the matching edges of id
func (s *MemoryStore) Neighbors(ctx context.Context, id string, dir Direction, kinds ...bim.RelationshipKind) ([]*bim.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "neighbors"); err != nil {
		return nil, err
	}
	if dir != Outbound && dir != Inbound && dir != Any {
		return nil, NewError("neighbors").Vertex(id).Cause(fmt.Errorf("unknown direction %q", dir)).Err()
	}

	i, ok := s.index[id]
	if !ok {
		return []*bim.Element{}, nil
	}
	slot := &s.vertices[i]

	result := make([]*bim.Element, 0)
	if dir == Outbound || dir == Any {
		for _, ei := range slot.out {
			edge := &s.edges[ei]
			if matchesKind(edge.rel.Kind, kinds) {
				result = append(result, s.vertices[edge.to].elem.Clone())
			}
		}
	}
	if dir == Inbound || dir == Any {
		for _, ei := range slot.in {
			edge := &s.edges[ei]
			if matchesKind(edge.rel.Kind, kinds) {
				result = append(result, s.vertices[edge.from].elem.Clone())
			}
		}
	}
	return result, nil
}

// VerticesByType returns every vertex of type t in store order
func (s *MemoryStore) VerticesByType(ctx context.Context, t bim.ElementType) ([]*bim.Element, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "vertices_by_type"); err != nil {
		return nil, err
	}
	indices := s.byType[t]
	result := make([]*bim.Element, 0, len(indices))
	for _, i := range indices {
		result = append(result, s.vertices[i].elem.Clone())
	}
	return result, nil
}

// TruncateAll removes every vertex and edge. The write-ahead log is emptied too.
func (s *MemoryStore) TruncateAll(ctx context.Context) (TruncateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(ctx, "truncate"); err != nil {
		return TruncateResult{}, err
	}

	result := TruncateResult{VerticesDeleted: len(s.vertices), EdgesDeleted: len(s.edges)}

	if s.log != nil {
		// The marker makes a crash between append and rotation replay as empty.
		if err := s.appendLog("truncate", wal.OpTruncate, struct{}{}); err != nil {
			return TruncateResult{}, err
		}
		if err := s.log.Truncate(); err != nil {
			return TruncateResult{}, WALError("truncate", err)
		}
	}

	s.applyTruncate()
	return result, nil
}

func (s *MemoryStore) applyTruncate() {
	s.reset()
	s.stats.Truncates++
	s.stats.LastTruncate = time.Now()
}

// CountVertices returns the number of vertices
func (s *MemoryStore) CountVertices(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "count_vertices"); err != nil {
		return 0, err
	}
	return len(s.vertices), nil
}

// CountVerticesByType returns vertex counts for every type present
func (s *MemoryStore) CountVerticesByType(ctx context.Context) (map[bim.ElementType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "count_vertices_by_type"); err != nil {
		return nil, err
	}
	counts := make(map[bim.ElementType]int, len(s.byType))
	for t, indices := range s.byType {
		if len(indices) > 0 {
			counts[t] = len(indices)
		}
	}
	return counts, nil
}

// CountEdgesByKind returns edge counts for every kind present
func (s *MemoryStore) CountEdgesByKind(ctx context.Context) (map[bim.RelationshipKind]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "count_edges_by_kind"); err != nil {
		return nil, err
	}
	counts := make(map[bim.RelationshipKind]int)
	for i := range s.edges {
		counts[s.edges[i].rel.Kind]++
	}
	return counts, nil
}

// Export copies the whole graph in store order
func (s *MemoryStore) Export(ctx context.Context) (*bim.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(ctx, "export"); err != nil {
		return nil, err
	}
	snap := &bim.Snapshot{
		Vertices: make([]bim.Element, 0, len(s.vertices)),
		Edges:    make([]bim.Relationship, 0, len(s.edges)),
	}
	for i := range s.vertices {
		snap.Vertices = append(snap.Vertices, *s.vertices[i].elem.Clone())
	}
	for i := range s.edges {
		rel := s.edges[i].rel
		rel.Properties = rel.Properties.Clone()
		snap.Edges = append(snap.Edges, rel)
	}
	return snap, nil
}

// Stats returns a copy of the store statistics
func (s *MemoryStore) Stats() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.VertexCount = len(s.vertices)
	stats.EdgeCount = len(s.edges)
	if s.log != nil {
		stats.WALPath = s.log.Path()
		stats.WALLSN = s.log.CurrentLSN()
	}
	return stats
}

// Describe names the backend
func (s *MemoryStore) Describe() string {
	if s.log == nil {
		return "memory"
	}
	return "memory (wal " + s.log.Path() + ")"
}

// Close closes the write-ahead log. Further operations fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.log != nil {
		if err := s.log.Close(); err != nil {
			return WALError("close", err)
		}
	}
	return nil
}

func removeIndex(indices []int, target int) []int {
	for i, v := range indices {
		if v == target {
			return append(indices[:i], indices[i+1:]...)
		}
	}
	return indices
}

// insertSorted keeps per-type lists in store order after a type change
func insertSorted(indices []int, v int) []int {
	pos := len(indices)
	for i, existing := range indices {
		if existing > v {
			pos = i
			break
		}
	}
	indices = append(indices, 0)
	copy(indices[pos+1:], indices[pos:])
	indices[pos] = v
	return indices
}

var _ GraphStore = (*MemoryStore)(nil)
