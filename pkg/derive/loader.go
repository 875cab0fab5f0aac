package derive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/registry"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

// Reload triggers
const (
	TriggerManual = "manual"
	TriggerSignal = "signal"
	TriggerWatch   = "watch"
	TriggerRestore = "restore"
)

// Loader runs whole load cycles: read the input document, validate it,
// replace the stored graph. Cycles are serialized.
type Loader struct {
	registry *registry.Registry
	builder  *Builder
	store    storage.GraphStore
	logger   logging.Logger
	metrics  *metrics.Registry

	mu   sync.Mutex
	last *LoadReport
}

// NewLoader creates a loader. m may be nil.
func NewLoader(reg *registry.Registry, store storage.GraphStore, logger logging.Logger, m *metrics.Registry) *Loader {
	logger = logging.OrDefault(logger)
	return &Loader{
		registry: reg,
		builder:  NewBuilder(store, logger, m),
		store:    store,
		logger:   logger.With(logging.Component("loader")),
		metrics:  m,
	}
}

// Load reads path and adds its graph to the store without clearing it first
func (l *Loader) Load(ctx context.Context, path string) (*LoadReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	input, set, err := l.read(path)
	if err != nil {
		return nil, err
	}
	return l.build(ctx, set, input)
}

// Reload replaces the stored graph with the contents of path. The input is
// validated before anything is truncated, so a rejected document leaves the
// previous graph in place. File watch reloads of a document whose
// fingerprint matches the last load are skipped.
func (l *Loader) Reload(ctx context.Context, path, trigger string) (report *LoadReport, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.metrics != nil {
		defer func() { l.metrics.RecordReload(trigger, err) }()
	}

	input, set, err := l.read(path)
	if err != nil {
		l.logger.Warn("reload rejected, keeping current graph",
			logging.Path(path), logging.String("trigger", trigger), logging.Error(err))
		return nil, err
	}

	if trigger == TriggerWatch && l.last != nil && l.last.Fingerprint == input.Fingerprint {
		l.logger.Debug("input unchanged, skipping reload", logging.Path(path))
		return l.last, nil
	}

	deleted, err := l.store.TruncateAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clear graph: %w", err)
	}
	// The previous load is gone. A failed build must not leave its
	// fingerprint behind to suppress the next watch reload.
	l.last = nil
	l.logger.Info("graph cleared for reload",
		logging.String("trigger", trigger),
		logging.Int("vertices_deleted", deleted.VerticesDeleted),
		logging.Int("edges_deleted", deleted.EdgesDeleted))

	return l.build(ctx, set, input)
}

// Replace swaps the stored graph for a snapshot taken by Store.Export. An
// empty loadID gets a fresh one. The snapshot carries its derived edges, so
// no rules are applied.
func (l *Loader) Replace(ctx context.Context, snapshot *bim.Snapshot, loadID string) (report *LoadReport, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.metrics != nil {
		defer func() { l.metrics.RecordReload(TriggerRestore, err) }()
	}

	start := time.Now()
	if loadID == "" {
		loadID = uuid.New().String()
	}

	if _, err := l.store.TruncateAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear graph: %w", err)
	}
	l.last = nil

	for i := range snapshot.Vertices {
		if err := l.store.UpsertVertex(ctx, &snapshot.Vertices[i]); err != nil {
			return nil, fmt.Errorf("failed to restore element %s: %w", snapshot.Vertices[i].ID, err)
		}
	}
	byKind := make(map[bim.RelationshipKind]int)
	for _, rel := range snapshot.Edges {
		if err := l.store.UpsertEdge(ctx, rel.From, rel.Kind, rel.To, rel.Properties); err != nil {
			return nil, fmt.Errorf("failed to restore edge %s: %w", rel.Key(), err)
		}
		byKind[rel.Kind]++
	}

	report = &LoadReport{
		LoadID:      loadID,
		Vertices:    len(snapshot.Vertices),
		Edges:       len(snapshot.Edges),
		EdgesByKind: byKind,
		LoadedAt:    time.Now(),
		Duration:    time.Since(start),
	}
	if l.metrics != nil {
		l.metrics.MarkLoaded(report.LoadedAt)
		l.metrics.SetGraphSize(report.Vertices, report.Edges)
	}
	l.last = report

	l.logger.Info("graph replaced from snapshot",
		logging.LoadID(loadID),
		logging.Count(report.Vertices),
		logging.Int("edges", report.Edges))
	return report, nil
}

// Reset removes every vertex and edge
func (l *Loader) Reset(ctx context.Context) (storage.TruncateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	result, err := l.store.TruncateAll(ctx)
	if err != nil {
		return storage.TruncateResult{}, err
	}
	l.last = nil
	if l.metrics != nil {
		l.metrics.SetGraphSize(0, 0)
	}
	l.logger.Info("graph reset",
		logging.Int("vertices_deleted", result.VerticesDeleted),
		logging.Int("edges_deleted", result.EdgesDeleted))
	return result, nil
}

// Last returns the report of the most recent successful load, or nil
func (l *Loader) Last() *LoadReport {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func (l *Loader) read(path string) (*registry.Input, *registry.ValidatedSet, error) {
	input, err := registry.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	set, err := l.registry.Ingest(input.Elements)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return input, set, nil
}

func (l *Loader) build(ctx context.Context, set *registry.ValidatedSet, input *registry.Input) (*LoadReport, error) {
	report, err := l.builder.Build(ctx, set, input)
	if err != nil {
		return nil, err
	}
	l.last = report
	return report, nil
}
