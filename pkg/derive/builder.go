package derive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/registry"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

// LoadReport summarizes one load cycle
type LoadReport struct {
	LoadID      string                       `json:"load_id"`
	Source      string                       `json:"source,omitempty"`
	Fingerprint string                       `json:"fingerprint,omitempty"`
	Vertices    int                          `json:"vertices"`
	Edges       int                          `json:"edges"`
	EdgesByKind map[bim.RelationshipKind]int `json:"edges_by_kind"`
	Skipped     []Skip                       `json:"skipped,omitempty"`
	LoadedAt    time.Time                    `json:"loaded_at"`
	Duration    time.Duration                `json:"duration"`
}

// Builder writes validated element sets and their derived edges to a store
type Builder struct {
	store   storage.GraphStore
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewBuilder creates a builder. m may be nil.
func NewBuilder(store storage.GraphStore, logger logging.Logger, m *metrics.Registry) *Builder {
	return &Builder{
		store:   store,
		logger:  logging.OrDefault(logger).With(logging.Component("builder")),
		metrics: m,
	}
}

// Build upserts every vertex of set, derives the edges against what the
// store now holds, and upserts those edges. An edge the store rejects for a
// missing endpoint is recorded as skipped. Any other store error aborts.
func (b *Builder) Build(ctx context.Context, set *registry.ValidatedSet, input *registry.Input) (*LoadReport, error) {
	start := time.Now()
	report := &LoadReport{
		LoadID:      uuid.New().String(),
		EdgesByKind: make(map[bim.RelationshipKind]int),
	}
	if input != nil {
		report.Source = input.Path
		report.Fingerprint = input.Fingerprint
	}
	logger := b.logger.With(logging.LoadID(report.LoadID))

	var err error
	set.Each(func(e *bim.Element) {
		if err != nil {
			return
		}
		if upsertErr := b.store.UpsertVertex(ctx, e); upsertErr != nil {
			err = fmt.Errorf("failed to store element %s: %w", e.ID, upsertErr)
		}
	})
	if err != nil {
		return nil, err
	}
	report.Vertices = set.Len()

	presence, err := b.presence(ctx, set)
	if err != nil {
		return nil, err
	}

	result := Derive(set, presence)
	report.Skipped = result.Skipped

	for _, rel := range result.Edges {
		err := b.store.UpsertEdge(ctx, rel.From, rel.Kind, rel.To, rel.Properties)
		if storage.IsNotFound(err) {
			report.Skipped = append(report.Skipped, Skip{Key: rel.Key(), Missing: b.missingEndpoint(ctx, rel)})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to store edge %s: %w", rel.Key(), err)
		}
		report.Edges++
		report.EdgesByKind[rel.Kind]++
		if b.metrics != nil {
			b.metrics.RecordDerivedEdge(string(rel.Kind))
		}
	}

	for _, skip := range report.Skipped {
		logger.Debug("edge skipped", logging.String("edge", skip.Key.String()), logging.ElementID(skip.Missing))
		if b.metrics != nil {
			b.metrics.RecordSkippedEdge(string(skip.Key.Kind))
		}
	}

	report.LoadedAt = time.Now()
	report.Duration = time.Since(start)
	if b.metrics != nil {
		b.metrics.MarkLoaded(report.LoadedAt)
		b.refreshGraphSize(ctx)
	}

	logger.Info("graph loaded",
		logging.Count(report.Vertices),
		logging.Int("edges", report.Edges),
		logging.Int("skipped", len(report.Skipped)),
		logging.Latency(report.Duration))
	return report, nil
}

// presence asks the store once for every id an edge could touch
func (b *Builder) presence(ctx context.Context, set *registry.ValidatedSet) (Presence, error) {
	known := make(map[string]bool, set.Len())
	check := func(id string) error {
		if _, done := known[id]; done || id == "" {
			return nil
		}
		ok, err := b.store.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check element %s: %w", id, err)
		}
		known[id] = ok
		return nil
	}

	var err error
	set.Each(func(e *bim.Element) {
		if err != nil {
			return
		}
		if err = check(e.ID); err != nil {
			return
		}
		if err = check(e.ParentID); err != nil {
			return
		}
		for _, target := range e.Connects {
			if err = check(target); err != nil {
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}

	return func(id string) bool { return known[id] }, nil
}

// missingEndpoint names the endpoint the store no longer has. It is empty
// when both exist again by the time we ask.
func (b *Builder) missingEndpoint(ctx context.Context, rel bim.Relationship) string {
	for _, id := range []string{rel.From, rel.To} {
		if ok, err := b.store.Exists(ctx, id); err == nil && !ok {
			return id
		}
	}
	return ""
}

func (b *Builder) refreshGraphSize(ctx context.Context) {
	vertices, err := b.store.CountVertices(ctx)
	if err != nil {
		return
	}
	byKind, err := b.store.CountEdgesByKind(ctx)
	if err != nil {
		return
	}
	edges := 0
	for _, n := range byKind {
		edges += n
	}
	b.metrics.SetGraphSize(vertices, edges)
}
