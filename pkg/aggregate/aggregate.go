// Package aggregate summarizes building graphs: element counts, floor area,
// room capacity and whole-graph metadata.
package aggregate

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/storage"
	"github.com/dd0wney/cluso-bim/pkg/traversal"
)

// Property keys read by the reports
const (
	AreaProperty     = "area_sqm"
	RoomTypeProperty = "room_type"
	CapacityProperty = "capacity"

	// DefaultRoomType labels rooms without a room_type
	DefaultRoomType = "Other"
)

// Report names used for metrics
const (
	QueryElementStatistics = "element_statistics"
	QueryRoomCapacity      = "room_capacity"
	QueryGraphMetadata     = "graph_metadata"
)

// ElementStatistics counts the elements below a building. Area is summed
// over floors only.
type ElementStatistics struct {
	Floors       int     `json:"Floor"`
	Rooms        int     `json:"Room"`
	Doors        int     `json:"Door"`
	Windows      int     `json:"Window"`
	TotalAreaSqm float64 `json:"total_area_sqm"`
}

// RoomTypeSummary is one row of a capacity report
type RoomTypeSummary struct {
	Count         int     `json:"count"`
	TotalCapacity float64 `json:"total_capacity"`
}

// CapacityReport maps room_type to its rooms
type CapacityReport map[string]RoomTypeSummary

// GraphMetadata describes the whole stored graph
type GraphMetadata struct {
	TotalVertices  int                          `json:"total_vertices"`
	VerticesByType map[bim.ElementType]int      `json:"vertices_by_type"`
	TotalEdges     int                          `json:"total_edges"`
	EdgesByKind    map[bim.RelationshipKind]int `json:"edges_by_kind"`
}

// GraphInfo is GraphMetadata plus what the graph is stored in
type GraphInfo struct {
	Backend  string         `json:"backend"`
	Anchors  []string       `json:"anchors"`
	Metadata *GraphMetadata `json:"metadata"`
}

// Aggregator builds reports from traversal results and store counts
type Aggregator struct {
	engine  *traversal.Engine
	store   storage.GraphStore
	logger  logging.Logger
	metrics *metrics.Registry
}

// New creates an aggregator reading through engine. m may be nil.
func New(engine *traversal.Engine, logger logging.Logger, m *metrics.Registry) *Aggregator {
	return &Aggregator{
		engine:  engine,
		store:   engine.Store(),
		logger:  logging.OrDefault(logger).With(logging.Component("aggregate")),
		metrics: m,
	}
}

func (a *Aggregator) observe(report, id string, start time.Time, visited int, err error) {
	if a.metrics != nil {
		a.metrics.RecordQuery(report, err, time.Since(start), 1, visited)
	}
	if err != nil {
		a.logger.Error("report failed", logging.Operation(report), logging.ElementID(id), logging.Error(err))
	}
}

// ElementStatistics counts floors, rooms, doors and windows below buildingID
// and sums floor area.
func (a *Aggregator) ElementStatistics(ctx context.Context, buildingID string) (stats *ElementStatistics, err error) {
	start := time.Now()
	elems, err := a.engine.Descendants(ctx, buildingID, traversal.Unbounded)
	defer func() { a.observe(QueryElementStatistics, buildingID, start, len(elems), err) }()
	if err != nil {
		return nil, err
	}

	s := SummarizeElements(elems)
	return &s, nil
}

// SummarizeElements folds elems into statistics. Types other than Floor,
// Room, Door and Window are ignored; a floor without area_sqm adds 0.
func SummarizeElements(elems []*bim.Element) ElementStatistics {
	var s ElementStatistics
	for _, e := range elems {
		switch e.Type {
		case bim.TypeFloor:
			s.Floors++
			s.TotalAreaSqm += e.Properties.GetNumber(AreaProperty, 0)
		case bim.TypeRoom:
			s.Rooms++
		case bim.TypeDoor:
			s.Doors++
		case bim.TypeWindow:
			s.Windows++
		}
	}
	return s
}

// RoomCapacityReport groups the rooms below buildingID by room_type. A
// building without rooms yields an empty report.
func (a *Aggregator) RoomCapacityReport(ctx context.Context, buildingID string) (report CapacityReport, err error) {
	start := time.Now()
	elems, err := a.engine.Descendants(ctx, buildingID, traversal.Unbounded)
	defer func() { a.observe(QueryRoomCapacity, buildingID, start, len(elems), err) }()
	if err != nil {
		return nil, err
	}
	return SummarizeCapacity(elems), nil
}

// SummarizeCapacity groups the rooms among elems by room_type
func SummarizeCapacity(elems []*bim.Element) CapacityReport {
	report := make(CapacityReport)
	for _, e := range elems {
		if e.Type != bim.TypeRoom {
			continue
		}
		roomType := e.Properties.GetString(RoomTypeProperty, DefaultRoomType)
		row := report[roomType]
		row.Count++
		row.TotalCapacity += e.Properties.GetNumber(CapacityProperty, 0)
		report[roomType] = row
	}
	return report
}

// GraphMetadata counts vertices by type and edges by kind. The two reads run
// concurrently. Every known type and kind is present, zero when absent.
func (a *Aggregator) GraphMetadata(ctx context.Context) (md *GraphMetadata, err error) {
	start := time.Now()
	defer func() { a.observe(QueryGraphMetadata, "", start, 0, err) }()

	var (
		vertices int
		byType   map[bim.ElementType]int
		byKind   map[bim.RelationshipKind]int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if vertices, err = a.store.CountVertices(gctx); err != nil {
			return err
		}
		byType, err = a.store.CountVerticesByType(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		byKind, err = a.store.CountEdgesByKind(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	md = &GraphMetadata{
		TotalVertices:  vertices,
		VerticesByType: make(map[bim.ElementType]int, len(bim.ElementTypes)),
		EdgesByKind:    make(map[bim.RelationshipKind]int, len(bim.RelationshipKinds)),
	}
	for _, t := range bim.ElementTypes {
		md.VerticesByType[t] = 0
	}
	for t, n := range byType {
		md.VerticesByType[t] = n
	}
	for _, k := range bim.RelationshipKinds {
		md.EdgesByKind[k] = 0
	}
	for k, n := range byKind {
		md.EdgesByKind[k] = n
		md.TotalEdges += n
	}
	return md, nil
}

// Info describes the store, its anchors and its contents
func (a *Aggregator) Info(ctx context.Context, anchors bim.AnchorSet) (*GraphInfo, error) {
	md, err := a.GraphMetadata(ctx)
	if err != nil {
		return nil, err
	}
	return &GraphInfo{
		Backend:  storage.Describe(a.store),
		Anchors:  anchors.IDs(),
		Metadata: md,
	}, nil
}
