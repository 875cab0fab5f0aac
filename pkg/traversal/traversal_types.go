// Package traversal answers structural queries over a stored building graph.
package traversal

import (
	"time"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

const (
	// Unbounded disables the depth limit of Descendants
	Unbounded = -1

	// MaxAncestorHops bounds the PART_OF chain followed by Ancestors
	MaxAncestorHops = 5
)

// Query names used for metrics and logs
const (
	QueryChildren       = "children"
	QueryDescendants    = "descendants"
	QueryAncestors      = "ancestors"
	QueryConnectedRooms = "connected_rooms"
	QueryRoomOpenings   = "room_openings"
	QueryFindPath       = "find_path"
	QueryResolvePath    = "resolve_path"
	QueryByType         = "elements_by_type"
	QueryElement        = "element"
)

// Openings are the doors and windows in the walls of a room
type Openings struct {
	Doors   []*bim.Element `json:"doors"`
	Windows []*bim.Element `json:"windows"`
}

// Engine runs traversals against a GraphStore. It keeps no state between
// calls and is safe for concurrent use when the store is.
type Engine struct {
	store   storage.GraphStore
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics records every query on m
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an engine over store
func NewEngine(store storage.GraphStore, opts ...Option) *Engine {
	e := &Engine{store: store}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrDefault(e.logger).With(logging.Component("traversal"))
	return e
}

// Store returns the store the engine reads from
func (e *Engine) Store() storage.GraphStore {
	return e.store
}

// observe records one finished query
func (e *Engine) observe(query, id string, start time.Time, returned, visited int, err error) {
	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordQuery(query, err, elapsed, returned, visited)
	}

	switch {
	case err != nil:
		e.logger.Error("query failed", logging.Operation(query), logging.ElementID(id), logging.Error(err))
	case elapsed > metrics.SlowQueryThreshold:
		e.logger.Warn("slow query", logging.Operation(query), logging.ElementID(id),
			logging.Count(returned), logging.Int("visited", visited), logging.Latency(elapsed))
	default:
		e.logger.Debug("query", logging.Operation(query), logging.ElementID(id),
			logging.Count(returned), logging.Latency(elapsed))
	}
}
