package registry

import (
	"time"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/validation"
)

// Registry validates raw element sets. It holds configuration only; every
// accepted set is returned as a new immutable ValidatedSet.
type Registry struct {
	anchors bim.AnchorSet
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Registry
type Option func(*Registry)

// WithAnchors replaces the external anchor ids
func WithAnchors(anchors bim.AnchorSet) Option {
	return func(r *Registry) { r.anchors = anchors }
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithMetrics records ingest results on m
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Registry) { r.metrics = m }
}

// New creates a registry using the default anchors
func New(opts ...Option) *Registry {
	r := &Registry{anchors: bim.DefaultAnchors()}
	for _, opt := range opts {
		opt(r)
	}
	if r.anchors == nil {
		r.anchors = bim.NewAnchorSet()
	}
	r.logger = logging.OrDefault(r.logger).With(logging.Component("registry"))
	return r
}

// Anchors returns the configured external anchors
func (r *Registry) Anchors() bim.AnchorSet {
	return r.anchors
}

// Ingest validates raw and returns the accepted set. Either every element is
// accepted or an error matching ErrIngest is returned and nothing is kept.
//
// Checks run in order: element shape, id uniqueness, parent references, door
// connections. The first failure wins.
func (r *Registry) Ingest(raw []bim.Element) (*ValidatedSet, error) {
	start := time.Now()
	set, err := r.ingest(raw)
	if r.metrics != nil {
		r.metrics.RecordIngest(err, len(raw), time.Since(start))
	}
	if err != nil {
		r.logger.Error("ingest rejected", logging.Count(len(raw)), logging.Error(err))
		return nil, err
	}
	r.logger.Debug("ingest accepted", logging.Count(set.Len()), logging.Latency(time.Since(start)))
	return set, nil
}

func (r *Registry) ingest(raw []bim.Element) (*ValidatedSet, error) {
	elements := make([]*bim.Element, 0, len(raw))
	index := make(map[string]int, len(raw))

	for i := range raw {
		e := raw[i].Clone()
		if err := validation.ValidateElement(e); err != nil {
			return nil, &InvalidElementError{ElementID: e.ID, Reason: err.Error(), Cause: err}
		}
		if e.Type != bim.TypeDoor && len(e.Connects) > 0 {
			r.logger.Warn("dropping connects on non-door element",
				logging.ElementID(e.ID), logging.ElementType(string(e.Type)))
			e.Connects = nil
		}
		if _, dup := index[e.ID]; dup {
			return nil, &DuplicateIDError{ID: e.ID}
		}
		index[e.ID] = len(elements)
		elements = append(elements, e)
	}

	resolves := func(id string) bool {
		_, known := index[id]
		return known || r.anchors.Contains(id)
	}

	for _, e := range elements {
		if e.HasParent() && !resolves(e.ParentID) {
			return nil, &DanglingParentError{ElementID: e.ID, ParentID: e.ParentID}
		}
	}

	for _, e := range elements {
		if e.Type != bim.TypeDoor {
			continue
		}
		for _, target := range e.Connects {
			if !resolves(target) {
				return nil, &DanglingConnectionError{DoorID: e.ID, TargetID: target}
			}
		}
	}

	return &ValidatedSet{elements: elements, index: index, anchors: r.anchors}, nil
}

// ValidatedSet is an accepted element set. It is never modified after Ingest
// returns it; accessors hand out copies.
type ValidatedSet struct {
	elements []*bim.Element
	index    map[string]int
	anchors  bim.AnchorSet
}

// Len returns the number of elements
func (s *ValidatedSet) Len() int {
	return len(s.elements)
}

// Elements returns copies of the elements in input order
func (s *ValidatedSet) Elements() []*bim.Element {
	out := make([]*bim.Element, len(s.elements))
	for i, e := range s.elements {
		out[i] = e.Clone()
	}
	return out
}

// Each calls fn for every element in input order. fn must not modify e.
func (s *ValidatedSet) Each(fn func(e *bim.Element)) {
	for _, e := range s.elements {
		fn(e)
	}
}

// Get returns a copy of the element with id, or nil
func (s *ValidatedSet) Get(id string) *bim.Element {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.elements[i].Clone()
}

// Has reports whether id is an element of the set
func (s *ValidatedSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Resolves reports whether id is an element of the set or an external anchor
func (s *ValidatedSet) Resolves(id string) bool {
	return s.Has(id) || s.anchors.Contains(id)
}

// Anchors returns the anchors the set was validated against
func (s *ValidatedSet) Anchors() bim.AnchorSet {
	return s.anchors
}
