package storage

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-bim/pkg/bim"
)

// Direction selects which edges Neighbors follows.
type Direction string

const (
	Outbound Direction = "outbound"
	Inbound  Direction = "inbound"
	// Any follows outbound edges first, then inbound edges.
	Any Direction = "any"
)

// ParseDirection converts a string to a Direction
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Outbound, Inbound, Any:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// TruncateResult counts what TruncateAll removed.
type TruncateResult struct {
	VerticesDeleted int `json:"vertices_deleted"`
	EdgesDeleted    int `json:"edges_deleted"`
}

// GraphStore holds element vertices and relationship edges.
//
// Upserts are idempotent: vertices by id, edges by (from, kind, to). An edge
// upsert replaces the properties of an existing edge. Neighbors and
// VerticesByType return elements in store order, which is the order the
// vertex or edge was first inserted. Returned elements are copies.
type GraphStore interface {
	UpsertVertex(ctx context.Context, e *bim.Element) error
	UpsertEdge(ctx context.Context, from string, kind bim.RelationshipKind, to string, props bim.Properties) error
	Exists(ctx context.Context, id string) (bool, error)
	// Get returns an error matching ErrVertexNotFound when id is absent.
	Get(ctx context.Context, id string) (*bim.Element, error)
	// Neighbors returns the far endpoint of every matching edge of id, one
	// entry per edge. No kinds means every kind. An unknown id has no neighbors.
	Neighbors(ctx context.Context, id string, dir Direction, kinds ...bim.RelationshipKind) ([]*bim.Element, error)
	VerticesByType(ctx context.Context, t bim.ElementType) ([]*bim.Element, error)
	TruncateAll(ctx context.Context) (TruncateResult, error)
	CountVertices(ctx context.Context) (int, error)
	CountVerticesByType(ctx context.Context) (map[bim.ElementType]int, error)
	CountEdgesByKind(ctx context.Context) (map[bim.RelationshipKind]int, error)
	Export(ctx context.Context) (*bim.Snapshot, error)
	Close() error
}

// Describer is implemented by stores that can name their backend.
type Describer interface {
	Describe() string
}

// Describe returns a human readable backend description for s
func Describe(s GraphStore) string {
	if d, ok := s.(Describer); ok {
		return d.Describe()
	}
	return fmt.Sprintf("%T", s)
}

func matchesKind(kind bim.RelationshipKind, kinds []bim.RelationshipKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
