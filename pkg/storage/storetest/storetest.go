// Package storetest holds behaviour tests shared by every GraphStore backend.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) storage.GraphStore

// Run exercises the GraphStore contract against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.GraphStore)
	}{
		{"UpsertAndGet", testUpsertAndGet},
		{"UpsertVertexReplaces", testUpsertVertexReplaces},
		{"GetMissing", testGetMissing},
		{"EdgeIdentity", testEdgeIdentity},
		{"EdgeNeedsEndpoints", testEdgeNeedsEndpoints},
		{"NeighborsDirections", testNeighborsDirections},
		{"NeighborsUnknownVertex", testNeighborsUnknownVertex},
		{"VerticesByType", testVerticesByType},
		{"Counts", testCounts},
		{"EmptyStore", testEmptyStore},
		{"TruncateAll", testTruncateAll},
		{"Export", testExport},
		{"ReturnsCopies", testReturnsCopies},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

func element(id string, typ bim.ElementType, parent string) *bim.Element {
	return &bim.Element{ID: id, Type: typ, Name: "name of " + id, ParentID: parent}
}

func mustUpsert(t *testing.T, s storage.GraphStore, elems ...*bim.Element) {
	t.Helper()
	for _, e := range elems {
		require.NoError(t, s.UpsertVertex(context.Background(), e))
	}
}

func mustEdge(t *testing.T, s storage.GraphStore, from string, kind bim.RelationshipKind, to string) {
	t.Helper()
	require.NoError(t, s.UpsertEdge(context.Background(), from, kind, to, nil))
}

func ids(elems []*bim.Element) []string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = e.ID
	}
	return out
}

func testUpsertAndGet(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()
	room := &bim.Element{
		ID: "rm_1", Type: bim.TypeRoom, Name: "Office", ParentID: "fl_1",
		Properties: bim.Properties{
			"capacity":  bim.IntValue(6),
			"room_type": bim.StringValue("Office"),
			"tags":      bim.ListValue(bim.StringValue("quiet")),
		},
	}
	mustUpsert(t, s, room)

	ok, err := s.Exists(ctx, "rm_1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, "rm_1")
	require.NoError(t, err)
	assert.Equal(t, "Office", got.Name)
	assert.Equal(t, bim.TypeRoom, got.Type)
	assert.Equal(t, "fl_1", got.ParentID)
	assert.True(t, room.Properties.Equal(got.Properties))

	door := &bim.Element{ID: "dr_1", Type: bim.TypeDoor, Name: "Door", Connects: []string{"rm_1", "outside"}}
	mustUpsert(t, s, door)
	got, err = s.Get(ctx, "dr_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"rm_1", "outside"}, got.Connects)
}

func testUpsertVertexReplaces(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()
	mustUpsert(t, s, element("a", bim.TypeRoom, ""), element("b", bim.TypeRoom, ""))
	mustEdge(t, s, "a", bim.ConnectsTo, "b")

	replaced := element("a", bim.TypeRoom, "")
	replaced.Name = "renamed"
	mustUpsert(t, s, replaced)

	n, err := s.CountVertices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rooms, err := s.VerticesByType(ctx, bim.TypeRoom)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(rooms), "replacement keeps store order")
	assert.Equal(t, "renamed", rooms[0].Name)

	out, err := s.Neighbors(ctx, "a", storage.Outbound)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(out), "replacement keeps edges")
}

func testGetMissing(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()

	ok, err := s.Exists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err), "got %v", err)
}

func testEdgeIdentity(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()
	mustUpsert(t, s, element("r1", bim.TypeRoom, ""), element("r2", bim.TypeRoom, ""))

	require.NoError(t, s.UpsertEdge(ctx, "r1", bim.ConnectsTo, "r2", bim.Properties{bim.ViaDoorProperty: bim.StringValue("d1")}))
	require.NoError(t, s.UpsertEdge(ctx, "r1", bim.ConnectsTo, "r2", bim.Properties{bim.ViaDoorProperty: bim.StringValue("d2")}))
	require.NoError(t, s.UpsertEdge(ctx, "r2", bim.ConnectsTo, "r1", nil))

	counts, err := s.CountEdgesByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[bim.ConnectsTo])

	snap, err := s.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Edges, 2)
	assert.Equal(t, "d2", snap.Edges[0].Properties.GetString(bim.ViaDoorProperty, ""), "last write wins")
}

func testEdgeNeedsEndpoints(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()
	mustUpsert(t, s, element("r1", bim.TypeRoom, ""))

	err := s.UpsertEdge(ctx, "r1", bim.ConnectsTo, "outside", nil)
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err), "got %v", err)

	counts, err := s.CountEdgesByKind(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[bim.ConnectsTo])
}

func testNeighborsDirections(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()
	mustUpsert(t, s,
		element("fl", bim.TypeFloor, ""),
		element("r1", bim.TypeRoom, "fl"),
		element("r2", bim.TypeRoom, "fl"),
		element("d1", bim.TypeDoor, "r1"),
	)
	mustEdge(t, s, "r1", bim.PartOf, "fl")
	mustEdge(t, s, "fl", bim.Contains, "r1")
	mustEdge(t, s, "r2", bim.PartOf, "fl")
	mustEdge(t, s, "fl", bim.Contains, "r2")
	mustEdge(t, s, "d1", bim.PartOf, "r1")
	mustEdge(t, s, "r1", bim.Contains, "d1")
	mustEdge(t, s, "r1", bim.HasOpening, "d1")

	out, err := s.Neighbors(ctx, "fl", storage.Outbound, bim.Contains)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids(out))

	in, err := s.Neighbors(ctx, "fl", storage.Inbound, bim.PartOf)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids(in))

	openings, err := s.Neighbors(ctx, "r1", storage.Outbound, bim.HasOpening)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids(openings))

	multi, err := s.Neighbors(ctx, "r1", storage.Outbound, bim.Contains, bim.HasOpening)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d1"}, ids(multi), "one entry per edge")

	all, err := s.Neighbors(ctx, "r1", storage.Any)
	require.NoError(t, err)
	// outbound: PART_OF fl, CONTAINS d1, HAS_OPENING d1; inbound: CONTAINS from fl, PART_OF from d1
	assert.Equal(t, []string{"fl", "d1", "d1", "fl", "d1"}, ids(all))

	_, err = s.Neighbors(ctx, "r1", storage.Direction("sideways"))
	assert.Error(t, err)
}

func testNeighborsUnknownVertex(t *testing.T, s storage.GraphStore) {
	out, err := s.Neighbors(context.Background(), "ghost", storage.Any)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func testVerticesByType(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()
	mustUpsert(t, s,
		element("r2", bim.TypeRoom, ""),
		element("f1", bim.TypeFloor, ""),
		element("r1", bim.TypeRoom, ""),
	)

	rooms, err := s.VerticesByType(ctx, bim.TypeRoom)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, ids(rooms))

	windows, err := s.VerticesByType(ctx, bim.TypeWindow)
	require.NoError(t, err)
	assert.Empty(t, windows)

	// Changing the type moves the vertex between groups.
	mustUpsert(t, s, element("r2", bim.TypeWindow, ""))
	rooms, err = s.VerticesByType(ctx, bim.TypeRoom)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(rooms))
}

func testCounts(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()
	mustUpsert(t, s,
		element("b", bim.TypeBuilding, ""),
		element("f", bim.TypeFloor, "b"),
		element("r", bim.TypeRoom, "f"),
		element("w", bim.TypeWindow, "r"),
	)
	mustEdge(t, s, "f", bim.PartOf, "b")
	mustEdge(t, s, "b", bim.Contains, "f")
	mustEdge(t, s, "r", bim.HasOpening, "w")

	n, err := s.CountVertices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	byType, err := s.CountVerticesByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[bim.ElementType]int{
		bim.TypeBuilding: 1, bim.TypeFloor: 1, bim.TypeRoom: 1, bim.TypeWindow: 1,
	}, byType)

	byKind, err := s.CountEdgesByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[bim.RelationshipKind]int{
		bim.PartOf: 1, bim.Contains: 1, bim.HasOpening: 1,
	}, byKind)
}

func testEmptyStore(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()

	n, err := s.CountVertices(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	byType, err := s.CountVerticesByType(ctx)
	require.NoError(t, err)
	assert.Empty(t, byType)

	byKind, err := s.CountEdgesByKind(ctx)
	require.NoError(t, err)
	assert.Empty(t, byKind)

	snap, err := s.Export(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Vertices)
	assert.Empty(t, snap.Edges)

	res, err := s.TruncateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.TruncateResult{}, res)
}

func testTruncateAll(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()
	mustUpsert(t, s, element("a", bim.TypeFloor, ""), element("b", bim.TypeRoom, "a"))
	mustEdge(t, s, "b", bim.PartOf, "a")
	mustEdge(t, s, "a", bim.Contains, "b")

	res, err := s.TruncateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.TruncateResult{VerticesDeleted: 2, EdgesDeleted: 2}, res)

	ok, err := s.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	// The store is usable after a truncate.
	mustUpsert(t, s, element("a", bim.TypeFloor, ""))
	n, err := s.CountVertices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testExport(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()
	mustUpsert(t, s, element("f", bim.TypeFloor, ""), element("r", bim.TypeRoom, "f"))
	mustEdge(t, s, "r", bim.PartOf, "f")

	snap, err := s.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Vertices, 2)
	assert.Equal(t, "f", snap.Vertices[0].ID)
	assert.Equal(t, "r", snap.Vertices[1].ID)
	require.Len(t, snap.Edges, 1)
	assert.Equal(t, bim.EdgeKey{From: "r", Kind: bim.PartOf, To: "f"}, snap.Edges[0].Key())
}

func testReturnsCopies(t *testing.T, s storage.GraphStore) {
	ctx := context.Background()
	in := &bim.Element{ID: "r", Type: bim.TypeRoom, Name: "Room", Properties: bim.Properties{"capacity": bim.IntValue(2)}}
	mustUpsert(t, s, in)

	in.Name = "mutated after upsert"
	got, err := s.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "Room", got.Name)

	got.Properties["capacity"] = bim.IntValue(99)
	again, err := s.Get(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 2.0, again.Properties.GetNumber("capacity", 0))
}
