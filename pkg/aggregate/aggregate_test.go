package aggregate_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-bim/pkg/aggregate"
	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/bimtest"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/storage"
	"github.com/dd0wney/cluso-bim/pkg/traversal"
)

func newAggregator(store storage.GraphStore) *aggregate.Aggregator {
	engine := traversal.NewEngine(store, traversal.WithLogger(logging.NewNopLogger()))
	return aggregate.New(engine, logging.NewNopLogger(), nil)
}

func TestSummarizeElements(t *testing.T) {
	elems := []*bim.Element{
		{ID: "f1", Type: bim.TypeFloor, Properties: bim.Properties{"area_sqm": bim.IntValue(100)}},
		{ID: "f2", Type: bim.TypeFloor, Properties: bim.Properties{"area_sqm": bim.NumberValue(150)}},
		{ID: "r1", Type: bim.TypeRoom},
		{ID: "r2", Type: bim.TypeRoom},
		{ID: "d1", Type: bim.TypeDoor},
		{ID: "w1", Type: bim.TypeWindow},
	}

	stats := aggregate.SummarizeElements(elems)
	assert.Equal(t, aggregate.ElementStatistics{Floors: 2, Rooms: 2, Doors: 1, Windows: 1, TotalAreaSqm: 250}, stats)

	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Floor":2,"Room":2,"Door":1,"Window":1,"total_area_sqm":250}`, string(data))
}

func TestSummarizeElementsIgnoresOtherTypesAndBadArea(t *testing.T) {
	elems := []*bim.Element{
		{ID: "b", Type: bim.TypeBuilding, Properties: bim.Properties{"area_sqm": bim.IntValue(999)}},
		{ID: "f", Type: bim.TypeFloor, Properties: bim.Properties{"area_sqm": bim.StringValue("large")}},
		{ID: "g", Type: bim.TypeFloor},
		{ID: "r", Type: bim.TypeRoom, Properties: bim.Properties{"area_sqm": bim.IntValue(20)}},
	}

	stats := aggregate.SummarizeElements(elems)
	assert.Equal(t, 2, stats.Floors)
	assert.Equal(t, 1, stats.Rooms)
	assert.Zero(t, stats.TotalAreaSqm)
}

func TestElementStatistics(t *testing.T) {
	agg := newAggregator(bimtest.LoadBuilding(t))

	stats, err := agg.ElementStatistics(context.Background(), "bld_1")
	require.NoError(t, err)
	assert.Equal(t, &aggregate.ElementStatistics{Floors: 2, Rooms: 3, Doors: 2, Windows: 1, TotalAreaSqm: 250}, stats)

	stats, err = agg.ElementStatistics(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, &aggregate.ElementStatistics{}, stats)
}

func TestRoomCapacityReport(t *testing.T) {
	agg := newAggregator(bimtest.LoadBuilding(t))

	report, err := agg.RoomCapacityReport(context.Background(), "bld_1")
	require.NoError(t, err)
	assert.Equal(t, aggregate.CapacityReport{
		"Study":   {Count: 1, TotalCapacity: 40},
		"Other":   {Count: 1, TotalCapacity: 25},
		"Storage": {Count: 1, TotalCapacity: 4},
	}, report)

	report, err = agg.RoomCapacityReport(context.Background(), "fl_2")
	require.NoError(t, err)
	assert.Equal(t, aggregate.CapacityReport{"Storage": {Count: 1, TotalCapacity: 4}}, report)
}

func TestRoomCapacityReportWithoutRooms(t *testing.T) {
	agg := newAggregator(bimtest.Load(t, bimtest.Element("bld", bim.TypeBuilding, "", nil)))

	report, err := agg.RoomCapacityReport(context.Background(), "bld")
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Empty(t, report)
}

func TestSummarizeCapacityGroups(t *testing.T) {
	report := aggregate.SummarizeCapacity([]*bim.Element{
		{ID: "a", Type: bim.TypeRoom, Properties: bim.Properties{"room_type": bim.StringValue("Office"), "capacity": bim.IntValue(4)}},
		{ID: "b", Type: bim.TypeRoom, Properties: bim.Properties{"room_type": bim.StringValue("Office"), "capacity": bim.IntValue(6)}},
		{ID: "c", Type: bim.TypeRoom, Properties: bim.Properties{"room_type": bim.StringValue("Office")}},
		{ID: "d", Type: bim.TypeRoom},
		{ID: "e", Type: bim.TypeFloor, Properties: bim.Properties{"room_type": bim.StringValue("Office")}},
	})

	assert.Equal(t, aggregate.CapacityReport{
		"Office": {Count: 3, TotalCapacity: 10},
		"Other":  {Count: 1, TotalCapacity: 0},
	}, report)
}

func TestGraphMetadata(t *testing.T) {
	agg := newAggregator(bimtest.LoadBuilding(t))

	md, err := agg.GraphMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, md.TotalVertices)
	assert.Equal(t, 25, md.TotalEdges)
	assert.Equal(t, map[bim.ElementType]int{
		bim.TypeProject: 1, bim.TypeSite: 1, bim.TypeBuilding: 1,
		bim.TypeFloor: 2, bim.TypeRoom: 3, bim.TypeDoor: 2, bim.TypeWindow: 1,
	}, md.VerticesByType)
	assert.Equal(t, map[bim.RelationshipKind]int{
		bim.PartOf: 10, bim.Contains: 10, bim.HasOpening: 3, bim.ConnectsTo: 2,
	}, md.EdgesByKind)
}

func TestGraphMetadataEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	defer store.Close()

	md, err := newAggregator(store).GraphMetadata(context.Background())
	require.NoError(t, err)
	assert.Zero(t, md.TotalVertices)
	assert.Zero(t, md.TotalEdges)
	assert.Len(t, md.VerticesByType, len(bim.ElementTypes))
	assert.Len(t, md.EdgesByKind, len(bim.RelationshipKinds))
	for _, n := range md.VerticesByType {
		assert.Zero(t, n)
	}
}

type brokenCounts struct {
	storage.GraphStore
}

func (brokenCounts) CountEdgesByKind(context.Context) (map[bim.RelationshipKind]int, error) {
	return nil, storage.UnavailableError("count_edges_by_kind", errors.New("timeout"))
}

func TestGraphMetadataPropagatesStoreErrors(t *testing.T) {
	agg := newAggregator(brokenCounts{bimtest.LoadBuilding(t)})

	_, err := agg.GraphMetadata(context.Background())
	require.Error(t, err)
	assert.True(t, storage.IsUnavailable(err))
}

func TestInfo(t *testing.T) {
	agg := newAggregator(bimtest.LoadBuilding(t))

	info, err := agg.Info(context.Background(), bim.DefaultAnchors())
	require.NoError(t, err)
	assert.Equal(t, "memory", info.Backend)
	assert.Equal(t, []string{"corridor", "outside"}, info.Anchors)
	assert.Equal(t, 11, info.Metadata.TotalVertices)
}
