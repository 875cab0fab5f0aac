package registry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
)

func newTestRegistry(opts ...Option) *Registry {
	return New(append([]Option{WithLogger(logging.NewNopLogger())}, opts...)...)
}

func elem(id string, t bim.ElementType, parent string, connects ...string) bim.Element {
	e := bim.Element{ID: id, Type: t, Name: id, ParentID: parent}
	if len(connects) > 0 {
		e.Connects = connects
	}
	return e
}

func TestIngestAcceptsValidSet(t *testing.T) {
	raw := []bim.Element{
		elem("fl_1", bim.TypeFloor, ""),
		elem("rm_1", bim.TypeRoom, "fl_1"),
		elem("rm_2", bim.TypeRoom, "corridor"),
		elem("dr_1", bim.TypeDoor, "rm_1", "rm_1", "outside"),
	}

	set, err := newTestRegistry().Ingest(raw)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
	assert.True(t, set.Has("dr_1"))
	assert.False(t, set.Has("outside"))
	assert.True(t, set.Resolves("outside"))

	ids := make([]string, 0, set.Len())
	for _, e := range set.Elements() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"fl_1", "rm_1", "rm_2", "dr_1"}, ids)
}

func TestIngestDuplicateID(t *testing.T) {
	raw := []bim.Element{
		elem("a", bim.TypeFloor, ""),
		elem("b", bim.TypeRoom, "a"),
		elem("b", bim.TypeRoom, "a"),
		elem("a", bim.TypeRoom, ""),
	}

	_, err := newTestRegistry().Ingest(raw)
	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "b", dup.ID, "first duplicate detected wins")
	assert.ErrorIs(t, err, ErrIngest)
}

func TestIngestDanglingParent(t *testing.T) {
	raw := []bim.Element{
		elem("rm_1", bim.TypeRoom, "fl_missing"),
	}

	_, err := newTestRegistry().Ingest(raw)
	var dangling *DanglingParentError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, "rm_1", dangling.ElementID)
	assert.Equal(t, "fl_missing", dangling.ParentID)
	assert.ErrorIs(t, err, ErrIngest)
}

func TestIngestDanglingConnection(t *testing.T) {
	raw := []bim.Element{
		elem("rm_1", bim.TypeRoom, ""),
		elem("door_1", bim.TypeDoor, "rm_1", "rm_1", "rm_404"),
	}

	_, err := newTestRegistry().Ingest(raw)
	var dangling *DanglingConnectionError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, "door_1", dangling.DoorID)
	assert.Equal(t, "rm_404", dangling.TargetID)
	assert.ErrorIs(t, err, ErrIngest)
}

func TestIngestParentCheckedBeforeConnections(t *testing.T) {
	raw := []bim.Element{
		elem("door_1", bim.TypeDoor, "nowhere", "x", "y"),
	}

	_, err := newTestRegistry().Ingest(raw)
	var parent *DanglingParentError
	assert.ErrorAs(t, err, &parent)
}

func TestIngestInvalidElement(t *testing.T) {
	raw := []bim.Element{
		{ID: "x", Type: "Staircase", Name: "Stairs"},
	}

	_, err := newTestRegistry().Ingest(raw)
	var invalid *InvalidElementError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "x", invalid.ElementID)
	assert.Contains(t, invalid.Reason, "Staircase")
	assert.ErrorIs(t, err, ErrIngest)
}

func TestIngestDropsConnectsOnNonDoors(t *testing.T) {
	raw := []bim.Element{
		elem("rm_1", bim.TypeRoom, ""),
		elem("rm_2", bim.TypeRoom, "", "rm_1", "ghost"),
	}

	set, err := newTestRegistry().Ingest(raw)
	require.NoError(t, err, "connects on a room is ignored, not validated")
	assert.Nil(t, set.Get("rm_2").Connects)
}

func TestIngestCustomAnchors(t *testing.T) {
	raw := []bim.Element{
		elem("rm_1", bim.TypeRoom, "courtyard"),
	}

	_, err := newTestRegistry().Ingest(raw)
	require.Error(t, err)

	set, err := newTestRegistry(WithAnchors(bim.NewAnchorSet("courtyard"))).Ingest(raw)
	require.NoError(t, err)
	assert.True(t, set.Resolves("courtyard"))
	assert.False(t, set.Resolves("outside"))
}

func TestIngestDoesNotAliasInput(t *testing.T) {
	raw := []bim.Element{
		{ID: "rm_1", Type: bim.TypeRoom, Name: "Room", Properties: bim.Properties{"capacity": bim.IntValue(4)}},
	}

	set, err := newTestRegistry().Ingest(raw)
	require.NoError(t, err)

	raw[0].Name = "Changed"
	raw[0].Properties["capacity"] = bim.IntValue(99)

	got := set.Get("rm_1")
	assert.Equal(t, "Room", got.Name)
	assert.Equal(t, 4.0, got.Properties.GetNumber("capacity", 0))

	got.Name = "Also changed"
	assert.Equal(t, "Room", set.Get("rm_1").Name)
}

func TestIngestEmptySet(t *testing.T) {
	set, err := newTestRegistry().Ingest(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
	assert.Nil(t, set.Get("anything"))
}

func TestIngestRecordsMetrics(t *testing.T) {
	m := metrics.NewRegistry()
	r := newTestRegistry(WithMetrics(m))

	_, err := r.Ingest([]bim.Element{elem("a", bim.TypeRoom, "")})
	require.NoError(t, err)
	_, err = r.Ingest([]bim.Element{elem("a", bim.TypeRoom, "zzz")})
	require.Error(t, err)

	families, err := m.GetPrometheusRegistry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "bimgraph_ingests_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2, "one series per status")
		}
	}
	assert.True(t, found)
}

func TestParseDocument(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "building.json"))
	require.NoError(t, err)
	defer f.Close()

	elements, err := ParseDocument(f)
	require.NoError(t, err)
	require.Len(t, elements, 11)

	byID := make(map[string]bim.Element)
	for _, e := range elements {
		byID[e.ID] = e
	}

	assert.Equal(t, bim.TypeProject, byID["proj_1"].Type)
	assert.Equal(t, bim.TypeSite, byID["site_1"].Type)
	assert.Equal(t, bim.TypeFloor, byID["fl_2"].Type)
	assert.Equal(t, bim.TypeDoor, byID["dr_2"].Type)
	assert.Equal(t, bim.TypeWindow, byID["wn_1"].Type)
	assert.Equal(t, []string{"rm_2", "outside"}, byID["dr_2"].Connects)
	assert.Equal(t, 150.0, byID["fl_2"].Properties.GetNumber("area_sqm", 0))
	assert.Equal(t, "Study", byID["rm_1"].Properties.GetString("room_type", ""))

	assert.Equal(t, "proj_1", elements[0].ID, "groups are read top-down")
	assert.Equal(t, "wn_1", elements[len(elements)-1].ID)
}

func TestParseDocumentExplicitTypeWins(t *testing.T) {
	doc := `{"rooms": [{"id": "w", "type": "Window", "name": "Odd"}]}`
	elements, err := ParseDocument(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, bim.TypeWindow, elements[0].Type)
}

func TestParseDocumentErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"scalar group", `{"rooms": 3}`},
		{"bad element", `{"rooms": [{"id": 7}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseDocumentNullAndMissingGroups(t *testing.T) {
	elements, err := ParseDocument(strings.NewReader(`{"project": null, "extra": {"id": "ignored"}}`))
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestLoadFileFingerprint(t *testing.T) {
	path := filepath.Join("testdata", "building.json")
	in, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, in.Elements, 11)
	assert.Len(t, in.Fingerprint, 64)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(data), in.Fingerprint)
	assert.NotEqual(t, Fingerprint(append(data, ' ')), in.Fingerprint)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadedDocumentIngests(t *testing.T) {
	in, err := LoadFile(filepath.Join("testdata", "building.json"))
	require.NoError(t, err)

	set, err := newTestRegistry().Ingest(in.Elements)
	require.NoError(t, err)
	assert.Equal(t, 11, set.Len())
}

func TestErrorMessages(t *testing.T) {
	errs := []error{
		&DuplicateIDError{ID: "a"},
		&DanglingParentError{ElementID: "a", ParentID: "b"},
		&DanglingConnectionError{DoorID: "d", TargetID: "t"},
		&InvalidElementError{Reason: "id: field is required"},
	}
	for _, err := range errs {
		assert.NotEmpty(t, err.Error())
		assert.True(t, errors.Is(err, ErrIngest), "%T should match ErrIngest", err)
	}
}
