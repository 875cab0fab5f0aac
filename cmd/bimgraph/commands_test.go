package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-bim/pkg/aggregate"
	"github.com/dd0wney/cluso-bim/pkg/api"
	"github.com/dd0wney/cluso-bim/pkg/backup"
	"github.com/dd0wney/cluso-bim/pkg/bimtest"
	"github.com/dd0wney/cluso-bim/pkg/derive"
	"github.com/dd0wney/cluso-bim/pkg/storage"
	"github.com/dd0wney/cluso-bim/pkg/traversal"
)

// execute runs the command tree and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out, logs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func query(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := execute(t, append([]string{"--input", bimtest.BuildingPath(), "--log-level", "error"}, args...)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestLoadCommand(t *testing.T) {
	var report derive.LoadReport
	out, err := execute(t, "--log-level", "error", "load", bimtest.BuildingPath())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.NotEmpty(t, report.LoadID)
	assert.Equal(t, 11, report.Vertices)
	assert.Equal(t, 25, report.Edges)
	assert.Len(t, report.Skipped, 2)
}

func TestLoadRequiresInput(t *testing.T) {
	_, err := execute(t, "--log-level", "error", "load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input document")
}

func TestLoadRejectsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rooms": [{"id": "r1", "type": "Room", "name": "R", "parent_id": "missing"}]}`), 0o644))

	_, err := execute(t, "--log-level", "error", "load", path)
	require.Error(t, err)
}

func TestDurableStoreKeepsGraphBetweenRuns(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--log-level", "error", "--data-dir", dir, "load", bimtest.BuildingPath())
	require.NoError(t, err)

	// No --input: the graph comes from the write-ahead log
	var resp api.ElementsResponse
	out, err := execute(t, "--log-level", "error", "--data-dir", dir, "children", "fl_1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.ElementsMatch(t, []string{"rm_1", "rm_2"}, bimtest.IDs(resp.Elements))

	var reset storage.TruncateResult
	out, err = execute(t, "--log-level", "error", "--data-dir", dir, "reset")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &reset))
	assert.Equal(t, storage.TruncateResult{VerticesDeleted: 11, EdgesDeleted: 25}, reset)
}

func TestHierarchyCommands(t *testing.T) {
	var resp api.ElementsResponse

	query(t, &resp, "descendants", "bld_1")
	assert.Equal(t, []string{"fl_2", "rm_3", "fl_1", "rm_2", "dr_2", "rm_1", "wn_1", "dr_1"}, bimtest.IDs(resp.Elements))
	assert.Equal(t, 8, resp.Count)

	query(t, &resp, "descendants", "bld_1", "--max-depth", "0")
	assert.ElementsMatch(t, []string{"fl_1", "fl_2"}, bimtest.IDs(resp.Elements))

	query(t, &resp, "ancestors", "dr_1")
	assert.Equal(t, []string{"rm_1", "fl_1", "bld_1", "site_1", "proj_1"}, bimtest.IDs(resp.Elements))

	query(t, &resp, "children", "nope")
	assert.Empty(t, resp.Elements)

	query(t, &resp, "by-type", "Floor")
	assert.ElementsMatch(t, []string{"fl_1", "fl_2"}, bimtest.IDs(resp.Elements))
}

func TestRoomCommands(t *testing.T) {
	var rooms api.ElementsResponse
	query(t, &rooms, "connected", "rm_1")
	assert.Equal(t, []string{"rm_2"}, bimtest.IDs(rooms.Elements))

	var openings traversal.Openings
	query(t, &openings, "openings", "rm_1")
	assert.Equal(t, []string{"dr_1"}, bimtest.IDs(openings.Doors))
	assert.Equal(t, []string{"wn_1"}, bimtest.IDs(openings.Windows))
}

func TestPathCommand(t *testing.T) {
	var resp api.PathResponse
	query(t, &resp, "path", "rm_3", "dr_2", "--resolve")
	assert.True(t, resp.Found)
	assert.Equal(t, []string{"rm_3", "fl_2", "bld_1", "fl_1", "rm_2", "dr_2"}, resp.Path)
	assert.Equal(t, 5, resp.Hops)
	assert.Len(t, resp.Elements, 6)

	resp = api.PathResponse{}
	query(t, &resp, "path", "rm_3", "nope")
	assert.False(t, resp.Found)
	assert.Empty(t, resp.Path)
}

func TestAggregateCommands(t *testing.T) {
	var stats aggregate.ElementStatistics
	query(t, &stats, "stats", "bld_1")
	assert.Equal(t, aggregate.ElementStatistics{Floors: 2, Rooms: 3, Doors: 2, Windows: 1, TotalAreaSqm: 250}, stats)

	var report aggregate.CapacityReport
	query(t, &report, "capacity", "bld_1")
	assert.NotEmpty(t, report)

	var md aggregate.GraphMetadata
	query(t, &md, "metadata")
	assert.Equal(t, 11, md.TotalVertices)
	assert.Equal(t, 25, md.TotalEdges)

	var info api.InfoResponse
	query(t, &info, "info")
	assert.Equal(t, "memory", info.Backend)
	require.NotNil(t, info.LastLoad)
	assert.Equal(t, 11, info.LastLoad.Vertices)
}

func TestGetCommand(t *testing.T) {
	var el struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	query(t, &el, "get", "wn_1")
	assert.Equal(t, "wn_1", el.ID)
	assert.Equal(t, "Window", el.Type)

	_, err := execute(t, "--input", bimtest.BuildingPath(), "--log-level", "error", "get", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestArgumentErrors(t *testing.T) {
	_, err := execute(t, "--input", bimtest.BuildingPath(), "children")
	assert.Error(t, err)

	_, err = execute(t, "--input", bimtest.BuildingPath(), "--log-level", "error", "by-type", "Garage")
	assert.Error(t, err)

	_, err = execute(t, "--backend", "sqlite", "info")
	assert.Error(t, err)
}

func TestBackupRequiresBucket(t *testing.T) {
	_, err := execute(t, "--input", bimtest.BuildingPath(), "--log-level", "error", "backup")
	assert.ErrorIs(t, err, backup.ErrNoBucket)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}
