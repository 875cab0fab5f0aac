// Package bimtest loads fixture buildings into stores for tests.
package bimtest

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/derive"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/registry"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

// BuildingPath is the library fixture: one project, site and building, two
// floors (100 and 150 sqm), three rooms, two doors and a window.
func BuildingPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "registry", "testdata", "building.json")
}

// LoadBuilding returns a memory store holding the library fixture
func LoadBuilding(t testing.TB) *storage.MemoryStore {
	t.Helper()
	store := storage.NewMemoryStore()
	loader := derive.NewLoader(registry.New(registry.WithLogger(logging.NewNopLogger())), store, logging.NewNopLogger(), nil)
	_, err := loader.Load(context.Background(), BuildingPath())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// Load validates elements and writes them with their derived edges to a new
// memory store
func Load(t testing.TB, elements ...bim.Element) *storage.MemoryStore {
	t.Helper()
	set, err := registry.New(registry.WithLogger(logging.NewNopLogger())).Ingest(elements)
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	_, err = derive.NewBuilder(store, logging.NewNopLogger(), nil).Build(context.Background(), set, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// Element is a shorthand constructor
func Element(id string, t bim.ElementType, parent string, props bim.Properties, connects ...string) bim.Element {
	e := bim.Element{ID: id, Type: t, Name: id, ParentID: parent, Properties: props}
	if len(connects) > 0 {
		e.Connects = connects
	}
	return e
}

// IDs returns the ids of elems in order
func IDs(elems []*bim.Element) []string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = e.ID
	}
	return out
}
