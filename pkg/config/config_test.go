package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.True(t, cfg.AnchorSet().Contains("outside"))
	assert.True(t, cfg.AnchorSet().Contains("corridor"))
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "bimgraph.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, int32(8), cfg.Store.MaxConns)
	assert.Equal(t, []string{"outside", "corridor", "street"}, cfg.Anchors)
	assert.True(t, cfg.Input.Watch)
	assert.Equal(t, 250*time.Millisecond, cfg.Input.Debounce)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout, "unset keys keep defaults")
	assert.Equal(t, "bim-snapshots", cfg.Backup.Bucket)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backnd: memory\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backnd")
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(env(map[string]string{
		"BIMGRAPH_STORE_BACKEND": "postgres",
		"BIMGRAPH_DATABASE_URL":  "postgres://localhost/bim",
		"BIMGRAPH_ANCHORS":       " outside , ,lobby",
		"BIMGRAPH_WATCH":         "true",
		"BIMGRAPH_INPUT":         "/data/b.json",
		"LOG_LEVEL":              "warn",
		"BIMGRAPH_LOG_LEVEL":     "debug",
		"BIMGRAPH_DATA_DIR":      "",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, "postgres://localhost/bim", cfg.Store.DatabaseURL)
	assert.Equal(t, []string{"outside", "lobby"}, cfg.Anchors)
	assert.True(t, cfg.Input.Watch)
	assert.Equal(t, "debug", cfg.Log.Level, "BIMGRAPH_LOG_LEVEL wins over LOG_LEVEL")
	assert.Empty(t, cfg.Store.DataDir, "empty values do not override")
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvBadBool(t *testing.T) {
	err := Default().ApplyEnv(env(map[string]string{"BIMGRAPH_WATCH": "sometimes"}))
	require.Error(t, err)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "postgres"
	cfg.Anchors = []string{"outside", " "}
	cfg.Input.Watch = true
	cfg.Server.Addr = "no-port"
	cfg.Log.Level = "loud"
	cfg.Backup.Endpoint = "ftp://minio"
	cfg.Backup.AccessKeyID = "AKIA"

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{
		"store.database_url",
		"anchors.[1]",
		"input.path",
		"server.addr",
		"log.level",
		"backup.endpoint",
		"backup.access_key_id",
	} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestBackupNeedsRegionOnlyWhenEnabled(t *testing.T) {
	b := Default().Backup
	b.Region = ""
	require.NoError(t, b.Validate())

	b.Bucket = "snapshots"
	require.Error(t, b.Validate())
}
