package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/storage"
	"github.com/dd0wney/cluso-bim/pkg/storage/storetest"
)

// testDatabaseURL names a scratch database. Its bim_* tables are truncated
// before every test.
const testDatabaseURL = "BIMGRAPH_TEST_DATABASE_URL"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv(testDatabaseURL)
	if url == "" {
		t.Skipf("%s not set", testDatabaseURL)
	}

	s, err := New(context.Background(), Config{DatabaseURL: url, MaxConns: 4, Logger: logging.NewNopLogger()})
	require.NoError(t, err)
	_, err = s.TruncateAll(context.Background())
	require.NoError(t, err)
	return s
}

func TestStoreContract(t *testing.T) {
	if os.Getenv(testDatabaseURL) == "" {
		t.Skipf("%s not set", testDatabaseURL)
	}
	storetest.Run(t, func(t *testing.T) storage.GraphStore {
		return openTestStore(t)
	})
}

func TestPingAndDescribe(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	require.NoError(t, s.Ping(context.Background()))
	require.Contains(t, s.Describe(), "postgres")
}

func TestUnreachableServerIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2e9)
	defer cancel()

	_, err := New(ctx, Config{DatabaseURL: "postgres://nobody@127.0.0.1:1/none?connect_timeout=1"})
	require.Error(t, err)
	require.True(t, storage.IsUnavailable(err), "got %v", err)
}

func TestBadURL(t *testing.T) {
	_, err := New(context.Background(), Config{DatabaseURL: "::not a url::"})
	require.Error(t, err)
}
