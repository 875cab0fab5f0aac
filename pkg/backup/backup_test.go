package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-bim/pkg/bimtest"
	"github.com/dd0wney/cluso-bim/pkg/config"
	"github.com/dd0wney/cluso-bim/pkg/derive"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/registry"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

type object struct {
	body     []byte
	metadata map[string]string
	modified time.Time
}

// fakeS3 keeps objects in memory
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
	clock   time.Time
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects: make(map[string]object),
		clock:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Minute)
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = object{body: body, metadata: in.Metadata, modified: f.clock}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.body)),
		ContentLength: aws.Int64(int64(len(obj.body))),
		Metadata:      obj.metadata,
	}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bucket := aws.ToString(in.Bucket) + "/"
	out := &s3.ListObjectsV2Output{}
	for full, obj := range f.objects {
		key := strings.TrimPrefix(full, bucket)
		if key == full || !strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.body))),
			LastModified: aws.Time(obj.modified),
		})
	}
	return out, nil
}

func testConfig() config.BackupConfig {
	return config.BackupConfig{Bucket: "plans", Prefix: "/bimgraph/", Timeout: time.Minute}
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(newFakeS3(), config.BackupConfig{}, storage.NewMemoryStore(), nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoBucket)
}

func TestBackupUploadsSnapshot(t *testing.T) {
	store := bimtest.LoadBuilding(t)
	client := newFakeS3()
	m := metrics.NewRegistry()

	b, err := New(client, testConfig(), store, nil, nil, m)
	require.NoError(t, err)

	info, err := b.Backup(context.Background(), "load-1")
	require.NoError(t, err)

	assert.Equal(t, "bimgraph/load-1.json", info.Key)
	assert.Equal(t, "s3://plans/bimgraph/load-1.json", info.Location)
	assert.Equal(t, 11, info.Vertices)
	assert.Equal(t, 25, info.Edges)

	obj, ok := client.objects["plans/bimgraph/load-1.json"]
	require.True(t, ok)
	assert.Equal(t, "11", obj.metadata[metaVertices])
	assert.Equal(t, "25", obj.metadata[metaEdges])
	assert.EqualValues(t, len(obj.body), info.Size)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackupsTotal.WithLabelValues("success")))
	assert.EqualValues(t, info.Size, testutil.ToFloat64(m.BackupSizeBytes))
}

func TestBackupGeneratesLoadID(t *testing.T) {
	b, err := New(newFakeS3(), testConfig(), storage.NewMemoryStore(), nil, nil, nil)
	require.NoError(t, err)

	info, err := b.Backup(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, info.LoadID)
	assert.Equal(t, b.Key(info.LoadID), info.Key)
}

func TestBackupUploadFailure(t *testing.T) {
	client := newFakeS3()
	client.putErr = errors.New("access denied")
	m := metrics.NewRegistry()

	b, err := New(client, testConfig(), storage.NewMemoryStore(), nil, nil, m)
	require.NoError(t, err)

	_, err = b.Backup(context.Background(), "load-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://plans/bimgraph/load-1.json")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackupsTotal.WithLabelValues("error")))
}

func TestListNewestFirst(t *testing.T) {
	client := newFakeS3()
	b, err := New(client, testConfig(), storage.NewMemoryStore(), nil, nil, nil)
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		_, err := b.Backup(context.Background(), id)
		require.NoError(t, err)
	}
	client.objects["plans/other/x.json"] = object{body: []byte("{}")}
	client.objects["plans/bimgraph/notes.txt"] = object{body: []byte("hi")}

	infos, err := b.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{infos[0].LoadID, infos[1].LoadID, infos[2].LoadID})
}

func TestRestoreRoundTrip(t *testing.T) {
	source := bimtest.LoadBuilding(t)
	client := newFakeS3()

	b, err := New(client, testConfig(), source, nil, nil, nil)
	require.NoError(t, err)
	info, err := b.Backup(context.Background(), "load-1")
	require.NoError(t, err)

	want, err := source.Export(context.Background())
	require.NoError(t, err)

	target := storage.NewMemoryStore()
	stale := bimtest.Element("stale", "Room", "", nil)
	require.NoError(t, target.UpsertVertex(context.Background(), &stale))

	m := metrics.NewRegistry()
	loader := newLoader(target, m)
	r, err := New(client, testConfig(), target, loader, nil, m)
	require.NoError(t, err)
	restored, err := r.Restore(context.Background(), info.Key)
	require.NoError(t, err)
	assert.Equal(t, "load-1", restored.LoadID)
	assert.Equal(t, 11, restored.Vertices)
	assert.Equal(t, 25, restored.Edges)

	// The loader now reports the restored graph
	last := loader.Last()
	require.NotNil(t, last)
	assert.Equal(t, "load-1", last.LoadID)
	assert.Equal(t, float64(11), testutil.ToFloat64(m.StorageVerticesTotal))
	assert.Equal(t, float64(25), testutil.ToFloat64(m.StorageEdgesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReloadsTotal.WithLabelValues(derive.TriggerRestore, metrics.StatusSuccess)))

	got, err := target.Export(context.Background())
	require.NoError(t, err)
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(gotJSON))
}

func TestRestoreMissingKey(t *testing.T) {
	store := bimtest.LoadBuilding(t)
	b, err := New(newFakeS3(), testConfig(), store, newLoader(store, nil), nil, nil)
	require.NoError(t, err)

	_, err = b.Restore(context.Background(), "bimgraph/missing.json")
	require.Error(t, err)

	// The graph is untouched
	n, err := store.CountVertices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func newLoader(store storage.GraphStore, m *metrics.Registry) *derive.Loader {
	reg := registry.New(registry.WithLogger(logging.NewNopLogger()))
	return derive.NewLoader(reg, store, logging.NewNopLogger(), m)
}

func TestRestoreWithoutTarget(t *testing.T) {
	b, err := New(newFakeS3(), testConfig(), storage.NewMemoryStore(), nil, nil, nil)
	require.NoError(t, err)
	_, err = b.Restore(context.Background(), "bimgraph/load-1.json")
	require.Error(t, err)
}
