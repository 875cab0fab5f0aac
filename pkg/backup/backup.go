// Package backup uploads graph snapshots to S3 compatible object storage and
// restores them.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/config"
	"github.com/dd0wney/cluso-bim/pkg/derive"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

const (
	metaVertices = "vertices"
	metaEdges    = "edges"
	metaLoadID   = "load-id"
)

// ErrNoBucket is returned when backups are requested without a bucket
var ErrNoBucket = errors.New("backup bucket not configured")

// Client is the subset of the S3 API used for snapshots. *s3.Client
// implements it.
type Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Replacer swaps the served graph for a snapshot. *derive.Loader implements
// it, serializing restores with reloads.
type Replacer interface {
	Replace(ctx context.Context, snapshot *bim.Snapshot, loadID string) (*derive.LoadReport, error)
}

// Info describes a stored snapshot
type Info struct {
	Key          string    `json:"key"`
	Location     string    `json:"location"`
	LoadID       string    `json:"load_id,omitempty"`
	Size         int64     `json:"size"`
	Vertices     int       `json:"vertices"`
	Edges        int       `json:"edges"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// Backuper exports the graph store to a bucket
type Backuper struct {
	client  Client
	bucket  string
	prefix  string
	timeout time.Duration
	store   storage.GraphStore
	target  Replacer
	logger  logging.Logger
	metrics *metrics.Registry
}

// New creates a Backuper that exports store and restores through target.
// logger and m may be nil.
func New(client Client, cfg config.BackupConfig, store storage.GraphStore, target Replacer, logger logging.Logger, m *metrics.Registry) (*Backuper, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	return &Backuper{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		timeout: cfg.Timeout,
		store:   store,
		target:  target,
		logger:  logging.OrDefault(logger).With(logging.Component("backup")),
		metrics: m,
	}, nil
}

// Key returns the object key for a load id
func (b *Backuper) Key(loadID string) string {
	return path.Join(b.prefix, loadID+".json")
}

func (b *Backuper) location(key string) string {
	return fmt.Sprintf("s3://%s/%s", b.bucket, key)
}

func (b *Backuper) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout > 0 {
		return context.WithTimeout(ctx, b.timeout)
	}
	return context.WithCancel(ctx)
}

// Backup exports the store and uploads it as JSON under the load id. An
// empty load id gets a fresh one.
func (b *Backuper) Backup(ctx context.Context, loadID string) (info *Info, err error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	var size int64
	if b.metrics != nil {
		defer func() { b.metrics.RecordBackup(err, size) }()
	}

	if loadID == "" {
		loadID = uuid.New().String()
	}

	snapshot, err := b.store.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export graph: %w", err)
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	size = int64(len(body))

	key := b.Key(loadID)
	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/json"),
		Metadata: map[string]string{
			metaLoadID:   loadID,
			metaVertices: strconv.Itoa(len(snapshot.Vertices)),
			metaEdges:    strconv.Itoa(len(snapshot.Edges)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", b.location(key), err)
	}

	info = &Info{
		Key:      key,
		Location: b.location(key),
		LoadID:   loadID,
		Size:     size,
		Vertices: len(snapshot.Vertices),
		Edges:    len(snapshot.Edges),
	}
	b.logger.Info("snapshot uploaded",
		logging.LoadID(loadID),
		logging.String("location", info.Location),
		logging.Int("bytes", int(size)),
		logging.Int("vertices", info.Vertices),
		logging.Int("edges", info.Edges))
	return info, nil
}

// List returns the snapshots under the prefix, newest first
func (b *Backuper) List(ctx context.Context) ([]Info, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	prefix := b.prefix
	if prefix != "" {
		prefix += "/"
	}

	var infos []Info
	pages := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", b.location(prefix), err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			infos = append(infos, Info{
				Key:          key,
				Location:     b.location(key),
				LoadID:       strings.TrimSuffix(path.Base(key), ".json"),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].LastModified.After(infos[j].LastModified)
	})
	return infos, nil
}

// Restore replaces the stored graph with the snapshot under key
func (b *Backuper) Restore(ctx context.Context, key string) (*Info, error) {
	if b.target == nil {
		return nil, errors.New("backup: no restore target configured")
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", b.location(key), err)
	}
	defer out.Body.Close()

	var snapshot bim.Snapshot
	if err := json.NewDecoder(out.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", b.location(key), err)
	}

	report, err := b.target.Replace(ctx, &snapshot, out.Metadata[metaLoadID])
	if err != nil {
		return nil, fmt.Errorf("failed to restore %s: %w", b.location(key), err)
	}

	info := &Info{
		Key:      key,
		Location: b.location(key),
		LoadID:   report.LoadID,
		Size:     aws.ToInt64(out.ContentLength),
		Vertices: report.Vertices,
		Edges:    report.Edges,
	}
	b.logger.Info("snapshot restored",
		logging.String("location", info.Location),
		logging.Int("vertices", info.Vertices),
		logging.Int("edges", info.Edges))
	return info, nil
}
