package storage

import (
	"sync"
	"time"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/metrics"
	"github.com/dd0wney/cluso-bim/pkg/wal"
)

// vertexSlot is one arena entry. out and in hold indices into edges.
type vertexSlot struct {
	elem *bim.Element
	out  []int
	in   []int
}

type edgeSlot struct {
	rel  bim.Relationship
	from int
	to   int
}

// MemoryStore is the in-memory GraphStore.
//
// Vertices live in a flat slice addressed by index; edges refer to their
// endpoints by index and each vertex keeps adjacency lists of edge indices.
// Store order is slice order. With a DataDir, every mutation is appended to
// a write-ahead log before it is applied and the log is replayed on open.
type MemoryStore struct {
	vertices  []vertexSlot
	index     map[string]int
	edges     []edgeSlot
	edgeIndex map[bim.EdgeKey]int
	byType    map[bim.ElementType][]int

	mu     sync.RWMutex
	closed bool

	dataDir string
	log     wal.WriteAheadLog
	logger  logging.Logger
	metrics *metrics.Registry

	stats Statistics
}

// MemoryConfig configures a MemoryStore
type MemoryConfig struct {
	// DataDir enables the write-ahead log when set.
	DataDir string
	// CompressWAL snappy-compresses log entries.
	CompressWAL bool
	Logger      logging.Logger
	// Metrics counts appended log entries when set.
	Metrics *metrics.Registry
}

// Statistics tracks store activity
type Statistics struct {
	VertexCount     int
	EdgeCount       int
	VertexUpserts   uint64
	EdgeUpserts     uint64
	Truncates       uint64
	ReplayedEntries int
	LastTruncate    time.Time
	WALPath         string
	WALLSN          uint64
}
