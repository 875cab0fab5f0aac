package wal

import "fmt"

// OpType represents the type of operation in the WAL
type OpType uint8

const (
	OpUpsertVertex OpType = iota + 1
	OpUpsertEdge
	OpTruncate
)

func (o OpType) String() string {
	switch o {
	case OpUpsertVertex:
		return "upsert_vertex"
	case OpUpsertEdge:
		return "upsert_edge"
	case OpTruncate:
		return "truncate"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Entry represents a single WAL entry
type Entry struct {
	LSN       uint64 // Log Sequence Number
	OpType    OpType
	Data      []byte
	Checksum  uint32
	Timestamp int64
}

const (
	plainFileName      = "wal.log"
	compressedFileName = "wal_compressed.log"
)
