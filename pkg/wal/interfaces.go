package wal

import "github.com/dd0wney/cluso-bim/pkg/logging"

// WriteAheadLog is implemented by WAL and CompressedWAL.
type WriteAheadLog interface {
	// Append appends a new entry and returns its LSN.
	Append(opType OpType, data []byte) (uint64, error)

	// Replay calls handler for every entry in LSN order.
	Replay(handler func(*Entry) error) error

	// Truncate removes all entries.
	Truncate() error

	// CurrentLSN returns the LSN of the last appended entry.
	CurrentLSN() uint64

	// Path returns the file backing the log.
	Path() string

	Close() error
}

var _ WriteAheadLog = (*WAL)(nil)
var _ WriteAheadLog = (*CompressedWAL)(nil)

// Open opens the plain or compressed WAL in dataDir
func Open(dataDir string, compressed bool, logger logging.Logger) (WriteAheadLog, error) {
	if compressed {
		return NewCompressedWAL(dataDir, logger)
	}
	return NewWAL(dataDir, logger)
}
