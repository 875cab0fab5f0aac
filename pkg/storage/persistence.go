package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/logging"
	"github.com/dd0wney/cluso-bim/pkg/wal"
)

// appendLog writes a mutation to the write-ahead log. Caller holds the write lock.
func (s *MemoryStore) appendLog(op string, opType wal.OpType, payload any) error {
	if s.log == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return NewError(op).WAL().Cause(fmt.Errorf("%w: %w", ErrMarshalFailed, err)).Err()
	}
	if _, err := s.log.Append(opType, data); err != nil {
		return WALError(op, err)
	}
	if s.metrics != nil {
		s.metrics.RecordWALEntry(op)
	}
	return nil
}

// replay rebuilds the arena from the write-ahead log
func (s *MemoryStore) replay() error {
	return s.log.Replay(func(entry *wal.Entry) error {
		s.stats.ReplayedEntries++
		return s.replayEntry(entry)
	})
}

// replayEntry replays a single WAL entry
func (s *MemoryStore) replayEntry(entry *wal.Entry) error {
	switch entry.OpType {
	case wal.OpUpsertVertex:
		var e bim.Element
		if err := json.Unmarshal(entry.Data, &e); err != nil {
			return err
		}
		s.applyUpsertVertex(&e)
		return nil
	case wal.OpUpsertEdge:
		var rel bim.Relationship
		if err := json.Unmarshal(entry.Data, &rel); err != nil {
			return err
		}
		return s.applyUpsertEdge(rel)
	case wal.OpTruncate:
		s.applyTruncate()
		return nil
	default:
		s.logger.Warn("skipping unknown WAL op", logging.Int("op", int(entry.OpType)))
		return nil
	}
}
