package wal

import (
	"bufio"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dd0wney/cluso-bim/pkg/logging"
)

// ErrClosed is returned by operations on a closed WAL
var ErrClosed = errors.New("WAL is closed")

// WAL is a Write-Ahead Log for durability. Every Append is flushed and
// synced before it returns.
type WAL struct {
	file       *logFile
	path       string
	currentLSN uint64
	logger     logging.Logger
	closed     bool
	mu         sync.Mutex
}

// NewWAL opens or creates the WAL in dataDir
func NewWAL(dataDir string, logger logging.Logger) (*WAL, error) {
	return openWAL(dataDir, plainFileName, logger)
}

func openWAL(dataDir, name string, logger logging.Logger) (*WAL, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	path := filepath.Join(dataDir, name)
	file, err := openLogFile(path)
	if err != nil {
		return nil, err
	}

	w := &WAL{
		file:   file,
		path:   path,
		logger: logging.OrDefault(logger).With(logging.Component("wal"), logging.Path(path)),
	}

	// Read existing entries to set currentLSN
	entries, validEnd, err := w.scan()
	if err != nil {
		file.close()
		return nil, fmt.Errorf("failed to recover LSN: %w", err)
	}
	if size, err := file.size(); err == nil && size > validEnd {
		// Drop the torn tail so new entries are not written after garbage.
		w.logger.Warn("truncating WAL tail", logging.Int64("bytes", size-validEnd))
		if err := file.truncateTo(validEnd); err != nil {
			file.close()
			return nil, fmt.Errorf("failed to truncate WAL tail: %w", err)
		}
	}
	if len(entries) > 0 {
		w.currentLSN = entries[len(entries)-1].LSN
	}

	return w, nil
}

// Path returns the file backing the WAL
func (w *WAL) Path() string {
	return w.path
}

// Append appends a new entry to the WAL
func (w *WAL) Append(opType OpType, data []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	if w.currentLSN == ^uint64(0) {
		return 0, fmt.Errorf("WAL LSN space exhausted - require WAL rotation")
	}

	entry := Entry{
		LSN:       w.currentLSN + 1,
		OpType:    opType,
		Data:      data,
		Checksum:  crc32.ChecksumIEEE(data),
		Timestamp: time.Now().UnixNano(),
	}

	if err := writeEntry(w.file.buf, &entry); err != nil {
		return 0, fmt.Errorf("failed to write WAL entry: %w", err)
	}
	if err := w.file.sync(); err != nil {
		return 0, fmt.Errorf("failed to sync WAL: %w", err)
	}

	w.currentLSN = entry.LSN
	return entry.LSN, nil
}

// ReadAll reads all entries from the WAL.
// Returns all valid entries read before any corruption is detected.
// Corruption is logged but does not return an error to allow partial recovery.
func (w *WAL) ReadAll() ([]*Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entries, _, err := w.scan()
	return entries, err
}

// scan reads entries up to the first corruption and returns the offset just
// past the last valid entry.
func (w *WAL) scan() ([]*Entry, int64, error) {
	file := w.file.f
	if file == nil {
		return nil, 0, ErrClosed
	}
	if err := w.file.sync(); err != nil {
		return nil, 0, err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}

	reader := bufio.NewReader(file)
	entries := make([]*Entry, 0)
	var validEnd int64

	for {
		entry, err := readEntry(reader)
		if err == io.EOF {
			break
		}
		if err != nil {
			w.logger.Warn("WAL corruption detected, recovery stopped",
				logging.Count(len(entries)), logging.Error(err))
			break
		}

		if expected := crc32.ChecksumIEEE(entry.Data); expected != entry.Checksum {
			w.logger.Warn("WAL checksum mismatch, recovery stopped",
				logging.Int64("lsn", int64(entry.LSN)), logging.Count(len(entries)))
			break
		}

		entries = append(entries, entry)
		validEnd += entryOverhead + int64(len(entry.Data))
	}

	// Seek back to end for appending
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return nil, 0, err
	}

	return entries, validEnd, nil
}

// Replay replays WAL entries in LSN order
func (w *WAL) Replay(handler func(*Entry) error) error {
	entries, err := w.ReadAll()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := handler(entry); err != nil {
			return fmt.Errorf("failed to replay entry LSN=%d: %w", entry.LSN, err)
		}
	}
	return nil
}

// Truncate empties the WAL and resets the LSN
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.file.reset(); err != nil {
		return fmt.Errorf("failed to truncate WAL: %w", err)
	}
	w.currentLSN = 0
	return nil
}

// CurrentLSN returns the LSN of the last appended entry
func (w *WAL) CurrentLSN() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentLSN
}

// Close flushes and closes the WAL. Closing twice is a no-op.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.close()
}
