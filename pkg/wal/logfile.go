package wal

import (
	"bufio"
	"fmt"
	"os"
)

const logFileMode = 0o644

// logFile is the append-only file under a WAL. Writes are buffered until
// sync.
type logFile struct {
	path string
	f    *os.File
	buf  *bufio.Writer
}

func openLogFile(path string) (*logFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, logFileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file %s: %w", path, err)
	}
	return &logFile{path: path, f: f, buf: bufio.NewWriter(f)}, nil
}

// sync flushes buffered entries and fsyncs
func (lf *logFile) sync() error {
	if lf.f == nil {
		return nil
	}
	if err := lf.buf.Flush(); err != nil {
		return err
	}
	return lf.f.Sync()
}

func (lf *logFile) size() (int64, error) {
	info, err := lf.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// truncateTo drops everything past offset, used to cut a torn tail
func (lf *logFile) truncateTo(offset int64) error {
	if err := lf.buf.Flush(); err != nil {
		return err
	}
	return lf.f.Truncate(offset)
}

// reset swaps in an empty file by renaming over the old one, so a crash
// leaves either the full old log or the empty new one. If the rename fails
// the old file stays open for appends.
func (lf *logFile) reset() error {
	if lf.f == nil {
		return ErrClosed
	}
	if err := lf.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush before reset: %w", err)
	}

	tmp := lf.path + ".new"
	fresh, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND, logFileMode)
	if err != nil {
		return fmt.Errorf("failed to create empty WAL file: %w", err)
	}
	if err := os.Rename(tmp, lf.path); err != nil {
		fresh.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to replace WAL file: %w", err)
	}

	old := lf.f
	lf.f = fresh
	lf.buf = bufio.NewWriter(fresh)
	return old.Close()
}

func (lf *logFile) close() error {
	if lf.f == nil {
		return nil
	}
	syncErr := lf.sync()
	closeErr := lf.f.Close()
	lf.f = nil
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
