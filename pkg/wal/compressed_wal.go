package wal

import (
	"fmt"
	"sync/atomic"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-bim/pkg/logging"
)

// CompressedWAL is a Write-Ahead Log that snappy-encodes entry data. The
// on-disk framing is the same as WAL; checksums cover the compressed bytes.
type CompressedWAL struct {
	*WAL

	// Statistics
	totalWrites       atomic.Uint64
	bytesUncompressed atomic.Uint64
	bytesCompressed   atomic.Uint64
}

// CompressedWALStats holds compression statistics
type CompressedWALStats struct {
	TotalWrites       uint64
	BytesUncompressed uint64
	BytesCompressed   uint64
	CompressionRatio  float64 // compressed / uncompressed, 0 when nothing written
}

// NewCompressedWAL opens or creates the compressed WAL in dataDir
func NewCompressedWAL(dataDir string, logger logging.Logger) (*CompressedWAL, error) {
	w, err := openWAL(dataDir, compressedFileName, logger)
	if err != nil {
		return nil, err
	}
	return &CompressedWAL{WAL: w}, nil
}

// Append compresses data and appends it
func (w *CompressedWAL) Append(opType OpType, data []byte) (uint64, error) {
	compressed := snappy.Encode(nil, data)

	lsn, err := w.WAL.Append(opType, compressed)
	if err != nil {
		return 0, err
	}

	w.totalWrites.Add(1)
	w.bytesUncompressed.Add(uint64(len(data)))
	w.bytesCompressed.Add(uint64(len(compressed)))
	return lsn, nil
}

// ReadAll returns every valid entry with its data decompressed. Decoding
// stops at the first entry that does not decompress.
func (w *CompressedWAL) ReadAll() ([]*Entry, error) {
	entries, err := w.WAL.ReadAll()
	if err != nil {
		return nil, err
	}

	for i, entry := range entries {
		data, err := snappy.Decode(nil, entry.Data)
		if err != nil {
			w.logger.Warn("WAL entry does not decompress, recovery stopped",
				logging.Int64("lsn", int64(entry.LSN)), logging.Error(err))
			return entries[:i], nil
		}
		entry.Data = data
	}
	return entries, nil
}

// Replay replays decompressed entries in LSN order
func (w *CompressedWAL) Replay(handler func(*Entry) error) error {
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

// Statistics returns compression statistics since the WAL was opened
func (w *CompressedWAL) Statistics() CompressedWALStats {
	stats := CompressedWALStats{
		TotalWrites:       w.totalWrites.Load(),
		BytesUncompressed: w.bytesUncompressed.Load(),
		BytesCompressed:   w.bytesCompressed.Load(),
	}
	if stats.BytesUncompressed > 0 {
		stats.CompressionRatio = float64(stats.BytesCompressed) / float64(stats.BytesUncompressed)
	}
	return stats
}
