package wal

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// maxEntrySize bounds the data length read back from disk so a corrupt
// length prefix cannot trigger a huge allocation.
const maxEntrySize = 64 << 20

// entryOverhead is the framing size around the data of one entry.
const entryOverhead = 13 + 12

// writeEntry writes a single entry.
// Format: [LSN:8][OpType:1][DataLen:4][Data:N][Checksum:4][Timestamp:8]
func writeEntry(w *bufio.Writer, entry *Entry) error {
	var header [13]byte
	binary.LittleEndian.PutUint64(header[0:8], entry.LSN)
	header[8] = byte(entry.OpType)
	binary.LittleEndian.PutUint32(header[9:13], uint32(len(entry.Data)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	if _, err := w.Write(entry.Data); err != nil {
		return err
	}

	var trailer [12]byte
	binary.LittleEndian.PutUint32(trailer[0:4], entry.Checksum)
	binary.LittleEndian.PutUint64(trailer[4:12], uint64(entry.Timestamp))
	_, err := w.Write(trailer[:])
	return err
}

// readEntry reads a single entry. A clean end of file returns io.EOF; a
// partially written entry returns io.ErrUnexpectedEOF.
func readEntry(r *bufio.Reader) (*Entry, error) {
	var header [13]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	entry := &Entry{
		LSN:    binary.LittleEndian.Uint64(header[0:8]),
		OpType: OpType(header[8]),
	}

	dataLen := binary.LittleEndian.Uint32(header[9:13])
	if dataLen > maxEntrySize {
		return nil, fmt.Errorf("entry LSN=%d declares %d bytes", entry.LSN, dataLen)
	}

	entry.Data = make([]byte, dataLen)
	if _, err := io.ReadFull(r, entry.Data); err != nil {
		return nil, unexpected(err)
	}

	var trailer [12]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return nil, unexpected(err)
	}
	entry.Checksum = binary.LittleEndian.Uint32(trailer[0:4])
	entry.Timestamp = int64(binary.LittleEndian.Uint64(trailer[4:12]))

	return entry, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
