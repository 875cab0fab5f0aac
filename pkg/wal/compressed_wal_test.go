package wal

import (
	"bytes"
	"testing"

	"github.com/dd0wney/cluso-bim/pkg/logging"
)

func newTestCompressedWAL(t *testing.T, dir string) *CompressedWAL {
	t.Helper()
	cw, err := NewCompressedWAL(dir, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create compressed WAL: %v", err)
	}
	return cw
}

func TestCompressedWAL_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cw := newTestCompressedWAL(t, dir)

	payloads := [][]byte{
		[]byte(`{"id":"rm_1","type":"Room","name":"Office"}`),
		bytes.Repeat([]byte(`{"from":"rm_1","kind":"PART_OF","to":"fl_1"}`), 20),
		{},
	}
	for _, p := range payloads {
		if _, err := cw.Append(OpUpsertVertex, p); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	cw = newTestCompressedWAL(t, dir)
	defer cw.Close()

	if cw.CurrentLSN() != 3 {
		t.Errorf("CurrentLSN = %d, want 3", cw.CurrentLSN())
	}

	var got [][]byte
	err := cw.Replay(func(e *Entry) error {
		got = append(got, e.Data)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(got) != len(payloads) {
		t.Fatalf("Replayed %d entries, want %d", len(got), len(payloads))
	}
	for i := range payloads {
		if !bytes.Equal(got[i], payloads[i]) {
			t.Errorf("entry %d: got %q, want %q", i, got[i], payloads[i])
		}
	}
}

func TestCompressedWAL_Statistics(t *testing.T) {
	cw := newTestCompressedWAL(t, t.TempDir())
	defer cw.Close()

	if stats := cw.Statistics(); stats.CompressionRatio != 0 {
		t.Errorf("Expected zero ratio before writes, got %v", stats.CompressionRatio)
	}

	data := bytes.Repeat([]byte("CONTAINS "), 200)
	if _, err := cw.Append(OpUpsertEdge, data); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	stats := cw.Statistics()
	if stats.TotalWrites != 1 {
		t.Errorf("TotalWrites = %d, want 1", stats.TotalWrites)
	}
	if stats.BytesUncompressed != uint64(len(data)) {
		t.Errorf("BytesUncompressed = %d, want %d", stats.BytesUncompressed, len(data))
	}
	if stats.BytesCompressed >= stats.BytesUncompressed {
		t.Errorf("repetitive data should compress: %d >= %d", stats.BytesCompressed, stats.BytesUncompressed)
	}
	if stats.CompressionRatio <= 0 || stats.CompressionRatio >= 1 {
		t.Errorf("CompressionRatio = %v, want (0,1)", stats.CompressionRatio)
	}
}

func TestCompressedWAL_Truncate(t *testing.T) {
	cw := newTestCompressedWAL(t, t.TempDir())
	defer cw.Close()

	cw.Append(OpUpsertVertex, []byte("x"))
	if err := cw.Truncate(); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}

	entries, err := cw.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty log, got %d entries", len(entries))
	}
}
