package store

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/banshee-data/botgrid/internal/botgrid"
	"github.com/banshee-data/botgrid/internal/timeutil"
)

// Snapshot reasons recorded by the binary and console.
const (
	ReasonManual   = "manual"
	ReasonDemo     = "demo"
	ReasonShutdown = "shutdown"
)

// Snapshot matches the grid_snapshot table. GridBlob holds the grid's packed
// bytes, gzip compressed.
type Snapshot struct {
	SnapshotID     string // matches snapshot_id TEXT PRIMARY KEY, uuid assigned on insert
	Axis           int    // matches axis INTEGER NOT NULL
	TakenUnixNanos int64  // matches taken_unix_nanos INTEGER NOT NULL
	CellCount      int    // matches cell_count INTEGER NOT NULL
	Reason         string // matches reason TEXT NOT NULL
	GridBlob       []byte // matches grid_blob BLOB NOT NULL
}

// NewSnapshot captures the current state of g.
func NewSnapshot(g *botgrid.Grid, reason string) (*Snapshot, error) {
	return NewSnapshotAt(g, reason, timeutil.RealClock{})
}

// NewSnapshotAt is NewSnapshot with the timestamp taken from clock.
func NewSnapshotAt(g *botgrid.Grid, reason string, clock timeutil.Clock) (*Snapshot, error) {
	blob, err := compressBlocks(g.Bytes())
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Axis:           int(g.Axis()),
		TakenUnixNanos: clock.Now().UnixNano(),
		CellCount:      g.Count(),
		Reason:         reason,
		GridBlob:       blob,
	}, nil
}

// Grid rebuilds the grid captured by s.
func (s *Snapshot) Grid(opts ...botgrid.Option) (*botgrid.Grid, error) {
	if s.Axis < 1 || s.Axis > 255 {
		return nil, fmt.Errorf("snapshot %s: invalid axis %d", s.SnapshotID, s.Axis)
	}
	blocks, err := decompressBlocks(s.GridBlob)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.SnapshotID, err)
	}
	return botgrid.Restore(uint8(s.Axis), blocks, opts...)
}

// compressBlocks gzips the packed grid bytes.
func compressBlocks(blocks []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(blocks); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressBlocks reverses compressBlocks.
func decompressBlocks(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty grid blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	blocks, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress grid blob: %w", err)
	}
	return blocks, nil
}
