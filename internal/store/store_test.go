package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/botgrid/internal/botgrid"
	"github.com/banshee-data/botgrid/internal/monitoring"
	"github.com/banshee-data/botgrid/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "botgrid.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testGrid(t *testing.T, cells ...botgrid.Point) *botgrid.Grid {
	t.Helper()
	g, err := botgrid.New(27)
	require.NoError(t, err)
	for _, c := range cells {
		g.Set(c.X, c.Y)
	}
	return g
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botgrid.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err, "reopening a migrated database should succeed")
	require.NoError(t, s.Close())
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cells := []botgrid.Point{{X: 5, Y: 2}, {X: 13, Y: 7}, {X: 11, Y: 22}}
	g := testGrid(t, cells...)

	snap, err := NewSnapshot(g, ReasonManual)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, snap))
	assert.NotEmpty(t, snap.SnapshotID, "Insert should assign an id")

	got, err := s.Get(ctx, snap.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, 27, got.Axis)
	assert.Equal(t, 3, got.CellCount)
	assert.Equal(t, ReasonManual, got.Reason)
	assert.Equal(t, snap.TakenUnixNanos, got.TakenUnixNanos)

	restored, err := got.Grid()
	require.NoError(t, err)
	assert.Equal(t, cells, restored.Cells())
	assert.Equal(t, g.Bytes(), restored.Bytes())
}

func TestInsertKeepsExplicitID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap, err := NewSnapshot(testGrid(t), ReasonDemo)
	require.NoError(t, err)
	snap.SnapshotID = "fixed-id"
	require.NoError(t, s.Insert(ctx, snap))

	got, err := s.Get(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, 0, got.CellCount)

	assert.Error(t, s.Insert(ctx, snap), "duplicate id should fail")
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Latest(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	clock := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	var ids []string
	for i := 0; i < 3; i++ {
		snap, err := NewSnapshotAt(testGrid(t, botgrid.Point{X: uint8(i), Y: 0}), ReasonManual, clock)
		require.NoError(t, err)
		clock.Advance(time.Second)
		require.NoError(t, s.Insert(ctx, snap))
		ids = append(ids, snap.SnapshotID)
	}

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[2], latest.SnapshotID)

	list, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].SnapshotID)
	assert.Equal(t, ids[1], list[1].SnapshotID)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap, err := NewSnapshot(testGrid(t, botgrid.Point{X: 1, Y: 1}), ReasonShutdown)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, snap))

	require.NoError(t, s.Delete(ctx, snap.SnapshotID))
	_, err = s.Get(ctx, snap.SnapshotID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, snap.SnapshotID), ErrNotFound)
}

func TestSnapshotGridRejectsBadData(t *testing.T) {
	_, err := (&Snapshot{SnapshotID: "a", Axis: 0}).Grid()
	assert.Error(t, err)

	_, err = (&Snapshot{SnapshotID: "b", Axis: 9}).Grid()
	assert.Error(t, err, "empty blob")

	_, err = (&Snapshot{SnapshotID: "c", Axis: 9, GridBlob: []byte("not gzip")}).Grid()
	assert.Error(t, err)

	blob, err := compressBlocks([]byte{0})
	require.NoError(t, err)
	_, err = (&Snapshot{SnapshotID: "d", Axis: 9, GridBlob: blob}).Grid()
	assert.Error(t, err, "short block slice")
}
