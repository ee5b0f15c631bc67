// Package store persists grid snapshots in SQLite.
//
// The schema is managed by golang-migrate using migrations embedded in the
// binary, so a fresh database file is usable immediately after Open.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/botgrid/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no snapshot matches a query.
var ErrNotFound = errors.New("store: snapshot not found")

// SnapshotWriter is the part of Store the console needs.
type SnapshotWriter interface {
	Insert(ctx context.Context, s *Snapshot) error
}

// Store reads and writes grid snapshots.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and migrates it
// to the latest schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database handle and applies pending migrations.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrateUp runs all pending migrations. Returns nil if the schema is
// already current.
func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	// Note: m is not closed because that would close the shared *sql.DB.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Insert stores snap, assigning a new uuid when SnapshotID is empty.
func (s *Store) Insert(ctx context.Context, snap *Snapshot) error {
	if snap.SnapshotID == "" {
		snap.SnapshotID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grid_snapshot (
			snapshot_id, axis, taken_unix_nanos, cell_count, reason, grid_blob
		) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.SnapshotID, snap.Axis, snap.TakenUnixNanos, snap.CellCount, snap.Reason, snap.GridBlob,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	monitoring.Logf("store: saved snapshot %s (axis=%d cells=%d reason=%s)", snap.SnapshotID, snap.Axis, snap.CellCount, snap.Reason)
	return nil
}

const snapshotColumns = `snapshot_id, axis, taken_unix_nanos, cell_count, reason, grid_blob`

func scanSnapshot(row interface{ Scan(...any) error }) (*Snapshot, error) {
	var snap Snapshot
	err := row.Scan(&snap.SnapshotID, &snap.Axis, &snap.TakenUnixNanos, &snap.CellCount, &snap.Reason, &snap.GridBlob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	return &snap, nil
}

// Get returns the snapshot with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM grid_snapshot WHERE snapshot_id = ?`, id)
	return scanSnapshot(row)
}

// Latest returns the most recently taken snapshot.
func (s *Store) Latest(ctx context.Context) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM grid_snapshot ORDER BY taken_unix_nanos DESC LIMIT 1`)
	return scanSnapshot(row)
}

// List returns up to limit snapshots, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+snapshotColumns+` FROM grid_snapshot ORDER BY taken_unix_nanos DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Delete removes the snapshot with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM grid_snapshot WHERE snapshot_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
