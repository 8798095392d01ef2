// Package sqlite persists inventory snapshots to an embedded SQLite file,
// one JSON-encoded record stream per snapshot row.
package sqlite

import (
	"brickcore/pkg/domain"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.SnapshotStore = (*Store)(nil)

const defaultPath = "brickcore.db"

// Store keeps snapshots in a single table keyed by name.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewStore opens (creating if needed) the SQLite file at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		items INTEGER NOT NULL,
		instances INTEGER NOT NULL,
		saved_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Save implements domain.SnapshotStore.
func (s *Store) Save(ctx context.Context, name string, doc domain.Document) (info domain.SnapshotInfo, retErr error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("encode snapshot %s: %w", name, err)
	}
	info = domain.SnapshotInfoFor(name, doc, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.SnapshotInfo{}, err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots(name,payload,items,instances,saved_at) VALUES(?,?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET payload=excluded.payload, items=excluded.items, instances=excluded.instances, saved_at=excluded.saved_at`,
		name, payload, info.Items, info.Instances, info.SavedAt.Format(time.RFC3339Nano)); err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("upsert snapshot %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.SnapshotInfo{}, err
	}
	return info, nil
}

// Load implements domain.SnapshotStore.
func (s *Store) Load(ctx context.Context, name string) (domain.Document, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.NotFound("snapshot", name)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("select snapshot %s: %w", name, err)
	}
	var doc domain.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return doc, nil
}

// List implements domain.SnapshotStore.
func (s *Store) List(ctx context.Context) ([]domain.SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, items, instances, saved_at FROM snapshots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.SnapshotInfo
	for rows.Next() {
		var info domain.SnapshotInfo
		var savedAt string
		if err := rows.Scan(&info.Name, &info.Items, &info.Instances, &savedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if info.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
			return nil, fmt.Errorf("parse saved_at of %s: %w", info.Name, err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// Close implements domain.SnapshotStore.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
