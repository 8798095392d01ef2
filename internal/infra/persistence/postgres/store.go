// Package postgres persists inventory snapshots to a PostgreSQL table, one
// JSONB record stream per snapshot row.
package postgres

import (
	"brickcore/pkg/domain"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.SnapshotStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/brickcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store keeps snapshots in the brickcore_snapshots table.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewStore opens a Postgres-backed store using dsn (falls back to defaultDSN)
// and ensures the snapshot table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureSnapshotTable(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func ensureSnapshotTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS brickcore_snapshots (
		name TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		items INTEGER NOT NULL,
		instances INTEGER NOT NULL,
		saved_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure snapshot table: %w", err)
	}
	return nil
}

// Save implements domain.SnapshotStore.
func (s *Store) Save(ctx context.Context, name string, doc domain.Document) (domain.SnapshotInfo, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("encode snapshot %s: %w", name, err)
	}
	info := domain.SnapshotInfoFor(name, doc, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO brickcore_snapshots(name,payload,items,instances,saved_at) VALUES($1,$2,$3,$4,$5) ON CONFLICT(name) DO UPDATE SET payload=EXCLUDED.payload, items=EXCLUDED.items, instances=EXCLUDED.instances, saved_at=EXCLUDED.saved_at`,
		name, string(payload), info.Items, info.Instances, info.SavedAt); err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("upsert snapshot %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return info, nil
}

// Load implements domain.SnapshotStore.
func (s *Store) Load(ctx context.Context, name string) (domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, payload FROM brickcore_snapshots WHERE name = $1`, name)
	if err != nil {
		return domain.Document{}, fmt.Errorf("select snapshot %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var rowName string
		var payload []byte
		if err := rows.Scan(&rowName, &payload); err != nil {
			return domain.Document{}, fmt.Errorf("scan snapshot: %w", err)
		}
		if rowName != name {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal(payload, &doc); err != nil {
			return domain.Document{}, fmt.Errorf("decode snapshot %s: %w", name, err)
		}
		return doc, nil
	}
	if err := rows.Err(); err != nil {
		return domain.Document{}, fmt.Errorf("iterate snapshots: %w", err)
	}
	return domain.Document{}, domain.NotFound("snapshot", name)
}

// List implements domain.SnapshotStore.
func (s *Store) List(ctx context.Context) ([]domain.SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, items, instances, saved_at FROM brickcore_snapshots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.SnapshotInfo
	for rows.Next() {
		var info domain.SnapshotInfo
		if err := rows.Scan(&info.Name, &info.Items, &info.Instances, &info.SavedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.SavedAt = info.SavedAt.UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close implements domain.SnapshotStore.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
