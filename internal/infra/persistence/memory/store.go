// Package memory provides a process-local snapshot store for tests and
// ephemeral sessions.
package memory

import (
	"brickcore/pkg/domain"
	"context"
	"sort"
	"sync"
	"time"
)

var _ domain.SnapshotStore = (*Store)(nil)

type entry struct {
	doc  domain.Document
	info domain.SnapshotInfo
}

// Store keeps snapshots in memory. Documents are copied on the way in and
// out, so callers never share record slices with the store.
type Store struct {
	mu    sync.RWMutex
	snaps map[string]entry
	now   func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{snaps: make(map[string]entry), now: time.Now}
}

// Save implements domain.SnapshotStore.
func (s *Store) Save(_ context.Context, name string, doc domain.Document) (domain.SnapshotInfo, error) {
	info := domain.SnapshotInfoFor(name, doc, s.now())
	s.mu.Lock()
	s.snaps[name] = entry{doc: CloneDocument(doc), info: info}
	s.mu.Unlock()
	return info, nil
}

// Load implements domain.SnapshotStore.
func (s *Store) Load(_ context.Context, name string) (domain.Document, error) {
	s.mu.RLock()
	e, ok := s.snaps[name]
	s.mu.RUnlock()
	if !ok {
		return domain.Document{}, domain.NotFound("snapshot", name)
	}
	return CloneDocument(e.doc), nil
}

// List implements domain.SnapshotStore.
func (s *Store) List(_ context.Context) ([]domain.SnapshotInfo, error) {
	s.mu.RLock()
	out := make([]domain.SnapshotInfo, 0, len(s.snaps))
	for _, e := range s.snaps {
		out = append(out, e.info)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close implements domain.SnapshotStore.
func (s *Store) Close() error { return nil }

// CloneDocument deep-copies doc.
func CloneDocument(doc domain.Document) domain.Document {
	out := domain.Document{JSONType: doc.JSONType, ItemArray: make([]domain.ItemRecord, len(doc.ItemArray))}
	for i, rec := range doc.ItemArray {
		cp := rec
		if rec.Identity != nil {
			id := *rec.Identity
			cp.Identity = &id
		}
		if rec.Category != nil {
			cp.Category = append([]string(nil), rec.Category...)
		}
		if rec.Instance.ParentInstID != nil {
			p := *rec.Instance.ParentInstID
			cp.Instance.ParentInstID = &p
		}
		out.ItemArray[i] = cp
	}
	return out
}
