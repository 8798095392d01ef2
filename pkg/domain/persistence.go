package domain

import (
	"context"
	"time"
)

// SnapshotInfo summarises a stored snapshot.
type SnapshotInfo struct {
	Name      string    `json:"name"`
	Items     int       `json:"items"`
	Instances int       `json:"instances"`
	SavedAt   time.Time `json:"saved_at"`
}

// SnapshotStore persists serialized inventories under a name.
type SnapshotStore interface {
	// Save stores doc under name, replacing any earlier stream of the same name.
	Save(ctx context.Context, name string, doc Document) (SnapshotInfo, error)
	// Load returns the stream saved under name in record order. Missing
	// snapshots report ErrNotFound.
	Load(ctx context.Context, name string) (Document, error)
	// List returns every snapshot ordered by name.
	List(ctx context.Context) ([]SnapshotInfo, error)
	// Close releases backend resources.
	Close() error
}

// SnapshotInfoFor builds the summary of doc saved at the given time.
func SnapshotInfoFor(name string, doc Document, savedAt time.Time) SnapshotInfo {
	return SnapshotInfo{
		Name:      name,
		Items:     doc.ItemCount(),
		Instances: doc.InstanceCount(),
		SavedAt:   savedAt.UTC(),
	}
}
