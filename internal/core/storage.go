package core

import (
	"brickcore/internal/config"
	"brickcore/internal/infra/persistence/memory"
	"brickcore/internal/infra/persistence/postgres"
	"brickcore/internal/infra/persistence/sqlite"
	"brickcore/internal/infra/persistence/tables"
	"brickcore/pkg/domain"
	"context"
	"fmt"
)

// StorageDriver identifies a concrete snapshot store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL, one JSONB document per snapshot
	StorageTables   StorageDriver = "tables"   // PostgreSQL, item and instance tables
)

// SnapshotStore is the persistence contract used by the service.
type SnapshotStore = domain.SnapshotStore

// OpenSnapshotStore selects a backend from cfg. Defaults to sqlite when the
// driver is unset.
func OpenSnapshotStore(ctx context.Context, cfg config.Storage) (SnapshotStore, error) {
	driver := StorageDriver(cfg.Driver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case StorageTables:
		return tables.Open(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
