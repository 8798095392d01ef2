// Package tables stores snapshots as relational item and instance rows
// through gorm, so the inventory can be browsed and edited as two plain
// tables in PostgreSQL.
package tables

import (
	"brickcore/pkg/domain"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ domain.SnapshotStore = (*Store)(nil)

const insertBatchSize = 500

// Store implements domain.SnapshotStore over gorm.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to PostgreSQL at dsn and migrates the tables.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open tables store: %w", err)
	}
	return New(ctx, db)
}

// New wraps an open gorm handle and migrates the tables.
func New(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(&Snapshot{}, &ItemRow{}, &InstanceRow{}); err != nil {
		return nil, fmt.Errorf("migrate tables: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Save implements domain.SnapshotStore.
func (s *Store) Save(ctx context.Context, name string, doc domain.Document) (domain.SnapshotInfo, error) {
	info := domain.SnapshotInfoFor(name, doc, s.now())
	items, instances := ToRows(name, doc)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteSnapshot(tx, name); err != nil {
			return err
		}
		meta := Snapshot{Name: name, Items: info.Items, Instances: info.Instances, SavedAt: info.SavedAt}
		if err := tx.Create(&meta).Error; err != nil {
			return fmt.Errorf("insert snapshot %s: %w", name, err)
		}
		if len(items) > 0 {
			if err := tx.CreateInBatches(items, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert items of %s: %w", name, err)
			}
		}
		if len(instances) > 0 {
			if err := tx.CreateInBatches(instances, insertBatchSize).Error; err != nil {
				return fmt.Errorf("insert instances of %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.SnapshotInfo{}, err
	}
	return info, nil
}

func deleteSnapshot(tx *gorm.DB, name string) error {
	if err := tx.Where("snapshot = ?", name).Delete(&InstanceRow{}).Error; err != nil {
		return fmt.Errorf("clear instances of %s: %w", name, err)
	}
	if err := tx.Where("snapshot = ?", name).Delete(&ItemRow{}).Error; err != nil {
		return fmt.Errorf("clear items of %s: %w", name, err)
	}
	if err := tx.Where("name = ?", name).Delete(&Snapshot{}).Error; err != nil {
		return fmt.Errorf("clear snapshot %s: %w", name, err)
	}
	return nil
}

// Load implements domain.SnapshotStore.
func (s *Store) Load(ctx context.Context, name string) (domain.Document, error) {
	db := s.db.WithContext(ctx)
	var meta Snapshot
	if err := db.Where("name = ?", name).First(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Document{}, domain.NotFound("snapshot", name)
		}
		return domain.Document{}, fmt.Errorf("select snapshot %s: %w", name, err)
	}
	var items []ItemRow
	if err := db.Where("snapshot = ?", name).Find(&items).Error; err != nil {
		return domain.Document{}, fmt.Errorf("select items of %s: %w", name, err)
	}
	var instances []InstanceRow
	if err := db.Where("snapshot = ?", name).Order("insertion_index").Find(&instances).Error; err != nil {
		return domain.Document{}, fmt.Errorf("select instances of %s: %w", name, err)
	}
	return FromRows(items, instances)
}

// List implements domain.SnapshotStore.
func (s *Store) List(ctx context.Context) ([]domain.SnapshotInfo, error) {
	var metas []Snapshot
	if err := s.db.WithContext(ctx).Order("name").Find(&metas).Error; err != nil {
		return nil, fmt.Errorf("select snapshots: %w", err)
	}
	out := make([]domain.SnapshotInfo, 0, len(metas))
	for _, m := range metas {
		out = append(out, domain.SnapshotInfo{Name: m.Name, Items: m.Items, Instances: m.Instances, SavedAt: m.SavedAt.UTC()})
	}
	return out, nil
}

// Close implements domain.SnapshotStore.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
