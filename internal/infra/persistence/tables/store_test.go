package tables

import (
	pgtestutil "brickcore/internal/infra/persistence/postgres/testutil"
	"brickcore/pkg/domain"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newStubStore runs the store over the in-memory database/sql stub. The
// stub does not answer gorm's migrator queries, so the tables are not
// migrated.
func newStubStore(t *testing.T) (*Store, *pgtestutil.StubConn) {
	t.Helper()
	sqlDB, conn := pgtestutil.NewStubDB()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	saved := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	return &Store{db: db, now: func() time.Time { return saved }}, conn
}

func TestStoreSaveLoadList(t *testing.T) {
	ctx := context.Background()
	s, conn := newStubStore(t)
	doc := sampleDocument()

	info, err := s.Save(ctx, "b-demo", doc)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if info.Items != 2 || info.Instances != 4 {
		t.Fatalf("unexpected info %+v", info)
	}
	if n := len(conn.Tables["brickcore_table_instances"]); n != 4 {
		t.Fatalf("expected 4 instance rows, got %d", n)
	}

	got, err := s.Load(ctx, "b-demo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(doc, got) {
		t.Fatalf("load mismatch\nwant %+v\ngot  %+v", doc, got)
	}
	if cat := got.ItemArray[2].Category; len(cat) != 3 || cat[2] != "Bricks > 2x4" {
		t.Fatalf("category element split: %q", cat)
	}

	if _, err := s.Save(ctx, "a-demo", domain.Document{JSONType: domain.TypeInventory, ItemArray: doc.ItemArray[:1]}); err != nil {
		t.Fatalf("Save second: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "a-demo" || list[1].Name != "b-demo" {
		t.Fatalf("unexpected list %+v", list)
	}
	if list[1].Instances != 4 || !list[1].SavedAt.Equal(info.SavedAt) {
		t.Fatalf("unexpected listing %+v", list[1])
	}
}

func TestStoreSaveReplacesRows(t *testing.T) {
	ctx := context.Background()
	s, conn := newStubStore(t)
	doc := sampleDocument()
	if _, err := s.Save(ctx, "demo", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	smaller := domain.Document{JSONType: domain.TypeInventory, ItemArray: doc.ItemArray[:2]}
	if _, err := s.Save(ctx, "demo", smaller); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	if n := len(conn.Tables["brickcore_table_instances"]); n != 2 {
		t.Fatalf("expected old instance rows to be replaced, got %d", n)
	}
	if n := len(conn.Tables["brickcore_table_snapshots"]); n != 1 {
		t.Fatalf("expected one snapshot row, got %d", n)
	}
	got, err := s.Load(ctx, "demo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(smaller, got) {
		t.Fatalf("load mismatch\nwant %+v\ngot  %+v", smaller, got)
	}
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	s, conn := newStubStore(t)
	if _, err := s.Load(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	conn.FailExec = true
	if _, err := s.Save(ctx, "demo", sampleDocument()); err == nil {
		t.Fatalf("expected save failure")
	}
	conn.FailExec = false
	if list, err := s.List(ctx); err != nil || len(list) != 0 {
		t.Fatalf("failed save left %v, %v", list, err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
