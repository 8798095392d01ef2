package postgres

import (
	"brickcore/internal/infra/persistence/postgres/testutil"
	"brickcore/pkg/domain"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	store.now = func() time.Time { return time.Date(2024, 5, 4, 3, 2, 1, 0, time.UTC) }
	return store, conn
}

func sampleDocument() domain.Document {
	set := domain.Identity{Num: "6990-1", Kind: domain.KindSet}
	return domain.Document{JSONType: domain.TypeInventory, ItemArray: []domain.ItemRecord{
		{JSONType: domain.TypeItemFull, Identity: &set, Instance: domain.InstanceRecord{InstanceID: "set:6990-1:0:0", Section: domain.SectionUnknown}},
		{JSONType: domain.TypeItemStub, ItemID: "set:6990-1:0", Instance: domain.InstanceRecord{InstanceID: "set:6990-1:0:1", Section: domain.SectionUnknown, InsertionIndex: 1}},
	}}
}

func TestNewStoreCreatesTable(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS brickcore_snapshots") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected snapshot table DDL, got execs: %v", conn.Execs)
	}
}

func TestSaveLoadList(t *testing.T) {
	ctx := context.Background()
	store, _ := openStub(t)
	if _, err := store.Save(ctx, "zeta", domain.Document{JSONType: domain.TypeInventory}); err != nil {
		t.Fatalf("save zeta: %v", err)
	}
	info, err := store.Save(ctx, "alpha", sampleDocument())
	if err != nil {
		t.Fatalf("save alpha: %v", err)
	}
	if info.Items != 1 || info.Instances != 2 {
		t.Fatalf("unexpected info %+v", info)
	}
	doc, err := store.Load(ctx, "alpha")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.ItemArray) != 2 || doc.ItemArray[1].ItemID != "set:6990-1:0" {
		t.Fatalf("unexpected document %+v", doc)
	}
	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "zeta" {
		t.Fatalf("unexpected list %+v", list)
	}
	if !list[0].SavedAt.Equal(time.Date(2024, 5, 4, 3, 2, 1, 0, time.UTC)) {
		t.Fatalf("unexpected saved_at %v", list[0].SavedAt)
	}
}

func TestSaveReplacesByName(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	if _, err := store.Save(ctx, "alpha", sampleDocument()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Save(ctx, "alpha", domain.Document{JSONType: domain.TypeInventory}); err != nil {
		t.Fatalf("save again: %v", err)
	}
	if rows := conn.Tables["brickcore_snapshots"]; len(rows) != 1 {
		t.Fatalf("expected one row after upsert, got %d", len(rows))
	}
}

func TestLoadMissing(t *testing.T) {
	store, _ := openStub(t)
	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailures(t *testing.T) {
	ctx := context.Background()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	if _, err := NewStore(ctx, "postgres://example"); err == nil {
		t.Fatalf("expected ping failure")
	}
	restore()

	store, conn := openStub(t)
	conn.FailBegin = true
	if _, err := store.Save(ctx, "x", sampleDocument()); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false
	conn.FailCommit = true
	if _, err := store.Save(ctx, "x", sampleDocument()); err == nil {
		t.Fatalf("expected commit failure")
	}
	conn.FailCommit = false
	conn.RowsErr = errors.New("rows boom")
	if _, err := store.List(ctx); err == nil {
		t.Fatalf("expected rows error")
	}
}
