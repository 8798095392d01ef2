package memory

import (
	"brickcore/internal/blob/core"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := New()
	info, err := store.Put(ctx, "exports/demo/tree.txt", strings.NewReader("tree"), core.PutOptions{ContentType: "text/plain", Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	info.Metadata["k"] = "changed"
	head, err := store.Head(ctx, "exports/demo/tree.txt")
	if err != nil || head.Metadata["k"] != "v" || head.Size != 4 || head.ETag == "" {
		t.Fatalf("head: %+v %v", head, err)
	}
	if _, err := store.Put(ctx, "exports/demo/tree.txt", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Put(ctx, "", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	_, rc, err := store.Get(ctx, "exports/demo/tree.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "tree" {
		t.Fatalf("body = %q", body)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.PresignURL(ctx, "exports/demo/tree.txt", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if ok, _ := store.Delete(ctx, "exports/demo/tree.txt"); !ok {
		t.Fatalf("expected delete to report existing key")
	}
	if ok, _ := store.Delete(ctx, "exports/demo/tree.txt"); ok {
		t.Fatalf("expected second delete to report missing key")
	}
}

func TestStoreListAndConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	store := New()
	keys := []string{"exports/b/2", "exports/a/1", "exports/a/3", "other/4"}
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if _, err := store.Put(ctx, key, strings.NewReader(key), core.PutOptions{}); err != nil {
				t.Errorf("put %s: %v", key, err)
			}
		}(key)
	}
	wg.Wait()
	list, err := store.List(ctx, "exports/")
	if err != nil || len(list) != 3 {
		t.Fatalf("list: %+v %v", list, err)
	}
	if list[0].Key != "exports/a/1" || list[1].Key != "exports/a/3" || list[2].Key != "exports/b/2" {
		t.Fatalf("list not sorted: %+v", list)
	}
	if store.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
}
