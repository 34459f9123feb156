package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStore_PutList(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)

	if err := store.Put(ctx, "tickets/b.csv", strings.NewReader("b"), "text/csv"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "tickets/a.csv", strings.NewReader("a"), "text/csv"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "other/c.txt", strings.NewReader("c"), ""); err != nil {
		t.Fatalf("put: %v", err)
	}

	keys, err := store.List(ctx, "tickets/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 || keys[0] != "tickets/a.csv" || keys[1] != "tickets/b.csv" {
		t.Fatalf("unexpected keys %v", keys)
	}

	b, err := os.ReadFile(filepath.Join(store.Root(), "tickets", "a.csv"))
	if err != nil || string(b) != "a" {
		t.Fatalf("read back %q, %v", b, err)
	}
}

func TestStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	_ = store.Put(ctx, "x.csv", strings.NewReader("old"), "")
	if err := store.Put(ctx, "x.csv", strings.NewReader("new"), ""); err != nil {
		t.Fatalf("put: %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(store.Root(), "x.csv"))
	if string(b) != "new" {
		t.Fatalf("content = %q", b)
	}
}

func TestStore_RejectsBadKeys(t *testing.T) {
	store := newTempStore(t)
	for _, key := range []string{"", "  ", "/abs", "../escape", "a/../../b"} {
		if err := store.Put(context.Background(), key, strings.NewReader("x"), ""); err == nil {
			t.Errorf("Put(%q) expected error", key)
		}
	}
}
