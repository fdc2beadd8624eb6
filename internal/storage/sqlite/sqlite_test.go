package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"mybooks/internal/storage"
	"mybooks/internal/storage/storagetest"
)

var _ storage.Storage = (*Database)(nil)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "nested", "books.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return db
}

func TestDatabase_Contract(t *testing.T) {
	storagetest.Run(t, tempDB(t))
}

func TestInitializeTwice(t *testing.T) {
	db := tempDB(t)
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
}

func TestValuesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "books.db")

	db, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	if err := db.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := db.Set(ctx, "mybooks", `[{"id":1}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewDatabase(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Initialize(ctx); err != nil {
		t.Fatalf("initialize after reopen: %v", err)
	}

	value, ok, err := reopened.Get(ctx, "mybooks")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || value != `[{"id":1}]` {
		t.Fatalf("want persisted value, got %q (ok=%v)", value, ok)
	}
}
