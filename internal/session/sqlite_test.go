package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "sessions.sqlite"))
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour).Truncate(time.Millisecond)

	if err := store.Set(ctx, "sid-1", &Record{Data: []byte("payload"), Expires: expires}); err != nil {
		t.Fatalf("set: %v", err)
	}
	record, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record == nil {
		t.Fatal("expected record")
	}
	if string(record.Data) != "payload" {
		t.Fatalf("data = %q", record.Data)
	}
	if !record.Expires.Equal(expires) {
		t.Fatalf("expires = %s, want %s", record.Expires, expires)
	}

	if err := store.Set(ctx, "sid-1", &Record{Data: []byte("updated"), Expires: expires}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	record, err = store.Get(ctx, "sid-1")
	if err != nil || record == nil || string(record.Data) != "updated" {
		t.Fatalf("unexpected record after overwrite: %#v err=%v", record, err)
	}
}

func TestSQLiteStoreMissingAndExpired(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	record, err := store.Get(ctx, "nope")
	if err != nil || record != nil {
		t.Fatalf("expected nil record, got %#v err=%v", record, err)
	}

	if err := store.Set(ctx, "old", &Record{Data: []byte("x"), Expires: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	record, err = store.Get(ctx, "old")
	if err != nil || record != nil {
		t.Fatalf("expected expired record to be hidden, got %#v err=%v", record, err)
	}

	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted = %d, want 1", n)
	}
}

func TestSQLiteStoreDestroyAndClear(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, id, &Record{Data: []byte(id), Expires: expires}); err != nil {
			t.Fatalf("set %s: %v", id, err)
		}
	}

	if err := store.Destroy(ctx, "a"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := store.Destroy(ctx, "a"); err != nil {
		t.Fatalf("destroy should be idempotent: %v", err)
	}
	if record, _ := store.Get(ctx, "a"); record != nil {
		t.Fatal("expected destroyed session to be gone")
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, id := range []string{"b", "c"} {
		if record, _ := store.Get(ctx, id); record != nil {
			t.Fatalf("expected %s to be cleared", id)
		}
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.sqlite")
	ctx := context.Background()

	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Set(ctx, "keep", &Record{Data: []byte("v"), Expires: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	record, err := reopened.Get(ctx, "keep")
	if err != nil || record == nil {
		t.Fatalf("expected persisted record, got %#v err=%v", record, err)
	}
}

func TestSQLiteStoreRejectsEmptyID(t *testing.T) {
	store := openTestSQLite(t)
	if err := store.Set(context.Background(), "", &Record{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}
