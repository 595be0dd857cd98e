package session

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb)
	t.Cleanup(func() {
		_ = store.Close()
		mr.Close()
	})
	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newRedisTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "sid", &Record{Data: []byte("hello"), Expires: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("sess:sid") {
		t.Fatal("expected sess:sid key")
	}
	if ttl := mr.TTL("sess:sid"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl: %s", ttl)
	}

	record, err := store.Get(ctx, "sid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record == nil || string(record.Data) != "hello" {
		t.Fatalf("unexpected record: %#v", record)
	}

	mr.FastForward(2 * time.Minute)
	record, err = store.Get(ctx, "sid")
	if err != nil || record != nil {
		t.Fatalf("expected expired record to vanish, got %#v err=%v", record, err)
	}
}

func TestRedisStoreSetExpiredDeletes(t *testing.T) {
	store, mr := newRedisTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "sid", &Record{Data: []byte("x"), Expires: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "sid", &Record{Data: []byte("x"), Expires: time.Now().Add(-time.Second)}); err != nil {
		t.Fatalf("set expired: %v", err)
	}
	if mr.Exists("sess:sid") {
		t.Fatal("expected key to be removed")
	}
}

func TestRedisStoreClearOnlySessionKeys(t *testing.T) {
	store, mr := newRedisTestStore(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		id := "sid-" + strconv.Itoa(i)
		if err := store.Set(ctx, id, &Record{Data: []byte("x"), Expires: time.Now().Add(time.Hour)}); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	if err := mr.Set("other:key", "keep"); err != nil {
		t.Fatalf("seed other key: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 1 || keys[0] != "other:key" {
		t.Fatalf("unexpected keys after clear: %v", keys)
	}

	if err := store.Destroy(ctx, "missing"); err != nil {
		t.Fatalf("destroy missing: %v", err)
	}
}
