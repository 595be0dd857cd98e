package main

import (
	"bytes"
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/yourusername/fun-declaration-game/internal/config"
	"github.com/yourusername/fun-declaration-game/internal/session"
)

type failingStore struct {
	session.Store
}

func (failingStore) Clear(ctx context.Context) error {
	return errors.New("disk is read-only")
}

func seedSession(t *testing.T, store session.Store, id string) {
	t.Helper()
	err := store.Set(context.Background(), id, &session.Record{
		Data:    []byte("x"),
		Expires: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func TestResetSessionsClearsByDefault(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir(), SessionBackend: config.SessionBackendSQLite}
	store, err := openSessionStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	seedSession(t, store, "before-restart")

	var buf bytes.Buffer
	resetSessions(context.Background(), cfg, store, log.New(&buf, "", 0))

	rec, err := store.Get(context.Background(), "before-restart")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec != nil {
		t.Fatal("expected session to be cleared")
	}
	if !strings.Contains(buf.String(), "All sessions cleared on server start (RESET_SESSIONS_ON_START=true).") {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
}

func TestResetSessionsDisabled(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir(), ResetSessionsOnStart: "false"}
	store, err := openSessionStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	seedSession(t, store, "kept")

	var buf bytes.Buffer
	resetSessions(context.Background(), cfg, store, log.New(&buf, "", 0))

	rec, err := store.Get(context.Background(), "kept")
	if err != nil || rec == nil {
		t.Fatalf("expected session to survive, got %v %v", rec, err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no log output, got %q", buf.String())
	}
}

func TestResetSessionsFailureIsNotFatal(t *testing.T) {
	cfg := &config.Config{ResetSessionsOnStart: "true"}
	var buf bytes.Buffer
	resetSessions(context.Background(), cfg, failingStore{}, log.New(&buf, "", 0))
	if !strings.Contains(buf.String(), "disk is read-only") {
		t.Fatalf("expected error to be logged, got %q", buf.String())
	}
}

func TestOpenSessionStoreRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	cfg := &config.Config{
		SessionBackend:  config.SessionBackendRedis,
		SessionRedisURL: "redis://" + mr.Addr() + "/0",
	}
	store, err := openSessionStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*session.RedisStore); !ok {
		t.Fatalf("expected redis store, got %T", store)
	}

	seedSession(t, store, "a")
	resetSessions(context.Background(), &config.Config{}, store, log.New(&bytes.Buffer{}, "", 0))
	if rec, _ := store.Get(context.Background(), "a"); rec != nil {
		t.Fatal("expected redis sessions to be cleared")
	}
}

func TestOpenSessionStoreSQLitePath(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DataDir: filepath.Join(dir, "nested")}
	store, err := openSessionStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*session.SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
}
