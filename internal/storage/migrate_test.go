package storage

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenSQLiteCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.sqlite")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	defer db.Close()
}

func TestApplyMigrationsRunsOnce(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "m.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	migrations := fstest.MapFS{
		"sql/001_widgets.sql": {Data: []byte(`-- +migrate Up
CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
-- +migrate Down
DROP TABLE widgets;
`)},
		"sql/002_seed.sql": {Data: []byte(`INSERT INTO widgets (name) VALUES ('first');`)},
		"sql/README.md":    {Data: []byte("ignored")},
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(ctx, db, migrations, "sql"); err != nil {
			t.Fatalf("ApplyMigrations run %d: %v", i, err)
		}
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM widgets`).Scan(&count); err != nil {
		t.Fatalf("count widgets: %v", err)
	}
	if count != 1 {
		t.Fatalf("widgets = %d, want 1 (seed applied once)", count)
	}

	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("schema_migrations = %d, want 2", count)
	}
}

func TestApplyMigrationsPartialFailureIsNotRecorded(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "m.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create widgets: %v", err)
	}

	migrations := fstest.MapFS{
		"sql/001_tables.sql": {Data: []byte(`CREATE TABLE widgets (id INTEGER PRIMARY KEY);
CREATE TABLE gadgets (id INTEGER PRIMARY KEY);
`)},
	}
	if err := ApplyMigrations(context.Background(), db, migrations, "sql"); err == nil {
		t.Fatal("expected error when a migration stops partway")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 0 {
		t.Fatalf("schema_migrations = %d, want 0", count)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'gadgets'`).Scan(&count); err != nil {
		t.Fatalf("lookup gadgets: %v", err)
	}
	if count != 0 {
		t.Fatal("gadgets must not exist after a failed migration")
	}
}

func TestIdempotentDDL(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want bool
	}{
		{"all if not exists", "-- tables\nCREATE TABLE IF NOT EXISTS a (id INTEGER);\ncreate index if not exists a_id on a(id);", true},
		{"plain create", "CREATE TABLE IF NOT EXISTS a (id INTEGER); CREATE TABLE b (id INTEGER);", false},
		{"insert", "CREATE TABLE IF NOT EXISTS a (id INTEGER); INSERT INTO a VALUES (1);", false},
		{"empty", "  -- nothing\n", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := idempotentDDL(tc.sql); got != tc.want {
				t.Fatalf("idempotentDDL = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUpSection(t *testing.T) {
	got := upSection("-- +migrate Up\nCREATE x;\n-- +migrate Down\nDROP x;\n")
	if got != "\nCREATE x;\n" {
		t.Fatalf("upSection = %q", got)
	}
	if got := upSection("SELECT 1;"); got != "SELECT 1;" {
		t.Fatalf("upSection without markers = %q", got)
	}
}
