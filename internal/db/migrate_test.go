package db

import (
	"path/filepath"
	"testing"
	"time"
)

func TestApplyMigrationFileIsIdempotent(t *testing.T) {
	sqdb, err := OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sqdb.Close()

	migration := filepath.Join("..", "..", "migrations", "001_init.sql")
	if err := ApplyMigrationFile(sqdb, migration); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := ApplyMigrationFile(sqdb, migration); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	for _, table := range []string{"users", "feedback", "sessions", "rate_limit_events"} {
		var name string
		err := sqdb.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestApplyMigrationFileMissingPath(t *testing.T) {
	sqdb, err := OpenSQLite(filepath.Join(t.TempDir(), "app.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer sqdb.Close()
	if err := ApplyMigrationFile(sqdb, filepath.Join(t.TempDir(), "nope.sql")); err == nil {
		t.Fatalf("expected error for missing migration file")
	}
}
