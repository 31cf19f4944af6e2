package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:", Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestMigrateSchema(t *testing.T) {
	store := newTestStore(t)

	// a second run must be a no-op
	if err := store.MigrateSchema(); err != nil {
		t.Fatalf("MigrateSchema() error = %v", err)
	}

	rows, err := store.db.Query(`
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
	`)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan sqlite_master: %v", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("sqlite_master rows: %v", err)
	}

	for _, table := range []string{"schema_migrations", "kv"} {
		if !found[table] {
			t.Fatalf("expected table %q to exist", table)
		}
	}

	version, err := store.currentSchemaVersion()
	if err != nil {
		t.Fatalf("currentSchemaVersion() error = %v", err)
	}
	if want := migrations[len(migrations)-1].version; version != want {
		t.Fatalf("unexpected schema version: got %d want %d", version, want)
	}
}

func TestStore_SetOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "progress:a", []byte(`{"progress":1}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set(ctx, "progress:a", []byte(`{"progress":2}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&count); err != nil {
		t.Fatalf("count kv: %v", err)
	}
	if count != 1 {
		t.Fatalf("kv rows = %d, want 1", count)
	}
	got, err := store.Get(ctx, "progress:a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"progress":2}` {
		t.Fatalf("Get() = %s, want the second value", got)
	}
}

func TestStore_KeysPrefixIsLiteral(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"progress:a_b", "progress:aXb", "progress:A_b", "other"} {
		if err := store.Set(ctx, key, []byte(`{}`)); err != nil {
			t.Fatalf("Set(%q) error = %v", key, err)
		}
	}

	keys, err := store.Keys(ctx, "progress:a_")
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "progress:a_b" {
		t.Fatalf("Keys() = %v, want [progress:a_b]", keys)
	}
}

func TestIntegrityCheck(t *testing.T) {
	store := newTestStore(t)

	results, err := store.IntegrityCheck()
	if err != nil {
		t.Fatalf("IntegrityCheck() error = %v", err)
	}
	if len(results) != 1 || results[0] != "ok" {
		t.Fatalf("IntegrityCheck() = %v, want [ok]", results)
	}
	if err := store.Analyze(); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
}

func TestVacuumIntoAndReadOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watchtrack.db")
	ctx := context.Background()

	store, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Set(ctx, "progress:intro", []byte(`{"progress":10}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Vacuum(""); err != nil {
		t.Fatalf("Vacuum() error = %v", err)
	}
	backup := filepath.Join(dir, "backup.db")
	if err := store.Vacuum(backup); err != nil {
		t.Fatalf("Vacuum(target) error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	ro, err := Open(backup, Options{ReadOnly: true})
	if err != nil {
		t.Fatalf("Open(read-only) error = %v", err)
	}
	defer ro.Close()

	if !ro.ReadOnly() {
		t.Fatalf("ReadOnly() = false, want true")
	}
	got, err := ro.Get(ctx, "progress:intro")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"progress":10}` {
		t.Fatalf("Get() = %s", got)
	}
	if err := ro.Set(ctx, "progress:intro", []byte(`{}`)); err == nil {
		t.Fatalf("Set() on read-only store succeeded")
	}
}

func TestSqliteDSN(t *testing.T) {
	if _, err := sqliteDSN(":memory:", Options{ReadOnly: true}); err == nil {
		t.Fatalf("sqliteDSN() accepted read-only in-memory database")
	}

	dsn, err := sqliteDSN("/data/watchtrack.db", Options{ReadOnly: true}.withDefaults())
	if err != nil {
		t.Fatalf("sqliteDSN() error = %v", err)
	}
	if !strings.HasPrefix(dsn, "file:/data/watchtrack.db?") || !strings.Contains(dsn, "mode=ro") {
		t.Fatalf("sqliteDSN() = %q", dsn)
	}
	if strings.Contains(dsn, "synchronous") {
		t.Fatalf("read-only DSN should not set synchronous: %q", dsn)
	}
}
