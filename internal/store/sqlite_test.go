package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rogers-f/phasebook/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB(t *testing.T) {
	db := openTestDB(t)

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		t.Fatalf("query tables: %v", err)
	}
	defer rows.Close()

	expected := map[string]bool{
		"kv_slots":          true,
		"workflow_events":   true,
		"document_exports":  true,
		"schema_migrations": true,
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan table name: %v", err)
		}
		delete(expected, name)
	}
	for tbl := range expected {
		t.Errorf("expected table %q not found", tbl)
	}

	version, dirty, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("schema version = %d (dirty=%v), want 2 clean", version, dirty)
	}
}

func TestNewDB_IdempotentMigration(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db1, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("first NewDB: %v", err)
	}
	db1.Close()

	db2, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("second NewDB: %v", err)
	}
	defer db2.Close()

	if _, err := db2.Exec("INSERT INTO kv_slots (slot_key, slot_value) VALUES ('k', 'v')"); err != nil {
		t.Fatalf("insert after reopen: %v", err)
	}
}

func TestNewDB_CreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "deeper", "test.db")

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Errorf("parent directory not created: %v", err)
	}
}

func TestNewDB_UnwritableLocation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plainfile")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewDB(filepath.Join(file, "test.db"))
	if err == nil {
		t.Fatal("expected error when parent is a file")
	}
	if !errors.Is(err, domain.ErrStoreInit) {
		t.Errorf("expected ErrStoreInit, got %v", err)
	}
}
