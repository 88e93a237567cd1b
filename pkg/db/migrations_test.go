package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEmbeddedMigrations(t *testing.T) {
	db := openTestDB(t)
	m := NewMigrator(db)

	available, err := m.Available()
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if len(available) == 0 {
		t.Fatal("expected embedded migrations")
	}

	n, err := m.Migrate(context.Background())
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if n != len(available) {
		t.Errorf("applied %d migrations, want %d", n, len(available))
	}

	if _, err := db.Exec(`INSERT INTO recent_searches (namespace, term, seq) VALUES ('default', 'dune', 1)`); err != nil {
		t.Errorf("recent_searches table not usable: %v", err)
	}

	n, err = m.Migrate(context.Background())
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if n != 0 {
		t.Errorf("second Migrate applied %d migrations, want 0", n)
	}
}

func TestMigratorFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"notes.txt":      {Data: []byte("ignored")},
		"bad_name.sql":   {Data: []byte("ignored")},
	}
	db := openTestDB(t)
	m := NewMigratorFromFS(db, fsys)

	available, err := m.Available()
	if err != nil {
		t.Fatalf("Available: %v", err)
	}
	if len(available) != 2 || available[0].Name != "first" || available[1].Version != 2 {
		t.Fatalf("unexpected migrations: %+v", available)
	}

	status, err := m.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.Pending) != 2 || len(status.Applied) != 0 {
		t.Fatalf("unexpected status before migrate: %+v", status)
	}

	if _, err := m.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	status, err = m.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.Applied) != 2 || len(status.Pending) != 0 {
		t.Fatalf("unexpected status after migrate: %+v", status)
	}
	if status.Applied[0].AppliedAt == nil {
		t.Error("applied migration missing timestamp")
	}
}

func TestMigrateRollsBackFailure(t *testing.T) {
	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE ((;")},
	}
	db := openTestDB(t)
	m := NewMigratorFromFS(db, fsys)

	if _, err := m.Migrate(context.Background()); err == nil {
		t.Fatal("expected error from broken migration")
	}
	status, err := m.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.Applied) != 0 || len(status.Pending) != 1 {
		t.Errorf("broken migration should stay pending: %+v", status)
	}
}
