package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/vibast-solutions/ms-go-todo/config"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("tableExists query failed: %v", err)
	}
	return n > 0
}

func openTemp(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", filepath.Join(t.TempDir(), "todo.db"))
	db, err := Open(context.Background(), config.DatabaseConfig{Driver: DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateCreatesSchema(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	if err := Migrate(ctx, db, DriverSQLite); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	for _, table := range []string{"accounts", "todos", "todo_items", "internal_api_keys", "goose_db_version"} {
		if !tableExists(t, db, table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}

	version, err := Version(ctx, db, DriverSQLite)
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTemp(t)

	if err := Migrate(ctx, db, DriverSQLite); err != nil {
		t.Fatalf("first migrate failed: %v", err)
	}
	if err := Migrate(ctx, db, DriverSQLite); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestMigrateRejectsUnknownDriver(t *testing.T) {
	db := openTemp(t)
	if err := Migrate(context.Background(), db, "postgres"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
