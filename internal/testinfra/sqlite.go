// Package testinfra provides throwaway databases for package tests.
package testinfra

import (
	"context"
	"database/sql"
	"testing"

	"atrium-jazz/internal/store"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewSQLite opens an in-memory SQLite database with the calendar schema and
// closes it when the test ends. A single connection keeps every query on the
// same in-memory database.
func NewSQLite(t testing.TB) *store.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := store.New(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := db.CreateTables(context.Background()); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}

	t.Cleanup(func() { _ = db.Bun.Close() })
	return db
}
