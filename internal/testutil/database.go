package testutil

import (
	"testing"

	"pagesync/internal/database"
)

// NewTestDatabase creates a migrated in-memory drafts database and closes
// it when the test finishes.
func NewTestDatabase(t *testing.T) database.DB {
	t.Helper()

	db, err := database.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		t.Fatalf("migrating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
