package repository

import (
	"testing"

	"github.com/foxzi/smartreach/internal/db"
	"github.com/jmoiron/sqlx"
)

// setupTestDB creates an in-memory SQLite database with all migrations applied
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return database.DB
}
