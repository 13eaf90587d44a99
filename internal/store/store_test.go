package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/ebersole/caravan/internal/database"
	"github.com/ebersole/caravan/internal/model"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// A :memory: database exists per connection; pin the pool to one so
	// concurrent test writers all see the same database.
	db.SetMaxOpenConns(1)
	// Ensure foreign keys are enforced (modernc/sqlite may not honor DSN param for :memory:)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).Create(email, "Test User", "correct-horse")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func createTestTrip(t *testing.T, db *sql.DB, ownerID int64) *model.Trip {
	t.Helper()
	trip, err := NewTripStore(db).Create("Lisbon", "Lisbon, Portugal", ownerID)
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	return trip
}

func testFields(name string) ActivityFields {
	return ActivityFields{
		Name:      name,
		Category:  model.CategorySightseeing,
		StartTime: time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC),
	}
}
