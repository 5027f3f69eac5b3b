package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// SetupTestDB connects to TEST_DATABASE_URL and applies the schema.
// The test is skipped when the variable is unset.
func SetupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := OpenDSN(ctx, dsn, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return conn
}

// CleanupTestDB cleans up test data
func CleanupTestDB(t testing.TB, conn *sql.DB) {
	t.Helper()

	// users cascades to everything else
	if _, err := conn.Exec("DELETE FROM users WHERE username LIKE 'test_%'"); err != nil {
		t.Logf("Warning: failed to cleanup test users: %v", err)
	}
}

// CreateTestUser creates a test user and returns user ID
func CreateTestUser(t testing.TB, conn *sql.DB, username string) int64 {
	t.Helper()

	var userID int64

	// Make username unique by adding timestamp
	uniqueUsername := fmt.Sprintf("test_%s_%d", username, time.Now().UnixNano())

	err := conn.QueryRow(
		"INSERT INTO users (username, email, password_hash) VALUES ($1, $2, 'x') RETURNING id",
		uniqueUsername, uniqueUsername+"@test.com",
	).Scan(&userID)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return userID
}
