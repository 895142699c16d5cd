package db

import (
	"context"
	"testing"
	"time"

	"github.com/chepyr/go-task-manager/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const testDSN = "file::memory:?_foreign_keys=on"

// setupTestDB returns an in-memory sqlite database with the real schema.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dbx, err := Open(context.Background(), "sqlite3", testDSN)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { dbx.Close() })
	return dbx
}

func createTestUser(t *testing.T, dbx *sqlx.DB, email string) *models.User {
	t.Helper()
	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := insertUser(context.Background(), dbx, user); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return user
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name          string
		driverName    string
		dsn           string
		expectedError bool
	}{
		{
			name:          "Successful connection with SQLite",
			driverName:    "sqlite3",
			dsn:           ":memory:",
			expectedError: false,
		},
		{
			name:          "Failed connection with invalid DSN",
			driverName:    "sqlite3",
			dsn:           "file::memory:?mode=invalid",
			expectedError: true,
		},
		{
			name:          "Unknown driver",
			driverName:    "oracle",
			dsn:           "whatever",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := Connect(tt.driverName, tt.dsn)

			if tt.expectedError {
				if err == nil {
					t.Error("Expected error, got none")
				}
				if conn != nil {
					t.Error("Expected nil connection on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			defer conn.Close()
			if got := conn.Stats().MaxOpenConnections; got != 1 {
				t.Errorf("Expected sqlite pool limited to 1 connection, got %d", got)
			}
		})
	}
}

func TestOpen_MigratesSchema(t *testing.T) {
	dbx := setupTestDB(t)

	for _, table := range []string{"users", "categories", "tasks"} {
		var n int
		err := dbx.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = $1`, table)
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		if n != 1 {
			t.Errorf("table %s missing after migration", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	dbx := setupTestDB(t)
	if err := Migrate(context.Background(), dbx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestSQLiteLower_Unicode(t *testing.T) {
	dbx := setupTestDB(t)

	var got struct {
		Lower  string `db:"lowered"`
		IsNull bool   `db:"is_null"`
	}
	if err := dbx.Get(&got, `SELECT LOWER('ÜBER Café') AS lowered, LOWER(NULL) IS NULL AS is_null`); err != nil {
		t.Fatalf("query: %v", err)
	}
	if got.Lower != "über café" {
		t.Errorf("LOWER = %q, want %q", got.Lower, "über café")
	}
	if !got.IsNull {
		t.Error("LOWER(NULL) should stay NULL")
	}
}
