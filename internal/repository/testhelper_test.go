package repository

import (
	"database/sql"
	"testing"

	"github.com/aureon-one/mediaplan-api/internal/database/migrations"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestDB creates an in-memory SQLite database for testing.
// It runs migrations and returns a database connection that will be cleaned up
// when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// insertTestCredits is a helper to insert a balance row directly.
func insertTestCredits(t *testing.T, db *sql.DB, userID string, balance int) {
	t.Helper()
	query := `
		INSERT INTO user_credits (user_id, credits_balance, total_purchased, total_used, created_at, updated_at)
		VALUES (?, ?, 0, 0, datetime('now'), datetime('now'))
	`
	if _, err := db.Exec(query, userID, balance); err != nil {
		t.Fatalf("failed to insert test credits: %v", err)
	}
}

// insertTestPurchase is a helper to insert a purchase row directly.
func insertTestPurchase(t *testing.T, db *sql.DB, id, userID, status, gatewayRef string, credits int) {
	t.Helper()
	query := `
		INSERT INTO credit_purchases (id, user_id, credits, amount_usd, status, gateway_ref, created_at)
		VALUES (?, ?, ?, 9.99, ?, ?, datetime('now'))
	`
	if _, err := db.Exec(query, id, userID, credits, status, gatewayRef); err != nil {
		t.Fatalf("failed to insert test purchase: %v", err)
	}
}
