package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

// SQLiteCreditsRepository implements CreditsRepository for SQLite.
type SQLiteCreditsRepository struct {
	db *sql.DB
}

// NewSQLiteCreditsRepository creates a new SQLite credits repository.
func NewSQLiteCreditsRepository(db *sql.DB) *SQLiteCreditsRepository {
	return &SQLiteCreditsRepository{db: db}
}

func (r *SQLiteCreditsRepository) Get(ctx context.Context, userID string) (*models.UserCredits, error) {
	query := `SELECT user_id, credits_balance, total_purchased, total_used, created_at, updated_at
		FROM user_credits WHERE user_id = ?`
	return scanCredits(r.db.QueryRowContext(ctx, query, userID))
}

func (r *SQLiteCreditsRepository) GetOrCreate(ctx context.Context, userID string, signupGrant int) (*models.UserCredits, error) {
	existing, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	insert := `INSERT INTO user_credits (user_id, credits_balance, total_purchased, total_used, created_at, updated_at)
		VALUES (?, ?, 0, 0, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, userID, signupGrant, now, now); err != nil {
		return nil, err
	}

	// Re-read; a concurrent creator may have won the insert
	created, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, ErrNotFound
	}
	return created, nil
}

func (r *SQLiteCreditsRepository) AddCredits(ctx context.Context, userID string, credits int, purchaseID string) (*models.UserCredits, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	if purchaseID != "" {
		result, err := tx.ExecContext(ctx,
			`UPDATE credit_purchases SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
			models.PurchaseStatusCompleted, now, purchaseID, models.PurchaseStatusPending,
		)
		if err != nil {
			return nil, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			// Already completed (webhook replay) or unknown purchase
			return nil, ErrDuplicatePurchase
		}
	}

	upsert := `INSERT INTO user_credits (user_id, credits_balance, total_purchased, total_used, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			credits_balance = user_credits.credits_balance + excluded.credits_balance,
			total_purchased = user_credits.total_purchased + excluded.total_purchased,
			updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, upsert, userID, credits, credits, now, now); err != nil {
		return nil, err
	}

	var uc models.UserCredits
	var createdAt, updatedAt string
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, credits_balance, total_purchased, total_used, created_at, updated_at FROM user_credits WHERE user_id = ?`,
		userID,
	).Scan(&uc.UserID, &uc.CreditsBalance, &uc.TotalPurchased, &uc.TotalUsed, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	uc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	uc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &uc, nil
}

func scanCredits(row *sql.Row) (*models.UserCredits, error) {
	var uc models.UserCredits
	var createdAt, updatedAt string
	err := row.Scan(&uc.UserID, &uc.CreditsBalance, &uc.TotalPurchased, &uc.TotalUsed, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	uc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	uc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &uc, nil
}

// isDuplicateKeyError checks for unique constraint violations across the
// SQLite error message variants libsql produces.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "already exists")
}
