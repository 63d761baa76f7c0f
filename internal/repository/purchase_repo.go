package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

// SQLitePurchaseRepository implements PurchaseRepository for SQLite.
type SQLitePurchaseRepository struct {
	db *sql.DB
}

// NewSQLitePurchaseRepository creates a new SQLite purchase repository.
func NewSQLitePurchaseRepository(db *sql.DB) *SQLitePurchaseRepository {
	return &SQLitePurchaseRepository{db: db}
}

func (r *SQLitePurchaseRepository) Create(ctx context.Context, purchase *models.CreditPurchase) error {
	query := `INSERT INTO credit_purchases (id, user_id, credits, amount_usd, status, gateway_ref, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var completedAt *string
	if purchase.CompletedAt != nil {
		s := purchase.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &s
	}

	_, err := r.db.ExecContext(ctx, query,
		purchase.ID, purchase.UserID, purchase.Credits, purchase.AmountUSD,
		purchase.Status, nullString(purchase.GatewayRef),
		purchase.CreatedAt.UTC().Format(time.RFC3339), completedAt,
	)
	if isDuplicateKeyError(err) {
		return ErrDuplicatePurchase
	}
	return err
}

func (r *SQLitePurchaseRepository) GetByID(ctx context.Context, id string) (*models.CreditPurchase, error) {
	query := `SELECT id, user_id, credits, amount_usd, status, gateway_ref, created_at, completed_at
		FROM credit_purchases WHERE id = ?`
	return scanPurchase(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLitePurchaseRepository) GetByGatewayRef(ctx context.Context, gatewayRef string) (*models.CreditPurchase, error) {
	query := `SELECT id, user_id, credits, amount_usd, status, gateway_ref, created_at, completed_at
		FROM credit_purchases WHERE gateway_ref = ?`
	return scanPurchase(r.db.QueryRowContext(ctx, query, gatewayRef))
}

func (r *SQLitePurchaseRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.CreditPurchase, error) {
	query := `SELECT id, user_id, credits, amount_usd, status, gateway_ref, created_at, completed_at
		FROM credit_purchases WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var purchases []*models.CreditPurchase
	for rows.Next() {
		var p models.CreditPurchase
		var gatewayRef, completedAt sql.NullString
		var createdAt string

		if err := rows.Scan(&p.ID, &p.UserID, &p.Credits, &p.AmountUSD, &p.Status, &gatewayRef, &createdAt, &completedAt); err != nil {
			return nil, err
		}

		p.GatewayRef = gatewayRef.String
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			p.CompletedAt = &t
		}

		purchases = append(purchases, &p)
	}

	return purchases, rows.Err()
}

func (r *SQLitePurchaseRepository) MarkRefunded(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE credit_purchases SET status = ? WHERE id = ? AND status = ?`,
		models.PurchaseStatusRefunded, id, models.PurchaseStatusCompleted,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPurchase(row *sql.Row) (*models.CreditPurchase, error) {
	var p models.CreditPurchase
	var gatewayRef, completedAt sql.NullString
	var createdAt string

	err := row.Scan(&p.ID, &p.UserID, &p.Credits, &p.AmountUSD, &p.Status, &gatewayRef, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.GatewayRef = gatewayRef.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		p.CompletedAt = &t
	}

	return &p, nil
}
