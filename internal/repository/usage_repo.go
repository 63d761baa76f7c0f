package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

// SQLiteUsageRepository implements UsageRepository for SQLite.
type SQLiteUsageRepository struct {
	db *sql.DB
}

// NewSQLiteUsageRepository creates a new SQLite usage repository.
func NewSQLiteUsageRepository(db *sql.DB) *SQLiteUsageRepository {
	return &SQLiteUsageRepository{db: db}
}

const usageInsert = `INSERT INTO usage_logs (id, user_id, operation, units, api_cost_usd, markup_usd, total_usd, total_inr,
	credits_cost, input_payload, success, error_message, pricing_version, request_id, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (r *SQLiteUsageRepository) CreateWithDeduction(ctx context.Context, log *models.UsageLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Conditional decrement: the WHERE clause rejects the update when the
	// balance does not cover the cost, so the balance can never go negative
	// even under concurrent deductions.
	result, err := tx.ExecContext(ctx,
		`UPDATE user_credits SET
			credits_balance = credits_balance - ?,
			total_used = total_used + ?,
			updated_at = ?
		WHERE user_id = ? AND credits_balance >= ?`,
		log.CreditsCost, log.CreditsCost, time.Now().UTC().Format(time.RFC3339), log.UserID, log.CreditsCost,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientCredits
	}

	if _, err := tx.ExecContext(ctx, usageInsert, usageArgs(log)...); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteUsageRepository) Create(ctx context.Context, log *models.UsageLog) error {
	_, err := r.db.ExecContext(ctx, usageInsert, usageArgs(log)...)
	return err
}

func usageArgs(log *models.UsageLog) []any {
	return []any{
		log.ID, log.UserID, log.Operation, log.Units,
		log.APICostUSD, log.MarkupUSD, log.TotalUSD, log.TotalINR,
		log.CreditsCost, nullString(log.InputPayload), log.Success, nullString(log.ErrorMessage),
		nullString(log.PricingVersion), nullString(log.RequestID), log.DurationMs,
		log.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (r *SQLiteUsageRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.UsageLog, error) {
	query := `SELECT id, user_id, operation, units, api_cost_usd, markup_usd, total_usd, total_inr,
		credits_cost, input_payload, success, error_message, pricing_version, request_id, duration_ms, created_at
		FROM usage_logs WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var logs []*models.UsageLog
	for rows.Next() {
		var log models.UsageLog
		var inputPayload, errorMessage, pricingVersion, requestID sql.NullString
		var durationMs sql.NullInt64
		var createdAt string

		if err := rows.Scan(&log.ID, &log.UserID, &log.Operation, &log.Units,
			&log.APICostUSD, &log.MarkupUSD, &log.TotalUSD, &log.TotalINR,
			&log.CreditsCost, &inputPayload, &log.Success, &errorMessage,
			&pricingVersion, &requestID, &durationMs, &createdAt); err != nil {
			return nil, err
		}

		log.InputPayload = inputPayload.String
		log.ErrorMessage = errorMessage.String
		log.PricingVersion = pricingVersion.String
		log.RequestID = requestID.String
		log.DurationMs = durationMs.Int64
		log.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func (r *SQLiteUsageRepository) GetSummary(ctx context.Context, userID string, from, to time.Time) (*models.UsageSummary, error) {
	query := `SELECT operation,
		COUNT(*),
		COALESCE(SUM(CASE WHEN success = 1 THEN credits_cost ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN success = 1 THEN total_usd ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN success = 1 THEN total_inr ELSE 0 END), 0),
		COALESCE(AVG(CASE WHEN success = 1 THEN 1.0 ELSE 0.0 END), 0)
		FROM usage_logs
		WHERE user_id = ? AND created_at >= ? AND created_at < ?
		GROUP BY operation
		ORDER BY operation`

	rows, err := r.db.QueryContext(ctx, query, userID,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	summary := &models.UsageSummary{
		UserID: userID,
		From:   from,
		To:     to,
	}

	for rows.Next() {
		var op models.OperationSummary
		if err := rows.Scan(&op.Operation, &op.Count, &op.Credits, &op.TotalUSD, &op.TotalINR, &op.SuccessRate); err != nil {
			return nil, err
		}
		summary.Operations = append(summary.Operations, op)
		summary.TotalCredits += op.Credits
		summary.TotalUSD += op.TotalUSD
		summary.TotalINR += op.TotalINR
	}

	return summary, rows.Err()
}

// nullString converts an empty string to a NULL-capable value.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
