package repository

import (
	"context"
	"database/sql"
	"time"
)

// SQLitePricingRepository implements PricingRepository for SQLite.
type SQLitePricingRepository struct {
	db *sql.DB
}

// NewSQLitePricingRepository creates a new SQLite pricing repository.
func NewSQLitePricingRepository(db *sql.DB) *SQLitePricingRepository {
	return &SQLitePricingRepository{db: db}
}

func (r *SQLitePricingRepository) GetActive(ctx context.Context) (*PricingVersion, error) {
	query := `SELECT version, rates_json, active, created_at FROM pricing_versions WHERE active = 1 ORDER BY version DESC LIMIT 1`

	var pv PricingVersion
	var createdAt string
	err := r.db.QueryRowContext(ctx, query).Scan(&pv.Version, &pv.RatesJSON, &pv.Active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &pv, nil
}

func (r *SQLitePricingRepository) Activate(ctx context.Context, version, ratesJSON string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE pricing_versions SET active = 0 WHERE active = 1`); err != nil {
		return err
	}

	query := `INSERT INTO pricing_versions (version, rates_json, active, created_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(version) DO UPDATE SET rates_json = excluded.rates_json, active = 1`
	if _, err := tx.ExecContext(ctx, query, version, ratesJSON, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLitePricingRepository) List(ctx context.Context) ([]*PricingVersion, error) {
	query := `SELECT version, rates_json, active, created_at FROM pricing_versions ORDER BY version DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var versions []*PricingVersion
	for rows.Next() {
		var pv PricingVersion
		var createdAt string
		if err := rows.Scan(&pv.Version, &pv.RatesJSON, &pv.Active, &createdAt); err != nil {
			return nil, err
		}
		pv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		versions = append(versions, &pv)
	}

	return versions, rows.Err()
}
