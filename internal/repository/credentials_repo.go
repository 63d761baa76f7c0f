package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

// SQLiteCredentialsRepository implements CredentialsRepository for SQLite.
type SQLiteCredentialsRepository struct {
	db *sql.DB
}

// NewSQLiteCredentialsRepository creates a new SQLite credentials repository.
func NewSQLiteCredentialsRepository(db *sql.DB) *SQLiteCredentialsRepository {
	return &SQLiteCredentialsRepository{db: db}
}

const credentialsColumns = `id, user_id, platform, account_id, account_name, access_token_enc, refresh_token_enc,
	token_type, scopes, expires_at, created_at, updated_at`

func (r *SQLiteCredentialsRepository) Upsert(ctx context.Context, creds *models.PlatformCredentials) error {
	query := `INSERT INTO platform_credentials (id, user_id, platform, account_id, account_name, access_token_enc,
		refresh_token_enc, token_type, scopes, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, platform, account_id) DO UPDATE SET
			account_name = excluded.account_name,
			access_token_enc = excluded.access_token_enc,
			refresh_token_enc = excluded.refresh_token_enc,
			token_type = excluded.token_type,
			scopes = excluded.scopes,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`

	var expiresAt *string
	if creds.ExpiresAt != nil {
		s := creds.ExpiresAt.UTC().Format(time.RFC3339)
		expiresAt = &s
	}

	_, err := r.db.ExecContext(ctx, query,
		creds.ID, creds.UserID, creds.Platform, creds.AccountID, nullString(creds.AccountName),
		creds.AccessTokenEnc, nullString(creds.RefreshTokenEnc), nullString(creds.TokenType),
		nullString(creds.Scopes), expiresAt,
		creds.CreatedAt.UTC().Format(time.RFC3339), creds.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (r *SQLiteCredentialsRepository) GetByID(ctx context.Context, id string) (*models.PlatformCredentials, error) {
	query := `SELECT ` + credentialsColumns + ` FROM platform_credentials WHERE id = ?`
	return scanCredentials(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteCredentialsRepository) GetByUserID(ctx context.Context, userID string) ([]*models.PlatformCredentials, error) {
	query := `SELECT ` + credentialsColumns + ` FROM platform_credentials WHERE user_id = ? ORDER BY platform, account_id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var all []*models.PlatformCredentials
	for rows.Next() {
		creds, err := scanCredentialsRow(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, creds)
	}

	return all, rows.Err()
}

func (r *SQLiteCredentialsRepository) GetByUserAndPlatform(ctx context.Context, userID, platform string) (*models.PlatformCredentials, error) {
	query := `SELECT ` + credentialsColumns + ` FROM platform_credentials
		WHERE user_id = ? AND platform = ? ORDER BY updated_at DESC LIMIT 1`
	return scanCredentials(r.db.QueryRowContext(ctx, query, userID, platform))
}

func (r *SQLiteCredentialsRepository) UpdateTokens(ctx context.Context, id, accessTokenEnc, refreshTokenEnc string, expiresAt *time.Time) error {
	var expStr *string
	if expiresAt != nil {
		s := expiresAt.UTC().Format(time.RFC3339)
		expStr = &s
	}
	query := `UPDATE platform_credentials SET access_token_enc = ?, refresh_token_enc = ?, expires_at = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, accessTokenEnc, nullString(refreshTokenEnc), expStr,
		time.Now().UTC().Format(time.RFC3339), id)
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

func (r *SQLiteCredentialsRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM platform_credentials WHERE id = ?`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredentials(row *sql.Row) (*models.PlatformCredentials, error) {
	creds, err := scanCredentialsRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return creds, err
}

func scanCredentialsRow(row rowScanner) (*models.PlatformCredentials, error) {
	var creds models.PlatformCredentials
	var accountName, refreshToken, tokenType, scopes, expiresAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&creds.ID, &creds.UserID, &creds.Platform, &creds.AccountID, &accountName,
		&creds.AccessTokenEnc, &refreshToken, &tokenType, &scopes, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	creds.AccountName = accountName.String
	creds.RefreshTokenEnc = refreshToken.String
	creds.TokenType = tokenType.String
	creds.Scopes = scopes.String
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		creds.ExpiresAt = &t
	}
	creds.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	creds.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &creds, nil
}
