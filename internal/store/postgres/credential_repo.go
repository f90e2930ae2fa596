package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haidv/outpost/internal/core/domain"
)

// CredentialRepo implements credentials.Store using PostgreSQL.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new PostgreSQL credential repository.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// GetRefreshToken returns the stored refresh token for an account, or
// "" when the account has none on record.
func (r *CredentialRepo) GetRefreshToken(ctx context.Context, accountID string) (string, error) {
	var token sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT refresh_token FROM social_accounts WHERE account_id = $1`,
		accountID,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get refresh token: %w", err)
	}
	return token.String, nil
}

// GetAccessToken returns the account's current access token.
func (r *CredentialRepo) GetAccessToken(ctx context.Context, accountID string) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx,
		`SELECT access_token FROM social_accounts WHERE account_id = $1`,
		accountID,
	).Scan(&token)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	return token, nil
}

// Account identifies a connected social account and its owner.
type Account struct {
	AccountID string `db:"account_id"`
	UserID    string `db:"user_id"`
}

// ListAccounts returns every connected social account.
func (r *CredentialRepo) ListAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := r.db.SelectContext(ctx, &accounts,
		`SELECT account_id, user_id FROM social_accounts ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// SaveTokens replaces both tokens in one statement so the pair can
// never drift apart.
func (r *CredentialRepo) SaveTokens(ctx context.Context, accountID string, pair domain.TokenPair) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE social_accounts
		 SET access_token = $2, refresh_token = $3, updated_at = $4
		 WHERE account_id = $1`,
		accountID, pair.AccessToken, pair.RefreshToken, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no social account with id %s", accountID)
	}
	return nil
}
