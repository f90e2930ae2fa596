package credentials

import (
	"context"
	"errors"

	"github.com/haidv/outpost/internal/core/domain"
)

// Store persists per-account OAuth2 credentials. Implementations must
// replace both tokens atomically in SaveTokens.
type Store interface {
	// GetRefreshToken returns the stored refresh token for the
	// account, or "" when none is on record.
	GetRefreshToken(ctx context.Context, accountID string) (string, error)
	SaveTokens(ctx context.Context, accountID string, pair domain.TokenPair) error
}

// Exchanger trades a refresh token for a new token pair at the
// identity provider.
type Exchanger interface {
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (domain.TokenPair, error)
}

var (
	// ErrNoRefreshToken means the account has no stored refresh
	// credential; the user must re-authenticate.
	ErrNoRefreshToken = errors.New("no refresh token on record")

	// ErrRefreshFailed means the exchange itself was rejected.
	ErrRefreshFailed = errors.New("refresh token exchange failed")
)
