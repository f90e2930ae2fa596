// Package credentials implements the OAuth2 refresh flow invoked when
// a write operation fails on an expired access token.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/haidv/outpost/internal/core/domain"
	"github.com/haidv/outpost/internal/metrics"
)

// refresh flow states, for logging.
const (
	stateRefreshPending = "refresh_pending"
	stateActive         = "active"
	stateFailed         = "failed"
)

// Coordinator runs the refresh state machine: Active → RefreshPending
// → Active (new pair persisted) or Failed (terminal for the attempt).
// Refreshes for the same account are collapsed through single-flight,
// so two concurrent callers hitting the same expired token perform one
// exchange and both see its result.
type Coordinator struct {
	store    Store
	identity Exchanger
	group    singleflight.Group
	log      *slog.Logger
}

// NewCoordinator creates a refresh coordinator.
func NewCoordinator(store Store, identity Exchanger, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{store: store, identity: identity, log: log}
}

// RefreshAndRetry refreshes the account's credentials and re-runs op
// exactly once with the new access token. The op's outcome, success or
// failure, is final: a second failure is never refreshed again, which
// is what prevents refresh loops. A refresh failure returns a
// non-retryable outcome instructing the user to re-authenticate.
func (c *Coordinator) RefreshAndRetry(
	ctx context.Context,
	accountID string,
	op func(ctx context.Context, accessToken string) domain.PublishOutcome,
) domain.PublishOutcome {
	c.log.Info("refreshing credentials", "account_id", accountID, "state", stateRefreshPending)

	accessToken, err := c.refresh(ctx, accountID)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failed").Inc()
		c.log.Warn("credential refresh failed",
			"account_id", accountID, "state", stateFailed, "error", err)
		return domain.PublishOutcome{
			Success:   false,
			Message:   refreshFailureMessage(err),
			Retryable: false,
		}
	}

	metrics.TokenRefreshTotal.WithLabelValues("refreshed").Inc()
	c.log.Info("credentials refreshed", "account_id", accountID, "state", stateActive)

	// One retry with the new token, no matter how it ends.
	return op(ctx, accessToken)
}

// refresh performs the exchange-and-persist step. Persistence happens
// before the caller's retry so a crash between the two leaves the
// stored credentials durably refreshed.
func (c *Coordinator) refresh(ctx context.Context, accountID string) (string, error) {
	v, err, _ := c.group.Do(accountID, func() (any, error) {
		refreshToken, err := c.store.GetRefreshToken(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("load refresh token: %w", err)
		}
		if refreshToken == "" {
			return nil, ErrNoRefreshToken
		}

		pair, err := c.identity.ExchangeRefreshToken(ctx, refreshToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}
		if pair.RefreshToken == "" {
			// Some providers omit an unchanged refresh token; keep
			// the old one so both fields are always written.
			pair.RefreshToken = refreshToken
		}

		if err := c.store.SaveTokens(ctx, accountID, pair); err != nil {
			return nil, fmt.Errorf("persist refreshed tokens: %w", err)
		}
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func refreshFailureMessage(err error) string {
	if errors.Is(err, ErrNoRefreshToken) {
		return "no stored credentials for this account, please re-authenticate"
	}
	return "credential refresh failed, please re-authenticate"
}
