package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haidv/outpost/internal/core/domain"
)

// IdentityClient exchanges refresh tokens at the provider's OAuth2
// token endpoint.
type IdentityClient struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewIdentityClient creates an OAuth2 token-endpoint client.
func NewIdentityClient(cfg Config) *IdentityClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &IdentityClient{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ExchangeRefreshToken trades a refresh token for a new access+refresh
// pair. An invalid or revoked token surfaces as *APIError with the
// endpoint's status code.
func (c *IdentityClient) ExchangeRefreshToken(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)

	req, err := http.NewRequestWithContext(ctx, "POST", c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.clientSecret != "" {
		req.SetBasicAuth(c.clientID, c.clientSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.TokenPair{}, newAPIError(resp)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return domain.TokenPair{}, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return domain.TokenPair{}, fmt.Errorf("token response missing access_token")
	}
	return domain.TokenPair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}
