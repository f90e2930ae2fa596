// Package social is a thin client for the posting provider's v2 API
// and its OAuth2 token endpoint. It does no retrying itself; errors
// surface as *APIError for the caller's classifier.
package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/haidv/outpost/internal/core/domain"
	"github.com/haidv/outpost/internal/metrics"
)

// Config holds posting-provider settings.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the posting provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a posting-provider client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type postBody struct {
	Text  string `json:"text"`
	Quote string `json:"quote_tweet_id,omitempty"`
	Reply *struct {
		InReplyTo string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
}

type postResponse struct {
	Data Posted `json:"data"`
}

// Post publishes a post on behalf of the given access token.
func (c *Client) Post(ctx context.Context, accessToken string, req PostRequest) (*Posted, error) {
	body := postBody{Text: req.Text, Quote: req.QuoteID}
	if req.ReplyToID != "" {
		body.Reply = &struct {
			InReplyTo string `json:"in_reply_to_tweet_id"`
		}{InReplyTo: req.ReplyToID}
	}
	if len(req.MediaIDs) > 0 {
		body.Media = &struct {
			MediaIDs []string `json:"media_ids"`
		}{MediaIDs: req.MediaIDs}
	}

	var out postResponse
	if err := c.do(ctx, "POST", "/2/tweets", accessToken, body, &out, "post"); err != nil {
		return nil, err
	}
	if out.Data.ID == "" {
		return nil, fmt.Errorf("post response missing id")
	}
	return &out.Data, nil
}

type engagementResponse struct {
	Data *struct {
		PublicMetrics *struct {
			Likes    int `json:"like_count"`
			Retweets int `json:"retweet_count"`
			Replies  int `json:"reply_count"`
			Quotes   int `json:"quote_count"`
		} `json:"public_metrics"`
		NonPublicMetrics *struct {
			Impressions int `json:"impression_count"`
			Reach       int `json:"user_profile_clicks"`
		} `json:"non_public_metrics"`
	} `json:"data"`
}

// FetchEngagement reads current engagement counts for a published
// post. A deleted or not-yet-indexed post returns (nil, nil).
func (c *Client) FetchEngagement(ctx context.Context, accessToken, id string) (*domain.EngagementSnapshot, error) {
	path := fmt.Sprintf("/2/tweets/%s?tweet.fields=public_metrics,non_public_metrics", id)

	var out engagementResponse
	err := c.do(ctx, "GET", path, accessToken, nil, &out, "fetch_engagement")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if out.Data == nil || out.Data.PublicMetrics == nil {
		return nil, nil
	}

	pm := out.Data.PublicMetrics
	var impressions, reach *int
	if npm := out.Data.NonPublicMetrics; npm != nil {
		impressions = &npm.Impressions
		reach = &npm.Reach
	}
	snap := domain.NewEngagementSnapshot(pm.Likes, pm.Retweets, pm.Replies, pm.Quotes, impressions, reach)
	return &snap, nil
}

// do runs one request against the provider API. Non-2xx responses
// become *APIError.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out any, op string) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ProviderLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("provider call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
