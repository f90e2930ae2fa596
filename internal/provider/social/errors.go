package social

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// APIError is a posting-provider error with its HTTP status attached.
// RateLimitReset is only set on 429 responses that carry a reset
// header; zero means the provider gave no explicit reset time.
type APIError struct {
	StatusCode     int
	Message        string
	RateLimitReset time.Time
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// errorBody covers the two error envelopes the provider uses.
type errorBody struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// newAPIError builds an APIError from a non-2xx response. The body is
// read here so callers can defer-close without caring about drains.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(data) > 0 {
		var body errorBody
		if json.Unmarshal(data, &body) == nil {
			switch {
			case len(body.Errors) > 0 && body.Errors[0].Message != "":
				apiErr.Message = body.Errors[0].Message
			case body.Detail != "":
				apiErr.Message = body.Detail
			case body.Title != "":
				apiErr.Message = body.Title
			}
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RateLimitReset = parseRateLimitReset(resp.Header)
	}
	return apiErr
}

// parseRateLimitReset reads the provider's reset hint. The primary
// header is a unix timestamp; Retry-After (delta seconds) is the
// fallback some endpoints use instead.
func parseRateLimitReset(h http.Header) time.Time {
	if v := h.Get("x-rate-limit-reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(unix, 0)
		}
	}
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
	return time.Time{}
}
