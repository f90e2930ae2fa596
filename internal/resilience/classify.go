package resilience

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/lib/pq"
	"github.com/sashabaranov/go-openai"

	"github.com/haidv/outpost/internal/provider/social"
)

const (
	// postRateLimitWindow is the posting provider's documented limit
	// window, used when a 429 carries no explicit reset time.
	postRateLimitWindow = 900 * time.Second

	aiRetryAfterDefault = 60 * time.Second
	databaseRetryAfter  = 3 * time.Second
	networkRetryAfter   = 5 * time.Second
)

// Classify normalizes a raw provider error into an AppError. It is
// pure and total: any unrecognized shape maps to KindUnknown. An
// already-classified error passes through unchanged.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	if app, ok := As(err); ok {
		return app
	}

	var postErr *social.APIError
	if errors.As(err, &postErr) {
		return classifyPosting(postErr)
	}

	var aiErr *openai.APIError
	if errors.As(err, &aiErr) {
		return classifyAI(aiErr.HTTPStatusCode, aiErr.Message)
	}
	var aiReqErr *openai.RequestError
	if errors.As(err, &aiReqErr) && aiReqErr.HTTPStatusCode > 0 {
		return classifyAI(aiReqErr.HTTPStatusCode, aiReqErr.Error())
	}

	var pqErr *pq.Error
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, driver.ErrBadConn) || errors.As(err, &pqErr) {
		return &AppError{
			Kind:       KindDatabaseError,
			Message:    "datastore unavailable, please retry",
			Retryable:  true,
			RetryAfter: databaseRetryAfter,
			Details:    map[string]string{"hint": "use_local_fallback", "cause": err.Error()},
		}
	}

	if isNetworkError(err) {
		return &AppError{
			Kind:       KindNetworkError,
			Message:    "network error reaching provider, please retry",
			Retryable:  true,
			RetryAfter: networkRetryAfter,
			Details:    map[string]string{"cause": err.Error()},
		}
	}

	return &AppError{
		Kind:    KindUnknown,
		Message: err.Error(),
		Details: map[string]string{"cause": err.Error()},
	}
}

func classifyPosting(e *social.APIError) *AppError {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		retryAfter := postRateLimitWindow
		if !e.RateLimitReset.IsZero() {
			if until := time.Until(e.RateLimitReset); until > 0 {
				retryAfter = until
			}
		}
		return &AppError{
			Kind:       KindRateLimit,
			Message:    "rate limited by the posting provider, try again later",
			Retryable:  true,
			RetryAfter: retryAfter,
			StatusCode: e.StatusCode,
			Details:    map[string]string{"provider_message": e.Message},
		}
	case http.StatusUnauthorized:
		// Not blind-retryable: the credential refresh flow owns this.
		return &AppError{
			Kind:       KindAuthExpired,
			Message:    "access token expired",
			StatusCode: e.StatusCode,
			Details:    map[string]string{"hint": "refresh_required", "provider_message": e.Message},
		}
	case http.StatusForbidden:
		// Distinct from 401: refreshing credentials will not help.
		return &AppError{
			Kind:       KindAuthForbidden,
			Message:    "the posting provider rejected this action",
			StatusCode: e.StatusCode,
			Details:    map[string]string{"hint": "check_permissions", "provider_message": e.Message},
		}
	default:
		return &AppError{
			Kind:       KindUnknown,
			Message:    e.Message,
			StatusCode: e.StatusCode,
			Details:    map[string]string{"provider_message": e.Message},
		}
	}
}

func classifyAI(status int, message string) *AppError {
	switch status {
	case http.StatusTooManyRequests:
		return &AppError{
			Kind:       KindRateLimit,
			Message:    "rate limited by the AI provider, try again later",
			Retryable:  true,
			RetryAfter: aiRetryAfterDefault,
			StatusCode: status,
			Details:    map[string]string{"provider_message": message},
		}
	case http.StatusUnauthorized:
		return &AppError{
			Kind:       KindAuthError,
			Message:    "AI provider rejected the API key",
			StatusCode: status,
			Details:    map[string]string{"hint": "check_api_key", "provider_message": message},
		}
	default:
		return &AppError{
			Kind:       KindUnknown,
			Message:    message,
			StatusCode: status,
			Details:    map[string]string{"provider_message": message},
		}
	}
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
