// Package resilience holds the normalized error taxonomy and the
// bounded-retry engine every external call goes through. Raw provider
// errors are classified exactly once at this boundary; everything
// above it works only with *AppError.
package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies a failure class. Retryability is a property of the
// class, not the call site.
type Kind string

const (
	KindRateLimit     Kind = "rate_limit"
	KindAuthExpired   Kind = "auth_expired"
	KindAuthForbidden Kind = "auth_forbidden"
	KindAuthError     Kind = "auth_error"
	KindDatabaseError Kind = "database_error"
	KindNetworkError  Kind = "network_error"
	KindUnknown       Kind = "unknown"
)

// AppError is the normalized, provider-agnostic error value produced
// by Classify. It is constructed once and never mutated.
type AppError struct {
	Kind       Kind
	Message    string
	Retryable  bool
	RetryAfter time.Duration // 0 = no provider hint
	StatusCode int           // 0 = no HTTP status
	Details    map[string]string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Hint returns the action hint attached by the classifier, if any.
func (e *AppError) Hint() string {
	return e.Details["hint"]
}

// As extracts an *AppError from an error chain. The second return is
// false when the chain carries no classified error.
func As(err error) (*AppError, bool) {
	var app *AppError
	if errors.As(err, &app) {
		return app, true
	}
	return nil, false
}
