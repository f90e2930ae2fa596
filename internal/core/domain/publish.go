package domain

import "time"

// PublishOutcome is the single result of a publish attempt. It is
// produced once per attempt and never mutated; RetryAfter is only
// meaningful when Retryable is true.
type PublishOutcome struct {
	Success    bool          `json:"success"`
	ExternalID string        `json:"external_id,omitempty"`
	Message    string        `json:"message,omitempty"`
	Retryable  bool          `json:"retryable"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// RetryAfterSeconds returns the retry hint in whole seconds for
// callers that surface a "try again in N seconds" affordance.
func (o PublishOutcome) RetryAfterSeconds() int {
	return int(o.RetryAfter / time.Second)
}
