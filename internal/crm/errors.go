package crm

import (
	"errors"
	"fmt"
	"time"
)

// ErrLeadNotLinked is returned when a sync is requested for a lead that has no
// record id in the target CRM. Surfaced immediately, never retried.
var ErrLeadNotLinked = errors.New("lead has no record id in target CRM")

// AuthError means a token could not be obtained or refreshed for a system.
// Not retryable without fresh credentials.
type AuthError struct {
	System System
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.System, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError means a remote call failed and exhausted its retry budget.
type APIError struct {
	System     System
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.System, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.System, e.Message)
}

// RateLimitError carries a server-specified retry delay. The base client
// absorbs rate limiting internally, so this type does not normally escape to
// callers; it is part of the public taxonomy for completeness.
type RateLimitError struct {
	System     System
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited, retry after %s", e.System, e.RetryAfter)
}
