package api

import (
	"errors"
	"fmt"
)

// Error is a normalized API error. Domain flags reported by the backend
// (lockout, credential invalidity, gallery gating) are carried as fields so
// callers can branch without string matching.
type Error struct {
	// StatusCode is the HTTP status, 0 for transport-level failures.
	StatusCode int

	// Message is the backend-supplied error or message field.
	Message string

	// TokenInvalid is set only when the backend explicitly reported the
	// credential as invalid. Transport failures never set it; callers use
	// this distinction to decide whether to evict a stored credential.
	TokenInvalid bool

	// RequiresPassword and RequiresToken signal gallery access gating.
	// GalleryName names the gated gallery when the backend includes it.
	RequiresPassword bool
	RequiresToken    bool
	GalleryName      string

	// Locked, RetryAfter and RemainingAttempts carry admin login lockout
	// state. RemainingAttempts is -1 when the backend did not report one.
	Locked            bool
	RetryAfter        int
	RemainingAttempts int
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return "request failed"
}

// IsTokenInvalid reports whether err marks a confirmed-invalid credential.
func IsTokenInvalid(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.TokenInvalid
}

// AsError extracts the *Error from an error chain, or nil.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
