package errors

import (
	"errors"
	"fmt"
)

// ValidationError marks malformed caller input. Never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Msg)
	}
	return "validation failed: " + e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

// NewValidationError builds a ValidationError for a specific field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// PlanLimitError is a business-rule rejection carrying the numeric limit.
type PlanLimitError struct {
	Platform string
	Limit    int
}

func (e *PlanLimitError) Error() string {
	return fmt.Sprintf("plan allows at most %d connected %s accounts per brand", e.Limit, e.Platform)
}

func (e *PlanLimitError) Is(target error) bool { return target == ErrPlanLimitReached }

// PlatformError is the decoded error payload of a platform API response.
type PlatformError struct {
	Platform   string
	Operation  string
	StatusCode int
	Code       string
	Message    string
}

func (e *PlatformError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request rejected by platform"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s %s: %s (code %s, http %d)", e.Platform, e.Operation, msg, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %s (http %d)", e.Platform, e.Operation, msg, e.StatusCode)
}

// PublicationError wraps a platform failure during dispatch. Retryable
// failures (rate limits, transient media-processing states) are a distinct
// kind so the caller's retry/backoff layer can re-attempt; terminal
// failures propagate as plain errors.
type PublicationError struct {
	Err       error
	Retryable bool
	// Payload is the original platform error body, kept for the caller's
	// backoff policy and for logging.
	Payload *PlatformError
}

func (e *PublicationError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("retryable publication failure: %v", e.Err)
	}
	return fmt.Sprintf("publication failed: %v", e.Err)
}

func (e *PublicationError) Unwrap() error { return e.Err }

// NewRetryablePublicationError wraps a transient platform failure.
func NewRetryablePublicationError(err error, payload *PlatformError) *PublicationError {
	return &PublicationError{Err: err, Retryable: true, Payload: payload}
}

// NewTerminalPublicationError wraps a permanent platform failure.
func NewTerminalPublicationError(err error, payload *PlatformError) *PublicationError {
	return &PublicationError{Err: err, Retryable: false, Payload: payload}
}

// IsRetryablePublication reports whether err (anywhere in the chain) is a
// retryable publication failure.
func IsRetryablePublication(err error) bool {
	var pe *PublicationError
	return errors.As(err, &pe) && pe.Retryable
}
