package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the connection and publication domain.
var (
	ErrInternal       = errors.New("internal error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrConflict       = errors.New("conflict")
	ErrForbidden      = errors.New("forbidden")

	// OAuth flow errors.
	ErrInvalidState        = errors.New("invalid oauth state token")
	ErrTokenExchange       = errors.New("token exchange failed")
	ErrIdentityFetch       = errors.New("identity fetch failed")
	ErrPlatformUnsupported = errors.New("platform not supported")

	// Tenancy and business-rule errors.
	ErrBrandNotFound    = errors.New("brand not found in workspace")
	ErrAccountNotFound  = errors.New("connected account not found")
	ErrPlanLimitReached = errors.New("plan account limit reached")

	// Pending-selection errors.
	ErrPendingNotFound  = errors.New("pending selection not found")
	ErrEmptySelection   = errors.New("no accounts selected")
	ErrPendingExpired   = errors.New("pending selection expired")
	ErrUnknownCandidate = errors.New("selected account is not a discovered candidate")

	// Publication errors.
	ErrMediaUnresolved    = errors.New("media reference could not be resolved")
	ErrVerificationFailed = errors.New("published content not found on verification")
	ErrNoValidItems       = errors.New("no valid items to publish")
)

// AppError carries a user-facing message, an HTTP status and an API code
// alongside the wrapped cause.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError builds an AppError wrapping err.
func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{Err: err, Message: message, StatusCode: statusCode, Code: code}
}

// IsNotFound reports whether err is any of the not-found family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrBrandNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrPendingNotFound)
}

// IsConflict reports whether err is a uniqueness/staleness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrConflict)
}

// IsBadRequest reports whether err stems from malformed caller input.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, ErrUnknownCandidate)
}
