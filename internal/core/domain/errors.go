package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// Transient Errors.
	// These are absorbed by the recovery chain and never shown to the user.

	// ErrNetwork indicates the remote service could not be reached.
	ErrNetwork = errors.New("network failure")

	// ErrTimeout indicates an outbound call exceeded its wall-clock bound.
	ErrTimeout = errors.New("request timed out")

	// ErrRateLimited indicates the remote service asked us to slow down.
	ErrRateLimited = errors.New("rate limited")

	// Session Errors.

	// ErrAuthRequired indicates no credential is held for the profile.
	ErrAuthRequired = errors.New("authentication required")

	// ErrMissingToken indicates a grant response carried none of the accepted token fields.
	ErrMissingToken = errors.New("grant response has no token")

	// ErrGrantRejected indicates a renewal endpoint answered with a non-2xx status.
	ErrGrantRejected = errors.New("grant rejected")

	// ErrReauthRequired indicates every recovery strategy failed.
	// The user must sign in again interactively.
	ErrReauthRequired = errors.New("session expired, please sign in again")

	// ErrServiceUnavailable is the only failure an outbound call surfaces.
	// The specific cause is logged, never shown.
	ErrServiceUnavailable = errors.New("service temporarily unavailable, please try again")

	// OAuth Errors.
	// All are terminal and never retried.

	// ErrProtocolViolation indicates a state mismatch or malformed provider response.
	ErrProtocolViolation = errors.New("authentication error")

	// ErrUserDeclined indicates the user cancelled or the provider denied access.
	ErrUserDeclined = errors.New("sign-in was cancelled")

	// ErrNotPermitted indicates the identity is not on the service allow-list.
	ErrNotPermitted = errors.New("this account is not permitted to use the service")

	// ErrOAuthFailed indicates any other identity-provider error.
	ErrOAuthFailed = errors.New("sign-in failed")
)

// WebhookError carries a non-2xx response from the remote service.
type WebhookError struct {
	Status int
	Body   string
}

func (e *WebhookError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("webhook returned %d: %s", e.Status, e.Body)
}

// Is lets a rejected grant match ErrGrantRejected.
func (e *WebhookError) Is(target error) bool {
	return target == ErrGrantRejected
}

// IsTransient reports whether err is a network or timeout failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}

// IsFatalAuth reports whether err ends the OAuth flow or the session.
func IsFatalAuth(err error) bool {
	return errors.Is(err, ErrReauthRequired) ||
		errors.Is(err, ErrProtocolViolation) ||
		errors.Is(err, ErrUserDeclined) ||
		errors.Is(err, ErrNotPermitted) ||
		errors.Is(err, ErrOAuthFailed)
}

// UserMessage returns the copy shown to the end user for err.
// Only the distinct terminal outcomes get their own message.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrReauthRequired):
		return ErrReauthRequired.Error()
	case errors.Is(err, ErrNotPermitted):
		return ErrNotPermitted.Error()
	case errors.Is(err, ErrUserDeclined):
		return ErrUserDeclined.Error()
	case errors.Is(err, ErrProtocolViolation):
		return ErrProtocolViolation.Error()
	case errors.Is(err, ErrOAuthFailed):
		return ErrOAuthFailed.Error()
	case errors.Is(err, ErrAuthRequired):
		return "not signed in, run 'saai login'"
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	default:
		return ErrServiceUnavailable.Error()
	}
}
