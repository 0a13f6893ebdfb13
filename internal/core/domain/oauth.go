package domain

import (
	"fmt"
	"strings"
)

// CodeChallengeS256 is the default PKCE challenge method.
const CodeChallengeS256 = "S256"

// ErrorCodeNotPermitted is the callback error_code for an allow-list rejection.
const ErrorCodeNotPermitted = "408"

// OAuthStart holds the PKCE parameters issued by the remote service.
type OAuthStart struct {
	State               string `json:"state"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
}

// Validate checks the start response is usable.
func (s *OAuthStart) Validate() error {
	if s == nil || s.State == "" || s.CodeChallenge == "" {
		return ErrProtocolViolation
	}
	return nil
}

// Method returns the challenge method, defaulting to S256.
func (s *OAuthStart) Method() string {
	if s.CodeChallengeMethod == "" {
		return CodeChallengeS256
	}
	return s.CodeChallengeMethod
}

// CallbackResult is what the remote service redirects back with.
type CallbackResult struct {
	JWTToken     string
	UserID       string
	RefreshToken string
	State        string

	Error            string
	ErrorDescription string
	ErrorCode        string
}

// ProviderError classifies a callback that carries an error.
// It returns nil when the callback has no error fields.
func (r *CallbackResult) ProviderError() error {
	if r.Error == "" && r.ErrorCode == "" {
		return nil
	}
	desc := r.ErrorDescription
	if desc == "" {
		desc = r.Error
	}
	switch {
	case r.ErrorCode == ErrorCodeNotPermitted:
		return wrapDesc(ErrNotPermitted, desc)
	case r.Error == "access_denied" || strings.Contains(strings.ToLower(r.Error), "cancel"):
		return wrapDesc(ErrUserDeclined, desc)
	default:
		return wrapDesc(ErrOAuthFailed, desc)
	}
}

func wrapDesc(err error, desc string) error {
	if desc == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, desc)
}
