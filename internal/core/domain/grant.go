package domain

import "time"

// GrantKind identifies a recovery strategy on the remote service.
type GrantKind string

// Recovery strategies in the order they are tried.
const (
	// GrantRefresh presents the refresh token to the renewal endpoint.
	GrantRefresh GrantKind = "refresh_token"

	// GrantSilentReauth asks for a non-interactive OAuth grant.
	GrantSilentReauth GrantKind = "silent_refresh"

	// GrantSessionExtension extends the current token without new proof.
	GrantSessionExtension GrantKind = "session_extension"
)

// RecoveryOrder is the fixed order of the recover chain.
var RecoveryOrder = []GrantKind{GrantRefresh, GrantSilentReauth, GrantSessionExtension}

// String returns the grant type sent on the wire.
func (k GrantKind) String() string {
	return string(k)
}

// IsValid reports whether k is a known strategy.
func (k GrantKind) IsValid() bool {
	switch k {
	case GrantRefresh, GrantSilentReauth, GrantSessionExtension:
		return true
	default:
		return false
	}
}

// GrantRequest is what a strategy presents to the remote service.
type GrantRequest struct {
	UserID       string
	SessionID    string
	RefreshToken string

	// AccessToken is the current, possibly invalid, token.
	// Only the session extension strategy sends it.
	AccessToken string
}

// Grant is a successful response from a renewal endpoint.
type Grant struct {
	AccessToken string

	// RefreshToken is empty when the service did not rotate it.
	RefreshToken string

	// ExpiresIn is the advertised lifetime, zero when absent.
	ExpiresIn time.Duration
}

// HeartbeatRequest keeps the remote session warm.
type HeartbeatRequest struct {
	UserID    string
	SessionID string
	Source    string
}

// HeartbeatResult is the remote answer to a heartbeat.
type HeartbeatResult struct {
	Active bool

	// RefreshToken is set when the service rotated the refresh token.
	RefreshToken string
}
