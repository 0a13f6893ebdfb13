package domain

import "time"

// DefaultProfile is the profile used when none is selected.
const DefaultProfile = "default"

// Credential is the bearer/refresh pair held for one identity.
// AccessToken, RefreshToken and IssuedAt change together or not at all.
type Credential struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	IssuedAt     time.Time `json:"issuedAt"`

	// RefreshCount only grows. It is kept for diagnostics.
	RefreshCount int `json:"refreshCount"`

	// IsTemporaryExtension marks a degraded grant from the session extension strategy.
	IsTemporaryExtension bool `json:"isTemporaryExtension,omitempty"`
}

// IsZero reports whether no access token is held.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// Identity is the authenticated user.
type Identity struct {
	// UserID is returned by the remote service when OAuth completes.
	UserID string `json:"userId,omitempty"`

	// SessionID is generated locally once and kept across sign-ins.
	// It correlates diagnostic calls and is not a security boundary.
	SessionID string `json:"sessionId"`
}

// Session is the whole-object record persisted per profile.
// Stores read and write it in one piece.
type Session struct {
	Profile    string     `json:"profile"`
	Credential Credential `json:"credential"`
	Identity   Identity   `json:"identity"`

	SessionActive bool      `json:"sessionActive,omitempty"`
	LastHeartbeat time.Time `json:"lastHeartbeat,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Authenticated reports whether the record holds a credential and a user.
func (s *Session) Authenticated() bool {
	return s != nil && !s.Credential.IsZero() && s.Identity.UserID != ""
}

// Clone returns a copy that can be modified without touching s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// SessionState is the Session Manager's explicit state.
type SessionState int

const (
	// StateIdle means no recovery is in flight.
	StateIdle SessionState = iota

	// StateRefreshing means a recover chain is running.
	StateRefreshing

	// StateAwaitingInteractiveAuth means recovery was exhausted.
	// Only an interactive sign-in leaves this state.
	StateAwaitingInteractiveAuth
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	case StateAwaitingInteractiveAuth:
		return "awaiting_interactive_auth"
	default:
		return "unknown"
	}
}

// SessionStatus is a token-free view of a session for display.
type SessionStatus struct {
	Profile              string    `json:"profile"`
	State                string    `json:"state"`
	SignedIn             bool      `json:"signedIn"`
	UserID               string    `json:"userId,omitempty"`
	SessionID            string    `json:"sessionId,omitempty"`
	TokenUsable          bool      `json:"tokenUsable"`
	TokenExpiresAt       time.Time `json:"tokenExpiresAt,omitempty"`
	IssuedAt             time.Time `json:"issuedAt,omitempty"`
	RefreshCount         int       `json:"refreshCount"`
	IsTemporaryExtension bool      `json:"isTemporaryExtension"`
	LastHeartbeat        time.Time `json:"lastHeartbeat,omitempty"`
}
