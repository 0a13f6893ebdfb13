package driving

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// SessionService owns the credential for one profile.
type SessionService interface {
	// Profile returns the profile this service manages.
	Profile() string

	// State returns the current session state.
	State() domain.SessionState

	// Current returns the stored session record.
	// Returns domain.ErrNotFound when the profile has never signed in.
	Current(ctx context.Context) (*domain.Session, error)

	// Status returns a token-free summary of the session.
	Status(ctx context.Context) (*domain.SessionStatus, error)

	// Refresh runs only the direct refresh strategy.
	Refresh(ctx context.Context) (*domain.Session, error)

	// Recover runs the full recovery chain, stopping at the first success.
	// When every strategy fails the error matches domain.ErrReauthRequired.
	Recover(ctx context.Context) (*domain.Session, error)

	// Adopt commits a freshly issued credential and identity.
	Adopt(ctx context.Context, session domain.Session) error

	// Disconnect clears the credential and user id.
	Disconnect(ctx context.Context) error

	// RecordHeartbeat stores the outcome of a heartbeat call.
	// A rotated refresh token replaces the stored one.
	RecordHeartbeat(ctx context.Context, result domain.HeartbeatResult) error
}
