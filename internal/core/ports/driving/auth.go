package driving

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// AuthService runs the interactive OAuth bootstrap.
type AuthService interface {
	// Connect signs the user in and commits the new session.
	// Failures are terminal: domain.ErrUserDeclined, domain.ErrNotPermitted,
	// domain.ErrProtocolViolation or domain.ErrOAuthFailed.
	Connect(ctx context.Context) (*domain.Session, error)
}
