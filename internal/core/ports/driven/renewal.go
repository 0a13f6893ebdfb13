package driven

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// RenewalClient talks to the remote endpoints that mint new access tokens.
type RenewalClient interface {
	// Grant runs one recovery strategy. It never retries internally.
	// A non-2xx answer matches domain.ErrGrantRejected, a response without
	// an accepted token field returns domain.ErrMissingToken, and transport
	// failures match domain.ErrNetwork or domain.ErrTimeout.
	Grant(ctx context.Context, kind domain.GrantKind, req domain.GrantRequest) (*domain.Grant, error)
}
