package driven

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// BackendClient reaches the remote automation service outside of token renewal.
type BackendClient interface {
	// StartOAuth asks the service for PKCE parameters.
	// returnURL is where the service redirects once the provider answers.
	StartOAuth(ctx context.Context, returnURL string) (*domain.OAuthStart, error)

	// Post sends an authenticated call to a business endpoint.
	// Any HTTP status is returned as a response; only transport
	// failures are errors.
	Post(ctx context.Context, endpoint domain.Endpoint, accessToken string, payload any) (*domain.WebhookResponse, error)

	// Heartbeat keeps the remote session alive.
	Heartbeat(ctx context.Context, accessToken string, req domain.HeartbeatRequest) (*domain.HeartbeatResult, error)
}
