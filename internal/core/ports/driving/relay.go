package driving

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// RelayService sends authenticated calls to the business webhooks.
// Failures surface only as domain.ErrServiceUnavailable, optionally also
// matching domain.ErrReauthRequired.
type RelayService interface {
	// Send relays a request under the retry policy.
	Send(ctx context.Context, req domain.RelayRequest) (*domain.Reply, error)

	// Chat asks the assistant a question.
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.Reply, error)

	// Task sends a task-management payload.
	Task(ctx context.Context, payload map[string]any) (*domain.Reply, error)
}
