package driving

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// Scheduler runs background session tasks such as the heartbeat.
type Scheduler interface {
	// Start runs due tasks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop waits for running tasks and returns.
	Stop() error

	// Tasks returns every known task with its last outcome.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns up to limit runs of a task, newest first.
	History(ctx context.Context, id string, limit int) ([]domain.TaskResult, error)
}
