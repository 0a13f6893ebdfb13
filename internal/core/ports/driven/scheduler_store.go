package driven

import (
	"context"

	"github.com/custodia-labs/saai/internal/core/domain"
)

// SchedulerStore keeps background task state and run history so the
// schedule survives a restart of the relay.
type SchedulerStore interface {
	// Task returns nil and no error when id is unknown.
	Task(ctx context.Context, id string) (*domain.ScheduledTask, error)

	// Tasks returns every task ordered by ID.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask creates or replaces a task.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// RecordRun appends a run and trims that task's history to keep entries.
	RecordRun(ctx context.Context, run *domain.TaskResult, keep int) error

	// History returns up to limit runs of a task, newest first.
	History(ctx context.Context, id string, limit int) ([]domain.TaskResult, error)
}
