package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
)

var _ driven.SchedulerStore = (*SchedulerStore)(nil)

// SchedulerStore keeps the schedule for the life of the process. It backs
// the redis and memory session stores, which have no task tables.
type SchedulerStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.ScheduledTask
	runs  map[string][]domain.TaskResult // oldest first
}

// NewSchedulerStore creates an empty store.
func NewSchedulerStore() *SchedulerStore {
	return &SchedulerStore{
		tasks: make(map[string]domain.ScheduledTask),
		runs:  make(map[string][]domain.TaskResult),
	}
}

func (s *SchedulerStore) Task(_ context.Context, id string) (*domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

func (s *SchedulerStore) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]domain.ScheduledTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	slices.SortFunc(tasks, func(a, b domain.ScheduledTask) int { return strings.Compare(a.ID, b.ID) })
	return tasks, nil
}

func (s *SchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("%w: task needs an id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

// RecordRun mirrors the sqlite store: the task must have been saved first.
func (s *SchedulerStore) RecordRun(_ context.Context, run *domain.TaskResult, keep int) error {
	if run == nil || run.TaskID == "" {
		return fmt.Errorf("%w: run needs a task id", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[run.TaskID]; !ok {
		return fmt.Errorf("%w: task %s", domain.ErrNotFound, run.TaskID)
	}

	runs := append(s.runs[run.TaskID], *run)
	if keep > 0 && len(runs) > keep {
		runs = slices.Clone(runs[len(runs)-keep:])
	}
	s.runs[run.TaskID] = runs
	return nil
}

func (s *SchedulerStore) History(_ context.Context, id string, limit int) ([]domain.TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := s.runs[id]
	out := make([]domain.TaskResult, 0, min(max(limit, 0), len(runs)))
	for i := len(runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, runs[i])
	}
	return out, nil
}
