package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
)

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// schedulerStore keeps task rows in scheduled_tasks and runs in task_results.
type schedulerStore struct {
	store *Store
}

const (
	taskColumns = "id, name, interval_seconds, last_run, next_run, last_error, last_success, enabled"
	runColumns  = "task_id, started_at, ended_at, success, error, detail"
)

func (s *schedulerStore) Task(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM scheduled_tasks WHERE id = ?", id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func (s *schedulerStore) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM scheduled_tasks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("%w: task needs an id", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled
	`, task.ID, task.Name, int64(task.Interval/time.Second),
		formatNullableTime(task.LastRun), formatNullableTime(task.NextRun),
		nullString(task.LastError), formatNullableTime(task.LastSuccess),
		boolToInt(task.Enabled))
	if err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}
	return nil
}

// RecordRun inserts the run and trims the task's history in one transaction.
// The task row must exist.
func (s *schedulerStore) RecordRun(ctx context.Context, run *domain.TaskResult, keep int) error {
	if run == nil || run.TaskID == "" {
		return fmt.Errorf("%w: run needs a task id", domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO task_results ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		run.TaskID, formatTime(run.StartedAt), formatTime(run.EndedAt),
		boolToInt(run.Success), nullString(run.Error), nullString(run.Detail)); err != nil {
		return fmt.Errorf("recording run of %s: %w", run.TaskID, err)
	}

	if keep > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM task_results
			WHERE task_id = ? AND id NOT IN (
				SELECT id FROM task_results
				WHERE task_id = ?
				ORDER BY started_at DESC, id DESC
				LIMIT ?
			)
		`, run.TaskID, run.TaskID, keep); err != nil {
			return fmt.Errorf("trimming history of %s: %w", run.TaskID, err)
		}
	}

	return tx.Commit()
}

func (s *schedulerStore) History(ctx context.Context, id string, limit int) ([]domain.TaskResult, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM task_results WHERE task_id = ? ORDER BY started_at DESC, id DESC LIMIT ?",
		id, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history of %s: %w", id, err)
	}
	defer rows.Close()

	var runs []domain.TaskResult
	for rows.Next() {
		var (
			run             domain.TaskResult
			started, ended  string
			success         int
			errText, detail sql.NullString
		)
		if err := rows.Scan(&run.TaskID, &started, &ended, &success, &errText, &detail); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.EndedAt = parseTime(ended)
		run.Success = success == 1
		run.Error = errText.String
		run.Detail = detail.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return runs, nil
}

func scanTask(row scanner) (*domain.ScheduledTask, error) {
	var (
		task                                   domain.ScheduledTask
		seconds                                int64
		lastRun, nextRun, lastErr, lastSuccess sql.NullString
		enabled                                int
	)

	err := row.Scan(&task.ID, &task.Name, &seconds, &lastRun, &nextRun, &lastErr, &lastSuccess, &enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	task.Interval = time.Duration(seconds) * time.Second
	task.LastRun = parseNullableTime(lastRun)
	task.NextRun = parseNullableTime(nextRun)
	task.LastError = lastErr.String
	task.LastSuccess = parseNullableTime(lastSuccess)
	task.Enabled = enabled == 1
	return &task, nil
}
