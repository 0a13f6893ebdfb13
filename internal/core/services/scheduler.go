package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/saai/internal/core/domain"
	"github.com/custodia-labs/saai/internal/core/ports/driven"
	"github.com/custodia-labs/saai/internal/core/ports/driving"
	"github.com/custodia-labs/saai/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is how many results are kept per task.
const historyRetention = 100

// Scheduler runs the heartbeat and proactive refresh on their intervals.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	sessions driving.SessionService
	backend  driven.BackendClient
	tick     time.Duration
	now      func() time.Time

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	inFlight map[string]bool
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	sessions driving.SessionService,
	backend driven.BackendClient,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		sessions: sessions,
		backend:  backend,
		tick:     time.Minute,
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. It blocks until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		logger.Debug("scheduler: disabled")
	}
	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks writes the configured schedule for every built-in task.
// Disabled tasks are kept in the store so their history survives.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, id := range []string{domain.TaskIDHeartbeat, domain.TaskIDProactiveRefresh} {
		cfg := s.config.GetTaskConfig(id)
		cfg.Enabled = cfg.Enabled && s.config.Enabled
		if cfg.Interval <= 0 {
			continue
		}
		if err := s.ensureTask(ctx, id, domain.TaskNames[id], cfg); err != nil {
			return fmt.Errorf("task %s: %w", id, err)
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.Task(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  s.now().Add(cfg.Interval),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = s.now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			s.wg.Wait()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		if tasks[i].IsDue(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// runTask runs task in the background. A task still running from an
// earlier tick is skipped.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.mu.Lock()
	if s.inFlight[task.ID] {
		s.mu.Unlock()
		logger.Debug("scheduler: %s still running, skipping", task.ID)
		return
	}
	s.inFlight[task.ID] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, task.ID)
			s.mu.Unlock()
		}()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDHeartbeat:
			result.Detail, err = s.runHeartbeat(ctx)
		case domain.TaskIDProactiveRefresh:
			result.Detail, err = s.runProactiveRefresh(ctx)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = s.now()
		if err != nil {
			result.Error = err.Error()
			logger.Warn("scheduler: %s failed: %v", task.ID, err)
		} else {
			result.Success = true
			logger.Debug("scheduler: %s: %s", task.ID, result.Detail)
		}
		task.Finish(*result)

		if err := s.store.SaveTask(ctx, task); err != nil {
			logger.Warn("scheduler: failed to save task %s: %v", task.ID, err)
		}
		if err := s.store.RecordRun(ctx, result, historyRetention); err != nil {
			logger.Warn("scheduler: failed to record run of %s: %v", task.ID, err)
		}
	}()
}

// Tasks returns the stored schedule.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.store.Tasks(ctx)
}

// History returns up to limit runs of a task, newest first.
func (s *Scheduler) History(ctx context.Context, id string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}
	return s.store.History(ctx, id, limit)
}

// runHeartbeat reports the session as alive and stores the answer.
func (s *Scheduler) runHeartbeat(ctx context.Context) (string, error) {
	if s.sessions == nil || s.backend == nil {
		return "not configured", nil
	}

	sess, err := s.sessions.Current(ctx)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !sess.Authenticated()) {
		return "not signed in", nil
	}
	if err != nil {
		return "", err
	}

	result, err := s.backend.Heartbeat(ctx, sess.Credential.AccessToken, domain.HeartbeatRequest{
		UserID:    sess.Identity.UserID,
		SessionID: sess.Identity.SessionID,
		Source:    "scheduler",
	})
	if err != nil {
		return "", err
	}
	if err := s.sessions.RecordHeartbeat(ctx, *result); err != nil {
		return "", err
	}

	detail := "session inactive"
	if result.Active {
		detail = "session active"
	}
	if result.RefreshToken != "" {
		detail += ", refresh token rotated"
	}
	return detail, nil
}

// runProactiveRefresh recovers the session ahead of the next call
// when the stored token is already inside the expiry buffer.
func (s *Scheduler) runProactiveRefresh(ctx context.Context) (string, error) {
	if s.sessions == nil {
		return "not configured", nil
	}

	sess, err := s.sessions.Current(ctx)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !sess.Authenticated()) {
		return "not signed in", nil
	}
	if err != nil {
		return "", err
	}

	if IsUsable(sess.Credential.AccessToken, s.now()) {
		return "token still usable", nil
	}
	next, err := s.sessions.Recover(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("recovered, refresh #%d", next.Credential.RefreshCount), nil
}
