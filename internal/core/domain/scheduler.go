package domain

import "time"

// Built-in background tasks.
const (
	TaskIDHeartbeat        = "heartbeat"
	TaskIDProactiveRefresh = "proactive_refresh"
)

// TaskNames are the display names of the built-in tasks.
var TaskNames = map[string]string{
	TaskIDHeartbeat:        "Session Heartbeat",
	TaskIDProactiveRefresh: "Proactive Refresh",
}

// ScheduledTask is the persisted schedule of one background task.
// Zero times mean "never".
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is empty after a successful run.
	LastError string
}

// IsDue reports whether the task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	return t.Enabled && (t.NextRun.IsZero() || !t.NextRun.After(now))
}

// Finish applies the outcome of a run and schedules the next one
// an interval after it ended.
func (t *ScheduledTask) Finish(run TaskResult) {
	t.LastRun = run.StartedAt
	t.NextRun = run.EndedAt.Add(t.Interval)
	if run.Success {
		t.LastError = ""
		t.LastSuccess = run.EndedAt
		return
	}
	t.LastError = run.Error
}

// TaskResult is one run of a task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// Detail is a short outcome note, e.g. "refresh token rotated".
	Detail string
}

// SchedulerConfig is the configured schedule.
type SchedulerConfig struct {
	// Enabled switches every task off when false.
	Enabled     bool
	TaskConfigs map[string]TaskConfig
}

// TaskConfig is the configured schedule of one task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the zero TaskConfig for unknown tasks.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig returns the built-in schedule.
// Refresh is reactive only; both tasks start disabled.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDHeartbeat:        {Interval: 10 * time.Minute},
			TaskIDProactiveRefresh: {Interval: 30 * time.Minute},
		},
	}
}
