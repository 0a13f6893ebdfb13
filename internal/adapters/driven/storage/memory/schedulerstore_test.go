package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/saai/internal/core/domain"
)

func TestSchedulerStore_Tasks(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()

	task, err := store.Task(ctx, domain.TaskIDHeartbeat)
	require.NoError(t, err)
	assert.Nil(t, task)

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDProactiveRefresh, Interval: time.Hour}))
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDHeartbeat, Interval: time.Minute}))

	tasks, err := store.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, domain.TaskIDHeartbeat, tasks[0].ID)

	task, err = store.Task(ctx, domain.TaskIDHeartbeat)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, time.Minute, task.Interval)

	assert.ErrorIs(t, store.SaveTask(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveTask(ctx, &domain.ScheduledTask{}), domain.ErrInvalidInput)
}

func TestSchedulerStore_RecordRunTrimsHistory(t *testing.T) {
	store := NewSchedulerStore()
	ctx := context.Background()
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{ID: domain.TaskIDHeartbeat}))

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordRun(ctx, &domain.TaskResult{
			TaskID:    domain.TaskIDHeartbeat,
			StartedAt: time.Unix(int64(i), 0),
		}, 3))
	}

	history, err := store.History(ctx, domain.TaskIDHeartbeat, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(4), history[0].StartedAt.Unix(), "most recent first")

	history, err = store.History(ctx, domain.TaskIDHeartbeat, 10)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Equal(t, int64(2), history[2].StartedAt.Unix())
}

func TestSchedulerStore_RecordRun_UnknownTask(t *testing.T) {
	store := NewSchedulerStore()

	err := store.RecordRun(context.Background(), &domain.TaskResult{TaskID: "missing"}, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.RecordRun(context.Background(), nil, 10), domain.ErrInvalidInput)
}

func TestSchedulerStore_HistoryUnknownTask(t *testing.T) {
	history, err := NewSchedulerStore().History(context.Background(), "missing", 5)

	require.NoError(t, err)
	assert.Empty(t, history)
}
