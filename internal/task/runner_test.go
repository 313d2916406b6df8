package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/task"
)

func TestRunnerProcessOneDispatchesToRegisteredHandler(t *testing.T) {
	store := task.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Enqueue(ctx, &task.Task{ID: "job-1", Kind: task.KindEmbedDocument}))

	runner := task.NewRunner(store, zap.NewNop(), 1)
	var handled *task.Task
	runner.Register(task.KindEmbedDocument, func(ctx context.Context, t *task.Task) error {
		handled = t
		return nil
	})

	require.NoError(t, runner.Run(processOneShotCtx(ctx, runner)))
	require.NotNil(t, handled)
	require.Equal(t, "job-1", handled.ID)
}

func TestRunnerMarksTaskFailedWhenNoHandlerRegistered(t *testing.T) {
	store := task.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Enqueue(ctx, &task.Task{ID: "orphan", Kind: task.KindIngestURL}))

	runner := task.NewRunner(store, zap.NewNop(), 1)
	require.NoError(t, runner.Run(processOneShotCtx(ctx, runner)))

	none, err := store.Dequeue(ctx, []task.Kind{task.KindIngestURL}, time.Now())
	require.NoError(t, err)
	require.Nil(t, none, "a task with no registered handler must be marked failed, not left pending forever")
}

func TestRunnerReschedulesOnHandlerError(t *testing.T) {
	store := task.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Enqueue(ctx, &task.Task{ID: "flaky", Kind: task.KindReprocessRecord}))

	runner := task.NewRunner(store, zap.NewNop(), 1)
	runner.Register(task.KindReprocessRecord, func(ctx context.Context, t *task.Task) error {
		return errors.New("transient failure")
	})

	require.NoError(t, runner.Run(processOneShotCtx(ctx, runner)))

	immediately, err := store.Dequeue(ctx, []task.Kind{task.KindReprocessRecord}, time.Now())
	require.NoError(t, err)
	require.Nil(t, immediately, "a failed task must wait out its backoff before being retried")

	later, err := store.Dequeue(ctx, []task.Kind{task.KindReprocessRecord}, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, later)
	require.Equal(t, 1, later.Attempts)
}

// processOneShotCtx runs the runner for a single poll tick then cancels
// it, since Runner.Run otherwise blocks until its context is canceled.
func processOneShotCtx(parent context.Context, runner *task.Runner) context.Context {
	ctx, cancel := context.WithCancel(parent)
	runner.PollInterval = time.Millisecond
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	return ctx
}
