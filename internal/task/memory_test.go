package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/casatico/stayfly/internal/task"
)

func TestEnqueueDedupesOnKindAndIdempotencyKey(t *testing.T) {
	store := task.NewMemoryStore()
	ctx := context.Background()

	first := &task.Task{ID: "t1", Kind: task.KindEmbedDocument, IdempotencyKey: "doc-1:hash-a"}
	require.NoError(t, store.Enqueue(ctx, first))

	second := &task.Task{ID: "t2", Kind: task.KindEmbedDocument, IdempotencyKey: "doc-1:hash-a"}
	require.NoError(t, store.Enqueue(ctx, second))

	claimed, err := store.Dequeue(ctx, []task.Kind{task.KindEmbedDocument}, time.Now())
	require.NoError(t, err)
	require.Equal(t, "t1", claimed.ID)

	none, err := store.Dequeue(ctx, []task.Kind{task.KindEmbedDocument}, time.Now())
	require.NoError(t, err)
	require.Nil(t, none, "the deduped second enqueue must not have created a second row")
}

func TestDequeueRespectsNextAttemptAtAndKindFilter(t *testing.T) {
	store := task.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	future := &task.Task{ID: "future", Kind: task.KindIngestURL, NextAttemptAt: now.Add(time.Hour)}
	require.NoError(t, store.Enqueue(ctx, future))

	wrongKind := &task.Task{ID: "wrong-kind", Kind: task.KindReprocessRecord}
	require.NoError(t, store.Enqueue(ctx, wrongKind))

	ready := &task.Task{ID: "ready", Kind: task.KindIngestURL}
	require.NoError(t, store.Enqueue(ctx, ready))

	claimed, err := store.Dequeue(ctx, []task.Kind{task.KindIngestURL}, now)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, "ready", claimed.ID)

	none, err := store.Dequeue(ctx, []task.Kind{task.KindIngestURL}, now)
	require.NoError(t, err)
	require.Nil(t, none, "the future-scheduled task must not be dequeued early")
}

func TestDequeueReturnsOldestPendingFirst(t *testing.T) {
	store := task.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	older := &task.Task{ID: "older", Kind: task.KindIngestURL}
	require.NoError(t, store.Enqueue(ctx, older))
	older.CreatedAt = now.Add(-time.Minute)

	newer := &task.Task{ID: "newer", Kind: task.KindIngestURL}
	require.NoError(t, store.Enqueue(ctx, newer))

	claimed, err := store.Dequeue(ctx, nil, now)
	require.NoError(t, err)
	require.Equal(t, "older", claimed.ID)
}

func TestMarkFailedReschedulesUntilMaxAttemptsThenFails(t *testing.T) {
	store := task.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Enqueue(ctx, &task.Task{ID: "retry-me", Kind: task.KindEmbedDocument}))
	claimed, err := store.Dequeue(ctx, []task.Kind{task.KindEmbedDocument}, now)
	require.NoError(t, err)

	for i := 1; i < task.MaxAttempts; i++ {
		require.NoError(t, store.MarkFailed(ctx, claimed.ID, "boom", now))
		claimed, err = store.Dequeue(ctx, []task.Kind{task.KindEmbedDocument}, now.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, claimed, "task must be retryable before MaxAttempts is reached")
	}

	require.NoError(t, store.MarkFailed(ctx, claimed.ID, "boom", now))
	none, err := store.Dequeue(ctx, []task.Kind{task.KindEmbedDocument}, now.Add(time.Hour))
	require.NoError(t, err)
	require.Nil(t, none, "a task that exhausted MaxAttempts must not be dequeued again")
}

func TestBackoffForGrowsExponentiallyAndCapsAtCeiling(t *testing.T) {
	require.Equal(t, 2*time.Second, task.BackoffFor(1))
	require.Equal(t, 4*time.Second, task.BackoffFor(2))
	require.Equal(t, 8*time.Second, task.BackoffFor(3))
	require.Equal(t, 5*time.Minute, task.BackoffFor(20), "backoff must not exceed the 5-minute ceiling")
}

func TestEmbeddingIdempotencyKeyIsStableForSameTextAndVariesByText(t *testing.T) {
	a := task.EmbeddingIdempotencyKey("doc-1", "hello world")
	b := task.EmbeddingIdempotencyKey("doc-1", "hello world")
	require.Equal(t, a, b)

	c := task.EmbeddingIdempotencyKey("doc-1", "hello mars")
	require.NotEqual(t, a, c)
}

func TestEnqueueEmbeddingJobIsIdempotentForSameDocumentAndText(t *testing.T) {
	store := task.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, task.EnqueueEmbeddingJob(ctx, store, "doc-1", "hello world"))
	require.NoError(t, task.EnqueueEmbeddingJob(ctx, store, "doc-1", "hello world"))

	first, err := store.Dequeue(ctx, []task.Kind{task.KindEmbedDocument}, time.Now())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := store.Dequeue(ctx, []task.Kind{task.KindEmbedDocument}, time.Now())
	require.NoError(t, err)
	require.Nil(t, second, "retrying an embedding job for the same (id, text_hash) must be a no-op")
}
