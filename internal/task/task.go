// Package task implements the durable work-queue from spec.md §4.14:
// out-of-band embedding generation, batch URL ingestion, and
// historical-dataset reprocessing, with retried, idempotent workers.
package task

import (
	"context"
	"time"
)

// Kind identifies what a Task does; the Runner dispatches on this.
type Kind string

const (
	KindEmbedDocument   Kind = "embed_document"
	KindIngestURL       Kind = "ingest_url"
	KindReprocessRecord Kind = "reprocess_record"
)

// Status is a Task's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Task is one unit of durable work. IdempotencyKey is unique per Kind
// (spec.md §9: "workers identify work by (id, text_hash) so duplicate
// enqueue is safe") — for embedding jobs it's `(record_id, text_hash)`
// joined, per spec.md §4.14's literal requirement.
type Task struct {
	ID             string
	Kind           Kind
	Payload        map[string]any
	Status         Status
	Attempts       int
	IdempotencyKey string
	NextAttemptAt  time.Time
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MaxAttempts bounds retries before a Task is left in StatusFailed.
const MaxAttempts = 5

// BackoffFor returns the bounded exponential backoff delay before
// attempt N is retried (spec.md §4.14: "retried with bounded
// exponential backoff").
func BackoffFor(attempt int) time.Duration {
	const base = 2 * time.Second
	const ceiling = 5 * time.Minute
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= ceiling {
			return ceiling
		}
	}
	return d
}

// Store is the narrow persistence contract the Runner needs. A
// PostgresTaskStore backs production; MemoryTaskStore backs tests.
type Store interface {
	Enqueue(ctx context.Context, t *Task) error
	Dequeue(ctx context.Context, kinds []Kind, now time.Time) (*Task, error)
	MarkSucceeded(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, err string, nextAttemptAt time.Time) error
}

// Handler processes one Task's payload.
type Handler func(ctx context.Context, t *Task) error
