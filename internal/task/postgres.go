package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casatico/stayfly/internal/jsonx"
)

// PostgresStore implements Store against the `tasks` table (see
// internal/store/schema.sql), the production backend described in
// SPEC_FULL.md §5.14: "Durable work-queue backed by the same Postgres
// Store." Dequeue claims a row with SELECT ... FOR UPDATE SKIP LOCKED
// so multiple Runner workers (and multiple worker processes) can poll
// the same table without double-dispatching a task.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Enqueue is a no-op if a Task with the same (kind, idempotency_key)
// already exists, via the partial unique index on tasks(kind,
// idempotency_key).
func (s *PostgresStore) Enqueue(ctx context.Context, t *Task) error {
	payload, err := jsonx.Marshal(t.Payload)
	if err != nil {
		return fmt.Errorf("marshalling task payload: %w", err)
	}

	nextAttemptAt := t.NextAttemptAt
	if nextAttemptAt.IsZero() {
		nextAttemptAt = time.Now()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, kind, payload, status, idempotency_key, next_attempt_at, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, NULLIF($4, ''), $5, now(), now())
		ON CONFLICT (kind, idempotency_key) WHERE idempotency_key IS NOT NULL
		DO NOTHING
		RETURNING id, status, created_at, updated_at
	`, t.Kind, payload, StatusPending, t.IdempotencyKey, nextAttemptAt)

	var id string
	if err := row.Scan(&id, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// duplicate (kind, idempotency_key): already enqueued, treat as success
			return nil
		}
		return fmt.Errorf("enqueuing task: %w", err)
	}
	t.ID = id
	t.NextAttemptAt = nextAttemptAt
	return nil
}

// Dequeue claims the oldest pending Task of one of the given kinds
// whose next_attempt_at has elapsed, skipping rows already locked by
// another worker.
func (s *PostgresStore) Dequeue(ctx context.Context, kinds []Kind, now time.Time) (*Task, error) {
	kindStrs := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrs[i] = string(k)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning dequeue transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT id, kind, payload, status, attempts, coalesce(idempotency_key, ''),
			next_attempt_at, coalesce(last_error, ''), created_at, updated_at
		FROM tasks
		WHERE status = $1
		  AND (cardinality($2::text[]) = 0 OR kind = ANY($2))
		  AND next_attempt_at <= $3
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, StatusPending, kindStrs, now)

	var t Task
	var payload []byte
	if err := row.Scan(&t.ID, &t.Kind, &payload, &t.Status, &t.Attempts, &t.IdempotencyKey,
		&t.NextAttemptAt, &t.LastError, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeuing task: %w", err)
	}
	if len(payload) > 0 {
		if err := jsonx.Unmarshal(payload, &t.Payload); err != nil {
			return nil, fmt.Errorf("unmarshalling task payload: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE tasks SET status = $1, updated_at = now() WHERE id = $2`, StatusRunning, t.ID); err != nil {
		return nil, fmt.Errorf("claiming task: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing dequeue: %w", err)
	}
	t.Status = StatusRunning
	return &t, nil
}

func (s *PostgresStore) MarkSucceeded(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE tasks SET status = $1, updated_at = now() WHERE id = $2`, StatusSucceeded, id)
	if err != nil {
		return fmt.Errorf("marking task succeeded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks
		SET attempts = attempts + 1,
			last_error = $1,
			updated_at = now(),
			status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE $4 END,
			next_attempt_at = CASE WHEN attempts + 1 >= $2 THEN next_attempt_at ELSE $5 END
		WHERE id = $6
	`, errMsg, MaxAttempts, StatusFailed, StatusPending, nextAttemptAt, id)
	if err != nil {
		return fmt.Errorf("marking task failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
