package task

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and the single-binary
// dev mode; production uses PostgresStore against the same `tasks`
// table described in SPEC_FULL.md §5.14.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]*Task
	byKey map[string]string // (kind, idempotency_key) -> task id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]*Task),
		byKey: make(map[string]string),
	}
}

func dedupeKey(kind Kind, idempotencyKey string) string {
	return string(kind) + "|" + idempotencyKey
}

// Enqueue is a no-op if a Task with the same (kind, idempotency_key)
// already exists, satisfying spec.md §9's duplicate-enqueue-is-safe
// requirement.
func (m *MemoryStore) Enqueue(ctx context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.IdempotencyKey != "" {
		key := dedupeKey(t.Kind, t.IdempotencyKey)
		if _, exists := m.byKey[key]; exists {
			return nil
		}
		m.byKey[key] = t.ID
	}

	now := time.Now()
	t.Status = StatusPending
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.NextAttemptAt.IsZero() {
		t.NextAttemptAt = now
	}
	m.tasks[t.ID] = t
	return nil
}

// Dequeue returns the oldest pending Task of one of the given kinds
// whose NextAttemptAt has elapsed, marking it running.
func (m *MemoryStore) Dequeue(ctx context.Context, kinds []Kind, now time.Time) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	var best *Task
	for _, t := range m.tasks {
		if t.Status != StatusPending {
			continue
		}
		if len(wanted) > 0 && !wanted[t.Kind] {
			continue
		}
		if t.NextAttemptAt.After(now) {
			continue
		}
		if best == nil || t.CreatedAt.Before(best.CreatedAt) {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	best.Status = StatusRunning
	best.UpdatedAt = now
	return best, nil
}

func (m *MemoryStore) MarkSucceeded(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	t.Status = StatusSucceeded
	t.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) MarkFailed(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %s not found", id)
	}
	t.Attempts++
	t.LastError = errMsg
	t.UpdatedAt = time.Now()
	if t.Attempts >= MaxAttempts {
		t.Status = StatusFailed
		return nil
	}
	t.Status = StatusPending
	t.NextAttemptAt = nextAttemptAt
	return nil
}

var _ Store = (*MemoryStore)(nil)
