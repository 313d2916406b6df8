package task

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner draws Tasks from a Store and dispatches them to registered
// Handlers, bounding worker concurrency with golang.org/x/sync/errgroup
// the way the rest of the codebase's concurrency-limited loops do.
type Runner struct {
	Store        Store
	Handlers     map[Kind]Handler
	Logger       *zap.Logger
	Concurrency  int
	PollInterval time.Duration
}

func NewRunner(store Store, logger *zap.Logger, concurrency int) *Runner {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Runner{
		Store:        store,
		Handlers:     make(map[Kind]Handler),
		Logger:       logger,
		Concurrency:  concurrency,
		PollInterval: time.Second,
	}
}

func (r *Runner) Register(kind Kind, h Handler) {
	r.Handlers[kind] = h
}

func (r *Runner) kinds() []Kind {
	kinds := make([]Kind, 0, len(r.Handlers))
	for k := range r.Handlers {
		kinds = append(kinds, k)
	}
	return kinds
}

// Run drains the queue with Concurrency worker goroutines until ctx is
// canceled.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.Concurrency; i++ {
		g.Go(func() error {
			return r.worker(ctx)
		})
	}
	return g.Wait()
}

func (r *Runner) worker(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.processOne(ctx); err != nil && r.Logger != nil {
				r.Logger.Warn("task processing error", zap.Error(err))
			}
		}
	}
}

func (r *Runner) pollInterval() time.Duration {
	if r.PollInterval <= 0 {
		return time.Second
	}
	return r.PollInterval
}

func (r *Runner) processOne(ctx context.Context) error {
	t, err := r.Store.Dequeue(ctx, r.kinds(), time.Now())
	if err != nil {
		return fmt.Errorf("dequeue: %w", err)
	}
	if t == nil {
		return nil
	}

	handler, ok := r.Handlers[t.Kind]
	if !ok {
		return r.Store.MarkFailed(ctx, t.ID, fmt.Sprintf("no handler registered for kind %q", t.Kind), time.Now())
	}

	if err := handler(ctx, t); err != nil {
		nextAttempt := time.Now().Add(BackoffFor(t.Attempts + 1))
		return r.Store.MarkFailed(ctx, t.ID, err.Error(), nextAttempt)
	}
	return r.Store.MarkSucceeded(ctx, t.ID)
}
