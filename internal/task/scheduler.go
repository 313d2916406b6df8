package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler owns the periodic sweep from spec.md §4.14c: reprocessing
// the historical dataset through the extractor when prompts improve.
// It schedules no cache-expiry job; expired semantic-cache entries are
// dropped by the cache's own lookup. Built the
// way teradata-labs-loom's pkg/scheduler wraps robfig/cron/v3's engine
// with named, addable/removable jobs.
type Scheduler struct {
	cron   *cron.Cron
	store  Store
	logger *zap.Logger
}

func NewScheduler(store Store, logger *zap.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), store: store, logger: logger}
}

// ReprocessTarget names one record to re-run through the extractor,
// scoped to the tenant it belongs to (properties are tenant-owned, so
// the reprocess handler needs both ids to load and re-save it).
type ReprocessTarget struct {
	TenantID uuid.UUID
	RecordID uuid.UUID
}

// ScheduleReprocessSweep enqueues one KindReprocessRecord task per
// target on the given cron schedule.
func (s *Scheduler) ScheduleReprocessSweep(spec string, targets func(ctx context.Context) ([]ReprocessTarget, error)) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		ts, err := targets(ctx)
		if err != nil {
			s.logger.Warn("reprocess sweep: listing records failed", zap.Error(err))
			return
		}
		for _, target := range ts {
			idempotencyKey := target.TenantID.String() + "|" + target.RecordID.String()
			t := &Task{
				ID:   uuid.NewString(),
				Kind: KindReprocessRecord,
				Payload: map[string]any{
					"tenant_id": target.TenantID.String(),
					"record_id": target.RecordID.String(),
				},
				IdempotencyKey: idempotencyKey,
			}
			if err := s.store.Enqueue(ctx, t); err != nil {
				s.logger.Warn("reprocess sweep: enqueue failed", zap.String("record_id", target.RecordID.String()), zap.Error(err))
			}
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reprocess sweep: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}
