package task_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casatico/stayfly/internal/task"
)

func TestScheduleReprocessSweepRejectsAnInvalidCronSpec(t *testing.T) {
	scheduler := task.NewScheduler(task.NewMemoryStore(), zap.NewNop())
	err := scheduler.ScheduleReprocessSweep("not a cron spec", func(ctx context.Context) ([]task.ReprocessTarget, error) {
		return nil, nil
	})
	require.Error(t, err)
}

func TestScheduleReprocessSweepAcceptsAValidCronSpec(t *testing.T) {
	scheduler := task.NewScheduler(task.NewMemoryStore(), zap.NewNop())
	err := scheduler.ScheduleReprocessSweep("0 3 * * *", func(ctx context.Context) ([]task.ReprocessTarget, error) {
		return []task.ReprocessTarget{{TenantID: uuid.New(), RecordID: uuid.New()}}, nil
	})
	require.NoError(t, err)
}
