package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPropertyProvider implements PropertyProvider for testing
type stubPropertyProvider struct {
	ids []uuid.UUID
	err error
}

func (p *stubPropertyProvider) GetAllActivePropertyIDs(context.Context) ([]uuid.UUID, error) {
	return p.ids, p.err
}

func TestDefaultBillingTriggerConfig(t *testing.T) {
	cfg := DefaultBillingTriggerConfig()

	assert.Equal(t, 5*time.Minute, cfg.QRSweepInterval)
	assert.Equal(t, 2, cfg.OverdueScanHour)
	assert.Equal(t, 0, cfg.OverdueScanMinute)
	assert.Equal(t, time.Minute, cfg.CheckInterval)
}

func TestBillingTrigger_StartStop(t *testing.T) {
	scheduler := NewScheduler(DefaultSchedulerConfig(), &mockJobExecutor{}, newTestLogger())
	trigger := NewBillingTrigger(DefaultBillingTriggerConfig(), scheduler, &stubPropertyProvider{}, newTestLogger())

	ctx := context.Background()

	require.NoError(t, trigger.Start(ctx))

	// Start again should be idempotent
	require.NoError(t, trigger.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(stopCtx))

	// Stop again should be idempotent
	require.NoError(t, trigger.Stop(stopCtx))
}

func TestBillingTrigger_TriggerManualScan_AllProperties(t *testing.T) {
	executor := &mockJobExecutor{}
	scheduler := NewScheduler(DefaultSchedulerConfig(), executor, newTestLogger())
	provider := &stubPropertyProvider{ids: []uuid.UUID{uuid.New(), uuid.New()}}
	trigger := NewBillingTrigger(DefaultBillingTriggerConfig(), scheduler, provider, newTestLogger())

	ctx := context.Background()
	require.NoError(t, scheduler.Start(ctx))

	require.NoError(t, trigger.TriggerManualScan(ctx, nil, time.Now()))

	// Wait for jobs to be processed
	time.Sleep(100 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(stopCtx))

	assert.Equal(t, int32(2), atomic.LoadInt32(&executor.execCount))
}

func TestBillingTrigger_TriggerManualScan_SingleProperty(t *testing.T) {
	executor := &mockJobExecutor{}
	scheduler := NewScheduler(DefaultSchedulerConfig(), executor, newTestLogger())
	trigger := NewBillingTrigger(DefaultBillingTriggerConfig(), scheduler, &stubPropertyProvider{}, newTestLogger())

	ctx := context.Background()
	require.NoError(t, scheduler.Start(ctx))

	propertyID := uuid.New()
	require.NoError(t, trigger.TriggerManualScan(ctx, &propertyID, time.Now()))

	time.Sleep(100 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, scheduler.Stop(stopCtx))

	assert.Equal(t, int32(1), atomic.LoadInt32(&executor.execCount))
}

func TestBillingTrigger_TriggerManualScan_NotRunning(t *testing.T) {
	scheduler := NewScheduler(DefaultSchedulerConfig(), &mockJobExecutor{}, newTestLogger())
	propertyID := uuid.New()
	trigger := NewBillingTrigger(DefaultBillingTriggerConfig(), scheduler, &stubPropertyProvider{}, newTestLogger())

	err := trigger.TriggerManualScan(context.Background(), &propertyID, time.Now())
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}
