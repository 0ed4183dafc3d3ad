package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PropertyProvider provides the properties to fan the overdue scan out over
type PropertyProvider interface {
	GetAllActivePropertyIDs(ctx context.Context) ([]uuid.UUID, error)
}

// BillingTriggerConfig holds configuration for the billing trigger
type BillingTriggerConfig struct {
	// QRSweepInterval is how often to sweep for expired QR payment requests
	QRSweepInterval time.Duration

	// OverdueScanHour/Minute is the daily overdue scan time (24h format)
	OverdueScanHour   int
	OverdueScanMinute int

	// CheckInterval is how often to check whether the daily scan is due
	CheckInterval time.Duration
}

// DefaultBillingTriggerConfig returns default billing trigger configuration
func DefaultBillingTriggerConfig() BillingTriggerConfig {
	return BillingTriggerConfig{
		QRSweepInterval:   5 * time.Minute,
		OverdueScanHour:   2, // 2am, after the nightly audit window
		OverdueScanMinute: 0,
		CheckInterval:     time.Minute,
	}
}

// BillingTrigger drives the scheduler: it submits a QR expiry sweep on a
// fixed interval and fans an overdue scan out over all properties once a day.
type BillingTrigger struct {
	config           BillingTriggerConfig
	scheduler        *Scheduler
	propertyProvider PropertyProvider
	logger           *zap.Logger

	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
	isRunning    bool
	lastScanDate string // Track which date the overdue scan last ran for
}

// NewBillingTrigger creates a new billing trigger
func NewBillingTrigger(
	config BillingTriggerConfig,
	scheduler *Scheduler,
	propertyProvider PropertyProvider,
	logger *zap.Logger,
) *BillingTrigger {
	return &BillingTrigger{
		config:           config,
		scheduler:        scheduler,
		propertyProvider: propertyProvider,
		logger:           logger,
	}
}

// Start starts the billing trigger
func (b *BillingTrigger) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.isRunning {
		b.mu.Unlock()
		return nil
	}
	b.isRunning = true
	b.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.wg.Add(2)
	go b.sweepLoop(ctx)
	go b.scanLoop(ctx)

	b.logger.Info("Billing trigger started",
		zap.Duration("qr_sweep_interval", b.config.QRSweepInterval),
		zap.Int("overdue_scan_hour", b.config.OverdueScanHour),
		zap.Int("overdue_scan_minute", b.config.OverdueScanMinute),
	)

	return nil
}

// Stop stops the billing trigger
func (b *BillingTrigger) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.isRunning {
		b.mu.Unlock()
		return nil
	}
	b.isRunning = false
	b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Billing trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sweepLoop submits a QR expiry sweep on every tick
func (b *BillingTrigger) sweepLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.config.QRSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := b.scheduler.ScheduleQRExpirySweep(now); err != nil {
				b.logger.Error("Failed to submit QR expiry sweep", zap.Error(err))
			}
		}
	}
}

// scanLoop checks periodically whether the daily overdue scan is due
func (b *BillingTrigger) scanLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.checkAndTriggerScan(ctx)
		}
	}
}

// checkAndTriggerScan fires the overdue scan at the configured daily time
func (b *BillingTrigger) checkAndTriggerScan(ctx context.Context) {
	now := time.Now()
	currentDate := now.Format("2006-01-02")

	// Skip if we already ran today
	b.mu.Lock()
	if b.lastScanDate == currentDate {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	// Check if it's the right time
	if now.Hour() != b.config.OverdueScanHour || now.Minute() != b.config.OverdueScanMinute {
		return
	}

	b.mu.Lock()
	b.lastScanDate = currentDate
	b.mu.Unlock()

	b.logger.Info("Triggering daily overdue scan")
	b.triggerOverdueScan(ctx, now)
}

// triggerOverdueScan submits an overdue scan job for every active property
func (b *BillingTrigger) triggerOverdueScan(ctx context.Context, asOf time.Time) {
	propertyIDs, err := b.propertyProvider.GetAllActivePropertyIDs(ctx)
	if err != nil {
		b.logger.Error("Failed to get property IDs for overdue scan", zap.Error(err))
		return
	}

	b.logger.Info("Scheduling overdue scans",
		zap.Int("property_count", len(propertyIDs)),
	)

	for _, propertyID := range propertyIDs {
		if err := b.scheduler.ScheduleOverdueScan(propertyID, asOf); err != nil {
			b.logger.Error("Failed to schedule overdue scan for property",
				zap.String("property_id", propertyID.String()),
				zap.Error(err),
			)
		}
	}
}

// TriggerManualScan allows an operator to run the overdue scan on demand
func (b *BillingTrigger) TriggerManualScan(ctx context.Context, propertyID *uuid.UUID, asOf time.Time) error {
	if propertyID != nil {
		return b.scheduler.ScheduleOverdueScan(*propertyID, asOf)
	}

	propertyIDs, err := b.propertyProvider.GetAllActivePropertyIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range propertyIDs {
		if err := b.scheduler.ScheduleOverdueScan(id, asOf); err != nil {
			return err
		}
	}
	return nil
}
