package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"go.uber.org/zap"
)

// QRExpirer expires open QR payment requests past their deadline.
// Implemented by the QR reconciliation application service.
type QRExpirer interface {
	ExpirePending(ctx context.Context, asOf time.Time) (int, error)
}

// BillingJobExecutor runs the background billing jobs: the QR expiry
// sweep and the per-property overdue scan. Overdue is a derived state,
// so the scan only reports; nothing is written back to the invoices.
type BillingJobExecutor struct {
	qrExpirer    QRExpirer
	invoiceRepo  billing.InvoiceRepository
	scheduleRepo billing.ScheduleRepository
	logger       *zap.Logger
}

// NewBillingJobExecutor creates a new billing job executor
func NewBillingJobExecutor(
	qrExpirer QRExpirer,
	invoiceRepo billing.InvoiceRepository,
	scheduleRepo billing.ScheduleRepository,
	logger *zap.Logger,
) *BillingJobExecutor {
	return &BillingJobExecutor{
		qrExpirer:    qrExpirer,
		invoiceRepo:  invoiceRepo,
		scheduleRepo: scheduleRepo,
		logger:       logger,
	}
}

// Execute dispatches a job to its handler
func (e *BillingJobExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Type {
	case JobTypeQRExpirySweep:
		return e.runQRExpirySweep(ctx, job)
	case JobTypeOverdueScan:
		return e.runOverdueScan(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (e *BillingJobExecutor) runQRExpirySweep(ctx context.Context, job *Job) error {
	count, err := e.qrExpirer.ExpirePending(ctx, job.AsOf)
	if err != nil {
		return fmt.Errorf("qr expiry sweep: %w", err)
	}

	if count > 0 {
		e.logger.Info("QR expiry sweep completed",
			zap.String("job_id", job.ID.String()),
			zap.Int("expired", count),
		)
	}
	return nil
}

func (e *BillingJobExecutor) runOverdueScan(ctx context.Context, job *Job) error {
	if job.PropertyID == nil {
		return fmt.Errorf("overdue scan requires a property id")
	}
	propertyID := *job.PropertyID

	invoices, err := e.invoiceRepo.FindOverdue(ctx, propertyID, job.AsOf)
	if err != nil {
		return fmt.Errorf("overdue scan: invoices: %w", err)
	}

	for _, inv := range invoices {
		e.logger.Warn("Invoice overdue",
			zap.String("property_id", propertyID.String()),
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.String("balance_due", inv.BalanceDue().String()),
			zap.Timep("due_date", inv.DueDate),
		)
	}

	entries, err := e.scheduleRepo.FindDueBefore(ctx, propertyID, job.AsOf)
	if err != nil {
		return fmt.Errorf("overdue scan: schedule entries: %w", err)
	}

	for _, entry := range entries {
		e.logger.Warn("Schedule entry past due",
			zap.String("property_id", propertyID.String()),
			zap.String("booking_id", entry.BookingID.String()),
			zap.Int("schedule_number", entry.ScheduleNumber),
			zap.Time("due_date", entry.DueDate),
		)
	}

	e.logger.Info("Overdue scan completed",
		zap.String("job_id", job.ID.String()),
		zap.String("property_id", propertyID.String()),
		zap.Int("overdue_invoices", len(invoices)),
		zap.Int("overdue_schedule_entries", len(entries)),
	)
	return nil
}
