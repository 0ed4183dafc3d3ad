package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"go.uber.org/zap"
)

// ScheduleService generates and maintains per-booking payment schedules.
// Generation is serialized per booking by replacing non-terminal entries in
// one repository call, which keeps schedule numbers dense even when a
// request is double-submitted.
type ScheduleService struct {
	scheduleRepo  billing.ScheduleRepository
	invoiceRepo   billing.InvoiceRepository
	bookingReader billing.BookingReader
	logger        *zap.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	scheduleRepo billing.ScheduleRepository,
	invoiceRepo billing.InvoiceRepository,
	bookingReader billing.BookingReader,
	logger *zap.Logger,
) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		scheduleRepo:  scheduleRepo,
		invoiceRepo:   invoiceRepo,
		bookingReader: bookingReader,
		logger:        logger,
	}
}

// GenerateAuto produces and persists an automatic payment plan for the
// booking: deposit at booking time, evenly divided installments, and an
// optional final payment at checkout.
func (s *ScheduleService) GenerateAuto(ctx context.Context, bookingID uuid.UUID, cfg billing.AutoScheduleConfig) ([]*billing.ScheduleEntry, error) {
	booking, err := s.bookingReader.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Booking not found")
	}

	entries, err := billing.GenerateAutoSchedule(booking, cfg)
	if err != nil {
		return nil, err
	}

	if err := s.scheduleRepo.SaveAll(ctx, bookingID, entries); err != nil {
		return nil, err
	}

	s.logger.Info("Auto payment schedule generated",
		zap.String("booking_id", bookingID.String()),
		zap.Int("entries", len(entries)))

	return entries, nil
}

// GenerateCustom produces and persists a caller-defined payment plan whose
// percentages must cover the booking total.
func (s *ScheduleService) GenerateCustom(ctx context.Context, bookingID uuid.UUID, items []billing.CustomScheduleItem) ([]*billing.ScheduleEntry, error) {
	booking, err := s.bookingReader.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Booking not found")
	}

	entries, err := billing.GenerateCustomSchedule(booking, items)
	if err != nil {
		return nil, err
	}

	if err := s.scheduleRepo.SaveAll(ctx, bookingID, entries); err != nil {
		return nil, err
	}

	s.logger.Info("Custom payment schedule generated",
		zap.String("booking_id", bookingID.String()),
		zap.Int("entries", len(entries)))

	return entries, nil
}

// LinkInvoice binds an invoice to a schedule entry, moving the entry to
// invoiced. The invoice must exist and belong to the entry's booking.
func (s *ScheduleService) LinkInvoice(ctx context.Context, entryID, invoiceID uuid.UUID) (*billing.ScheduleEntry, error) {
	var entry *billing.ScheduleEntry

	err := withConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.scheduleRepo.FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return shared.NewDomainError("NOT_FOUND", "Schedule entry not found")
		}

		invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}
		if invoice.BookingID != entry.BookingID {
			return shared.NewDomainError("INVALID_INVOICE", "Invoice does not belong to the entry's booking")
		}

		if err := entry.LinkInvoice(invoiceID); err != nil {
			return err
		}
		return s.scheduleRepo.SaveWithLock(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// MarkPaid settles an invoiced schedule entry
func (s *ScheduleService) MarkPaid(ctx context.Context, entryID uuid.UUID) (*billing.ScheduleEntry, error) {
	var entry *billing.ScheduleEntry

	err := withConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.scheduleRepo.FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return shared.NewDomainError("NOT_FOUND", "Schedule entry not found")
		}
		if err := entry.MarkPaid(); err != nil {
			return err
		}
		return s.scheduleRepo.SaveWithLock(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// CancelEntry cancels a scheduled or invoiced entry
func (s *ScheduleService) CancelEntry(ctx context.Context, entryID uuid.UUID) (*billing.ScheduleEntry, error) {
	var entry *billing.ScheduleEntry

	err := withConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.scheduleRepo.FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return shared.NewDomainError("NOT_FOUND", "Schedule entry not found")
		}
		if err := entry.Cancel(); err != nil {
			return err
		}
		return s.scheduleRepo.SaveWithLock(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// GetSchedule returns the booking's schedule ordered by schedule number
func (s *ScheduleService) GetSchedule(ctx context.Context, propertyID, bookingID uuid.UUID) ([]*billing.ScheduleEntry, error) {
	return s.scheduleRepo.FindByBooking(ctx, propertyID, bookingID)
}
