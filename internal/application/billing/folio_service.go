package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"go.uber.org/zap"
)

// FolioService maintains per-booking folios and serves their statements.
// The statement is a pure projection over persisted invoices, payments and
// schedule entries; it never mutates anything.
type FolioService struct {
	folioRepo     billing.FolioRepository
	invoiceRepo   billing.InvoiceRepository
	paymentRepo   billing.PaymentRepository
	scheduleRepo  billing.ScheduleRepository
	bookingReader billing.BookingReader
	logger        *zap.Logger
}

// NewFolioService creates a new FolioService
func NewFolioService(
	folioRepo billing.FolioRepository,
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	scheduleRepo billing.ScheduleRepository,
	bookingReader billing.BookingReader,
	logger *zap.Logger,
) *FolioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FolioService{
		folioRepo:     folioRepo,
		invoiceRepo:   invoiceRepo,
		paymentRepo:   paymentRepo,
		scheduleRepo:  scheduleRepo,
		bookingReader: bookingReader,
		logger:        logger,
	}
}

// OpenFolio returns the booking's folio, creating it when none exists
func (s *FolioService) OpenFolio(ctx context.Context, propertyID, bookingID uuid.UUID) (*billing.Folio, error) {
	folio, err := s.folioRepo.FindByBooking(ctx, propertyID, bookingID)
	if err != nil {
		return nil, err
	}
	if folio != nil {
		return folio, nil
	}

	booking, err := s.bookingReader.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Booking not found")
	}

	number, err := s.folioRepo.GenerateFolioNumber(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	folio, err = billing.NewFolio(propertyID, number, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.folioRepo.Save(ctx, folio); err != nil {
		return nil, err
	}

	s.logger.Info("Folio opened",
		zap.String("folio_number", folio.FolioNumber),
		zap.String("booking_id", bookingID.String()))

	return folio, nil
}

// GetFolio computes the booking's statement: all invoices, payments and
// schedule entries with charge, credit and balance totals.
func (s *FolioService) GetFolio(ctx context.Context, propertyID, bookingID uuid.UUID) (*billing.FolioStatement, error) {
	folio, err := s.OpenFolio(ctx, propertyID, bookingID)
	if err != nil {
		return nil, err
	}
	return s.computeStatement(ctx, folio)
}

func (s *FolioService) computeStatement(ctx context.Context, folio *billing.Folio) (*billing.FolioStatement, error) {
	booking, err := s.bookingReader.FindByID(ctx, folio.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Booking not found")
	}

	invoices, err := s.invoiceRepo.FindByBooking(ctx, folio.PropertyID, folio.BookingID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindByBooking(ctx, folio.PropertyID, folio.BookingID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.scheduleRepo.FindByBooking(ctx, folio.PropertyID, folio.BookingID)
	if err != nil {
		return nil, err
	}

	return billing.ComputeStatement(folio, booking.TotalAmount.Currency(), invoices, payments, schedule)
}

// CloseFolio freezes the folio against new charges and payments. The
// balance must be zero; the check and the close run under the folio's
// optimistic lock, which serializes concurrent closes. A payment posted
// between the balance check and the save is not detected, since payments
// do not touch the folio row; that window is accepted and corrected by
// reopening the folio.
func (s *FolioService) CloseFolio(ctx context.Context, propertyID, bookingID uuid.UUID, closedBy uuid.UUID) (*billing.Folio, error) {
	var folio *billing.Folio

	err := withConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		folio, err = s.folioRepo.FindByBooking(ctx, propertyID, bookingID)
		if err != nil {
			return err
		}
		if folio == nil {
			return shared.NewDomainError("NOT_FOUND", "Folio not found")
		}

		stmt, err := s.computeStatement(ctx, folio)
		if err != nil {
			return err
		}
		if err := folio.Close(stmt.Balance, closedBy); err != nil {
			return err
		}
		return s.folioRepo.SaveWithLock(ctx, folio)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Folio closed",
		zap.String("folio_number", folio.FolioNumber),
		zap.String("closed_by", closedBy.String()))

	return folio, nil
}

// ReopenFolio unfreezes a closed folio. Authorization is the caller's
// concern; there is no balance precondition.
func (s *FolioService) ReopenFolio(ctx context.Context, propertyID, bookingID uuid.UUID, reopenedBy uuid.UUID) (*billing.Folio, error) {
	var folio *billing.Folio

	err := withConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		folio, err = s.folioRepo.FindByBooking(ctx, propertyID, bookingID)
		if err != nil {
			return err
		}
		if folio == nil {
			return shared.NewDomainError("NOT_FOUND", "Folio not found")
		}
		if err := folio.Reopen(reopenedBy); err != nil {
			return err
		}
		return s.folioRepo.SaveWithLock(ctx, folio)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Folio reopened",
		zap.String("folio_number", folio.FolioNumber),
		zap.String("reopened_by", reopenedBy.String()))

	return folio, nil
}
