package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService records payments and refunds against invoices and
// bookings. All mutations of an invoice's paid amount go through the
// invoice aggregate under optimistic locking, so concurrent postings on the
// same invoice serialize instead of interleaving.
type PaymentService struct {
	paymentRepo     billing.PaymentRepository
	invoiceRepo     billing.InvoiceRepository
	folioRepo       billing.FolioRepository
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo billing.PaymentRepository,
	invoiceRepo billing.InvoiceRepository,
	folioRepo billing.FolioRepository,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		paymentRepo:    paymentRepo,
		invoiceRepo:    invoiceRepo,
		folioRepo:      folioRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *PaymentService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// RecordPaymentRequest carries the inputs for payment recording
type RecordPaymentRequest struct {
	PropertyID      uuid.UUID
	BookingID       uuid.UUID
	InvoiceID       *uuid.UUID
	Kind            billing.PaymentKind
	Method          billing.PaymentMethod
	Amount          decimal.Decimal
	Currency        valueobject.Currency
	ReferenceNumber string
	Details         billing.PaymentDetails
	ReceivedBy      *uuid.UUID

	// AllowAdvance lets a payment exceeding the invoice balance absorb only
	// the balance and record the excess as booking-level advance credit.
	// Without it an overpayment is rejected.
	AllowAdvance bool
}

// RecordPaymentResult is the outcome of RecordPayment
type RecordPaymentResult struct {
	Payment        *billing.Payment
	AdvancePayment *billing.Payment // Booking-level credit for an absorbed excess, nil otherwise
	Invoice        *billing.Invoice // Updated invoice when the payment targeted one
}

// RecordPayment creates a completed payment and, when an invoice is named,
// applies it atomically to that invoice. Payments without an invoice are
// booking-level deposits reconciled to an invoice later.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, err := valueobject.NewMoney(req.Amount, currency)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, billing.ErrInvalidAmount
	}

	if err := s.ensureFolioAcceptsCharges(ctx, req.PropertyID, req.BookingID); err != nil {
		return nil, err
	}

	if req.InvoiceID == nil {
		payment, err := s.createCompletedPayment(ctx, req, amount, nil)
		if err != nil {
			return nil, err
		}
		return &RecordPaymentResult{Payment: payment}, nil
	}

	// Only the invoice mutation runs inside the retry loop. Payment rows
	// are written after the lock commit, so a lost race leaves none behind.
	var (
		invoice *billing.Invoice
		applied valueobject.Money
		advance valueobject.Money
	)
	err = withConflictRetry(ctx, func(ctx context.Context) error {
		inv, err := s.invoiceRepo.FindByIDForProperty(ctx, req.PropertyID, *req.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}
		if inv.BookingID != req.BookingID {
			return shared.NewDomainError("INVALID_INVOICE", "Invoice does not belong to the booking")
		}

		adv, err := inv.ApplyPayment(amount, req.AllowAdvance)
		if err != nil {
			return err
		}
		if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
			return err
		}

		invoice = inv
		advance = adv
		applied = amount.MustSubtract(adv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	payment, err := s.createCompletedPayment(ctx, req, applied, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	result := &RecordPaymentResult{Payment: payment, Invoice: invoice}

	if advance.IsPositive() {
		advReq := req
		advReq.InvoiceID = nil
		advPayment, err := s.createCompletedPayment(ctx, advReq, advance, nil)
		if err != nil {
			return nil, err
		}
		result.AdvancePayment = advPayment
	}

	s.logger.Info("Payment recorded",
		zap.String("payment_number", result.Payment.PaymentNumber),
		zap.String("booking_id", req.BookingID.String()),
		zap.String("amount", amount.String()))

	if s.businessMetrics != nil {
		s.businessMetrics.RecordPayment(ctx, req.PropertyID, string(result.Payment.Method), telemetry.PaymentOutcomeCompleted)
	}

	s.publishEvents(ctx, result.Payment)
	if result.Invoice != nil {
		s.publishEvents(ctx, result.Invoice)
	}
	if result.AdvancePayment != nil {
		s.publishEvents(ctx, result.AdvancePayment)
	}

	return result, nil
}

func (s *PaymentService) createCompletedPayment(
	ctx context.Context,
	req RecordPaymentRequest,
	amount valueobject.Money,
	invoiceID *uuid.UUID,
) (*billing.Payment, error) {
	number, err := s.paymentRepo.GeneratePaymentNumber(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	payment, err := billing.NewPayment(
		req.PropertyID, number, req.BookingID, invoiceID,
		req.Kind, req.Method, amount,
	)
	if err != nil {
		return nil, err
	}
	payment.ReferenceNumber = req.ReferenceNumber
	if req.Details != nil {
		payment.SetDetails(req.Details)
	}
	if err := payment.Complete(req.ReceivedBy); err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// RecordRefundRequest carries the inputs for refund recording
type RecordRefundRequest struct {
	PropertyID        uuid.UUID
	OriginalPaymentID uuid.UUID
	Amount            decimal.Decimal
	Reason            string
	ApprovedBy        uuid.UUID
}

// RecordRefund creates a refund payment against a completed original,
// enforcing the ceiling across all prior refunds, and reverts the refunded
// amount from the target invoice. Refunds are exempt from the folio freeze:
// a closed folio can still be corrected.
func (s *PaymentService) RecordRefund(ctx context.Context, req RecordRefundRequest) (*billing.Payment, error) {
	original, err := s.paymentRepo.FindByIDForProperty(ctx, req.PropertyID, req.OriginalPaymentID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Original payment not found")
	}

	priorSum, err := s.paymentRepo.SumRefundsOfPayment(ctx, original.ID)
	if err != nil {
		return nil, err
	}
	prior, err := valueobject.NewMoney(priorSum, original.Currency)
	if err != nil {
		return nil, err
	}
	amount, err := valueobject.NewMoney(req.Amount, original.Currency)
	if err != nil {
		return nil, err
	}

	number, err := s.paymentRepo.GeneratePaymentNumber(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	refund, err := billing.NewRefundPayment(
		req.PropertyID, number, original, amount, prior, req.Reason, req.ApprovedBy,
	)
	if err != nil {
		return nil, err
	}
	if err := refund.Complete(&req.ApprovedBy); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Save(ctx, refund); err != nil {
		return nil, err
	}

	// Reverting a fully paid invoice may move it back to partial.
	if original.InvoiceID != nil {
		err = withConflictRetry(ctx, func(ctx context.Context) error {
			invoice, err := s.invoiceRepo.FindByIDForProperty(ctx, req.PropertyID, *original.InvoiceID)
			if err != nil {
				return err
			}
			if invoice == nil {
				return shared.NewDomainError("NOT_FOUND", "Invoice not found")
			}
			if err := invoice.RevertPayment(amount); err != nil {
				return err
			}
			return s.invoiceRepo.SaveWithLock(ctx, invoice)
		})
		if err != nil {
			return nil, err
		}
	}

	// Once cumulative refunds reach the original amount, the original is
	// marked fully refunded.
	if prior.MustAdd(amount).Amount().Equal(original.Amount) {
		if err := original.MarkRefunded(); err == nil {
			if err := s.paymentRepo.SaveWithLock(ctx, original); err != nil {
				s.logger.Warn("Failed to mark original payment refunded",
					zap.String("payment_id", original.ID.String()),
					zap.Error(err))
			}
		}
	}

	s.logger.Info("Refund recorded",
		zap.String("payment_number", refund.PaymentNumber),
		zap.String("original_payment_id", original.ID.String()),
		zap.String("amount", amount.String()))

	s.publishEvents(ctx, refund)

	return refund, nil
}

// GetPayment returns a payment by id
func (s *PaymentService) GetPayment(ctx context.Context, propertyID, paymentID uuid.UUID) (*billing.Payment, error) {
	payment, err := s.paymentRepo.FindByIDForProperty(ctx, propertyID, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}
	return payment, nil
}

// ListPayments lists payments for a property with filtering
func (s *PaymentService) ListPayments(ctx context.Context, propertyID uuid.UUID, filter billing.PaymentFilter) ([]*billing.Payment, error) {
	return s.paymentRepo.FindAllForProperty(ctx, propertyID, filter)
}

func (s *PaymentService) ensureFolioAcceptsCharges(ctx context.Context, propertyID, bookingID uuid.UUID) error {
	folio, err := s.folioRepo.FindByBooking(ctx, propertyID, bookingID)
	if err != nil {
		return err
	}
	if folio == nil {
		return nil
	}
	return folio.CanAcceptCharge()
}

func (s *PaymentService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	publishAggregateEvents(ctx, s.eventPublisher, s.logger, aggregate)
}
