package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService drives the invoice lifecycle: creation from deposit rules
// or caller-supplied items, cancellation, and reads.
type InvoiceService struct {
	invoiceRepo     billing.InvoiceRepository
	ruleRepo        billing.DepositRuleRepository
	folioRepo       billing.FolioRepository
	bookingReader   billing.BookingReader
	eventPublisher  shared.EventPublisher
	businessMetrics *telemetry.BusinessMetrics
	logger          *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	ruleRepo billing.DepositRuleRepository,
	folioRepo billing.FolioRepository,
	bookingReader billing.BookingReader,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo:    invoiceRepo,
		ruleRepo:       ruleRepo,
		folioRepo:      folioRepo,
		bookingReader:  bookingReader,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *InvoiceService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// CreateDepositInvoiceRequest carries the inputs for deposit invoicing.
// OverrideAmount is required when no deposit rule matches the booking.
type CreateDepositInvoiceRequest struct {
	PropertyID     uuid.UUID
	BookingID      uuid.UUID
	OverrideAmount *decimal.Decimal
	DueDate        *time.Time
	CreatedBy      *uuid.UUID
}

// CreateDepositInvoice evaluates the deposit rules for the booking and
// issues a single-item deposit invoice. When no rule matches, the explicit
// override amount is used; without one the call fails.
func (s *InvoiceService) CreateDepositInvoice(ctx context.Context, req CreateDepositInvoiceRequest) (*billing.Invoice, error) {
	booking, err := s.bookingReader.FindByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Booking not found")
	}

	if err := s.ensureFolioAcceptsCharges(ctx, req.PropertyID, req.BookingID); err != nil {
		return nil, err
	}

	amount, ruleName, err := s.resolveDepositAmount(ctx, req, booking)
	if err != nil {
		return nil, err
	}

	number, err := s.invoiceRepo.GenerateInvoiceNumber(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	description := "Booking deposit"
	if ruleName != "" {
		description = "Booking deposit (" + ruleName + ")"
	}
	items := []billing.InvoiceItem{{
		Type:        billing.InvoiceItemTypeCustom,
		Description: description,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   amount.Amount(),
	}}

	invoice, err := billing.NewInvoice(
		req.PropertyID, number, req.BookingID, booking.CustomerID,
		billing.InvoiceKindDeposit, amount.Currency(), items,
		decimal.Zero, decimal.Zero, valueobject.Zero(amount.Currency()),
		time.Now(), req.DueDate,
	)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		invoice.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("Deposit invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("booking_id", req.BookingID.String()),
		zap.String("amount", amount.String()))

	if s.businessMetrics != nil {
		s.businessMetrics.RecordInvoiceWithAmount(ctx, req.PropertyID, string(invoice.Kind), invoice.TotalAmount)
	}

	s.publishEvents(ctx, invoice)

	return invoice, nil
}

func (s *InvoiceService) resolveDepositAmount(
	ctx context.Context,
	req CreateDepositInvoiceRequest,
	booking *billing.Booking,
) (valueobject.Money, string, error) {
	rules, err := s.ruleRepo.FindActiveForProperty(ctx, req.PropertyID)
	if err != nil {
		return valueobject.Money{}, "", err
	}

	rule, err := billing.SelectDepositRule(rules, booking)
	if err != nil {
		if !errors.Is(err, billing.ErrNoApplicableDepositRule) {
			return valueobject.Money{}, "", err
		}
		if req.OverrideAmount == nil {
			return valueobject.Money{}, "", billing.ErrNoApplicableDepositRule
		}
		override, moneyErr := valueobject.NewMoney(*req.OverrideAmount, booking.TotalAmount.Currency())
		if moneyErr != nil {
			return valueobject.Money{}, "", moneyErr
		}
		if !override.IsPositive() {
			return valueobject.Money{}, "", billing.ErrInvalidAmount
		}
		return override.RoundMinor(), "", nil
	}

	amount, err := rule.Calculate(booking)
	if err != nil {
		return valueobject.Money{}, "", err
	}
	return amount, rule.Name, nil
}

// InvoiceItemInput is a caller-supplied line item
type InvoiceItemInput struct {
	Type            billing.InvoiceItemType `json:"type" binding:"required"`
	ReferenceID     *uuid.UUID              `json:"reference_id,omitempty"`
	Description     string                  `json:"description" binding:"required"`
	Quantity        decimal.Decimal         `json:"quantity" binding:"required"`
	UnitPrice       decimal.Decimal         `json:"unit_price" binding:"required"`
	DiscountPercent *decimal.Decimal        `json:"discount_percent,omitempty"`
	DiscountAmount  decimal.Decimal         `json:"discount_amount"`
	TaxRate         decimal.Decimal         `json:"tax_rate"`
}

// CreateInvoiceRequest carries the inputs for partial, final and additional
// invoicing from explicit line items
type CreateInvoiceRequest struct {
	PropertyID        uuid.UUID
	BookingID         uuid.UUID
	Kind              billing.InvoiceKind
	Currency          valueobject.Currency
	Items             []InvoiceItemInput
	ServiceChargeRate decimal.Decimal
	TaxRate           decimal.Decimal
	DiscountAmount    decimal.Decimal
	DueDate           *time.Time
	CreatedBy         *uuid.UUID
}

// CreatePartialInvoice creates an invoice from caller-supplied line items.
// The same path serves partial, final and additional invoices; the kind
// only classifies the document.
func (s *InvoiceService) CreatePartialInvoice(ctx context.Context, req CreateInvoiceRequest) (*billing.Invoice, error) {
	if len(req.Items) == 0 {
		return nil, billing.ErrEmptyInvoice
	}

	booking, err := s.bookingReader.FindByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Booking not found")
	}

	if err := s.ensureFolioAcceptsCharges(ctx, req.PropertyID, req.BookingID); err != nil {
		return nil, err
	}

	kind := req.Kind
	if kind == "" {
		kind = billing.InvoiceKindPartial
	}
	currency := req.Currency
	if currency == "" {
		currency = booking.TotalAmount.Currency()
	}

	items := make([]billing.InvoiceItem, len(req.Items))
	for i, in := range req.Items {
		items[i] = billing.InvoiceItem{
			Type:            in.Type,
			ReferenceID:     in.ReferenceID,
			Description:     in.Description,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			DiscountPercent: in.DiscountPercent,
			DiscountAmount:  in.DiscountAmount,
			TaxRate:         in.TaxRate,
		}
	}

	discount, err := valueobject.NewMoney(req.DiscountAmount, currency)
	if err != nil {
		return nil, err
	}

	number, err := s.invoiceRepo.GenerateInvoiceNumber(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	invoice, err := billing.NewInvoice(
		req.PropertyID, number, req.BookingID, booking.CustomerID,
		kind, currency, items,
		req.ServiceChargeRate, req.TaxRate, discount,
		time.Now(), req.DueDate,
	)
	if err != nil {
		return nil, err
	}
	if req.CreatedBy != nil {
		invoice.SetCreatedBy(*req.CreatedBy)
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("Invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("kind", string(kind)),
		zap.String("booking_id", req.BookingID.String()))

	if s.businessMetrics != nil {
		s.businessMetrics.RecordInvoiceWithAmount(ctx, req.PropertyID, string(invoice.Kind), invoice.TotalAmount)
	}

	s.publishEvents(ctx, invoice)

	return invoice, nil
}

// CancelInvoice cancels an unpaid invoice. Retries internally on
// optimistic-lock conflicts.
func (s *InvoiceService) CancelInvoice(ctx context.Context, propertyID, invoiceID uuid.UUID, reason string) (*billing.Invoice, error) {
	var invoice *billing.Invoice

	err := withConflictRetry(ctx, func(ctx context.Context) error {
		var err error
		invoice, err = s.invoiceRepo.FindByIDForProperty(ctx, propertyID, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}
		if err := invoice.Cancel(reason); err != nil {
			return err
		}
		return s.invoiceRepo.SaveWithLock(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice cancelled",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("reason", reason))

	s.publishEvents(ctx, invoice)

	return invoice, nil
}

// GetInvoice returns an invoice by id
func (s *InvoiceService) GetInvoice(ctx context.Context, propertyID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForProperty(ctx, propertyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return invoice, nil
}

// ListInvoices lists invoices for a property with filtering
func (s *InvoiceService) ListInvoices(ctx context.Context, propertyID uuid.UUID, filter billing.InvoiceFilter) ([]*billing.Invoice, int64, error) {
	invoices, err := s.invoiceRepo.FindAllForProperty(ctx, propertyID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.CountForProperty(ctx, propertyID, filter)
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// ensureFolioAcceptsCharges blocks new charges on a closed folio. Bookings
// without a folio yet are unrestricted.
func (s *InvoiceService) ensureFolioAcceptsCharges(ctx context.Context, propertyID, bookingID uuid.UUID) error {
	folio, err := s.folioRepo.FindByBooking(ctx, propertyID, bookingID)
	if err != nil {
		return err
	}
	if folio == nil {
		return nil
	}
	return folio.CanAcceptCharge()
}

func (s *InvoiceService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	publishAggregateEvents(ctx, s.eventPublisher, s.logger, aggregate)
}
