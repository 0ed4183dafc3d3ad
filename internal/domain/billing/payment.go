package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PaymentKind is the single tagged classification of a payment. A refund is
// a kind of payment, not a flag on one; only refund payments carry the
// back-reference to the payment being refunded.
type PaymentKind string

const (
	PaymentKindDeposit PaymentKind = "DEPOSIT"
	PaymentKindPartial PaymentKind = "PARTIAL"
	PaymentKindFinal   PaymentKind = "FINAL"
	PaymentKindRefund  PaymentKind = "REFUND"
)

// IsValid checks if the kind is a valid PaymentKind
func (k PaymentKind) IsValid() bool {
	switch k {
	case PaymentKindDeposit, PaymentKindPartial, PaymentKindFinal, PaymentKindRefund:
		return true
	}
	return false
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodQRTransfer   PaymentMethod = "QR_TRANSFER"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCreditCard, PaymentMethodQRTransfer:
		return true
	}
	return false
}

// PaymentStatus represents the status of a payment. Terminal payments are
// immutable; corrections happen by appending an offsetting refund payment,
// never by editing history.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED" // Fully refunded original payment
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// IsTerminal returns true if the status allows no further transition other
// than completed→refunded
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// PaymentDetails is an opaque key-value payload per payment method (card
// last-four, bank name, terminal id). Core logic never branches on its
// content; it is stored as JSONB for audit and display.
type PaymentDetails map[string]any

// Value implements driver.Valuer interface for GORM to store as JSONB
func (d PaymentDetails) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (d *PaymentDetails) Scan(value interface{}) error {
	if value == nil {
		*d = PaymentDetails{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentDetails: unsupported type")
	}

	if len(bytes) == 0 {
		*d = PaymentDetails{}
		return nil
	}

	return json.Unmarshal(bytes, d)
}

// Payment is the aggregate root for a recorded payment or refund. It belongs
// to exactly one booking and optionally to one invoice.
type Payment struct {
	shared.PropertyAggregateRoot
	PaymentNumber   string               `json:"payment_number"`
	BookingID       uuid.UUID            `json:"booking_id"`
	InvoiceID       *uuid.UUID           `json:"invoice_id,omitempty"`
	Kind            PaymentKind          `json:"kind"`
	Method          PaymentMethod        `json:"method"`
	Amount          decimal.Decimal      `json:"amount"`
	Currency        valueobject.Currency `json:"currency"`
	Status          PaymentStatus        `json:"status"`
	ReferenceNumber string               `json:"reference_number,omitempty"`
	ReceivedBy      *uuid.UUID           `json:"received_by,omitempty"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
	FailureReason   string               `json:"failure_reason,omitempty"`
	Details         PaymentDetails       `json:"details,omitempty"`

	// Refund-only fields
	OriginalPaymentID *uuid.UUID `json:"original_payment_id,omitempty"`
	RefundReason      string     `json:"refund_reason,omitempty"`
	ApprovedBy        *uuid.UUID `json:"approved_by,omitempty"`
}

// NewPayment creates a new pending payment
func NewPayment(
	propertyID uuid.UUID,
	paymentNumber string,
	bookingID uuid.UUID,
	invoiceID *uuid.UUID,
	kind PaymentKind,
	method PaymentMethod,
	amount valueobject.Money,
) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if bookingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOOKING", "Booking ID cannot be empty")
	}
	if !kind.IsValid() || kind == PaymentKindRefund {
		return nil, shared.NewDomainError("INVALID_PAYMENT_KIND", "Payment kind is not valid; refunds go through NewRefundPayment")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	p := &Payment{
		PropertyAggregateRoot: shared.NewPropertyAggregateRoot(propertyID),
		PaymentNumber:         paymentNumber,
		BookingID:             bookingID,
		InvoiceID:             invoiceID,
		Kind:                  kind,
		Method:                method,
		Amount:                amount.RoundMinor().Amount(),
		Currency:              amount.Currency(),
		Status:                PaymentStatusPending,
		Details:               PaymentDetails{},
	}

	p.AddDomainEvent(NewPaymentRecordedEvent(p))

	return p, nil
}

// NewRefundPayment creates a refund against a completed original payment.
// priorRefunds is the sum of refunds already recorded against the original;
// the new refund must not push the total past the original amount.
func NewRefundPayment(
	propertyID uuid.UUID,
	paymentNumber string,
	original *Payment,
	amount valueobject.Money,
	priorRefunds valueobject.Money,
	reason string,
	approvedBy uuid.UUID,
) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if original == nil {
		return nil, shared.NewDomainError("INVALID_ORIGINAL_PAYMENT", "Original payment is required")
	}
	if original.Kind == PaymentKindRefund ||
		(original.Status != PaymentStatusCompleted && original.Status != PaymentStatusRefunded) {
		return nil, ErrRefundTargetNotRefundable
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if amount.Currency() != original.Currency {
		return nil, ErrCurrencyMismatch
	}
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_REASON", "Refund reason is required")
	}

	refunded, err := amount.Add(priorRefunds)
	if err != nil {
		return nil, ErrCurrencyMismatch
	}
	ceiling, _ := valueobject.NewMoney(original.Amount, original.Currency)
	if over, _ := refunded.GreaterThan(ceiling); over {
		return nil, ErrRefundExceedsOriginal
	}

	p := &Payment{
		PropertyAggregateRoot: shared.NewPropertyAggregateRoot(propertyID),
		PaymentNumber:         paymentNumber,
		BookingID:             original.BookingID,
		InvoiceID:             original.InvoiceID,
		Kind:                  PaymentKindRefund,
		Method:                original.Method,
		Amount:                amount.RoundMinor().Amount(),
		Currency:              amount.Currency(),
		Status:                PaymentStatusPending,
		Details:               PaymentDetails{},
		OriginalPaymentID:     &original.ID,
		RefundReason:          reason,
		ApprovedBy:            &approvedBy,
	}

	p.AddDomainEvent(NewRefundRecordedEvent(p, original))

	return p, nil
}

// IsRefund returns true if this payment is a refund
func (p *Payment) IsRefund() bool {
	return p.Kind == PaymentKindRefund
}

// GetAmountMoney returns the amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.Amount, p.Currency)
	return m
}

// MarkProcessing transitions pending→processing
func (p *Payment) MarkProcessing() error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot start processing payment in %s status", p.Status))
	}
	p.Status = PaymentStatusProcessing
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Complete transitions the payment to completed and stamps the receipt
// actor and time
func (p *Payment) Complete(receivedBy *uuid.UUID) error {
	if p.Status != PaymentStatusPending && p.Status != PaymentStatusProcessing {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot complete payment in %s status", p.Status))
	}
	now := time.Now()
	p.Status = PaymentStatusCompleted
	p.ReceivedBy = receivedBy
	p.PaidAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentCompletedEvent(p))

	return nil
}

// Fail transitions the payment to failed with a reason
func (p *Payment) Fail(reason string) error {
	if p.Status != PaymentStatusPending && p.Status != PaymentStatusProcessing {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot fail payment in %s status", p.Status))
	}
	p.Status = PaymentStatusFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentFailedEvent(p))

	return nil
}

// MarkRefunded marks a completed original payment as fully refunded. Called
// once, when cumulative refunds reach the original amount.
func (p *Payment) MarkRefunded() error {
	if p.IsRefund() {
		return ErrRefundTargetNotRefundable
	}
	if p.Status != PaymentStatusCompleted {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot mark payment refunded in %s status", p.Status))
	}
	p.Status = PaymentStatusRefunded
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// SetDetails attaches the method-specific opaque payload
func (p *Payment) SetDetails(details PaymentDetails) {
	if details == nil {
		details = PaymentDetails{}
	}
	p.Details = details
	p.UpdatedAt = time.Now()
}
