package billing

import (
	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const paymentAggregateType = "Payment"

// Payment event types
const (
	EventPaymentRecorded  = "billing.payment.recorded"
	EventPaymentCompleted = "billing.payment.completed"
	EventPaymentFailed    = "billing.payment.failed"
	EventRefundRecorded   = "billing.payment.refund_recorded"
)

// PaymentRecordedEvent is raised when a payment is created
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	BookingID     uuid.UUID       `json:"booking_id"`
	Kind          PaymentKind     `json:"kind"`
	Method        PaymentMethod   `json:"method"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
}

// NewPaymentRecordedEvent creates a PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentRecorded, paymentAggregateType, p.ID, p.PropertyID),
		PaymentNumber:   p.PaymentNumber,
		BookingID:       p.BookingID,
		Kind:            p.Kind,
		Method:          p.Method,
		Amount:          p.Amount,
		Currency:        string(p.Currency),
	}
}

// PaymentCompletedEvent is raised when a payment reaches completed status
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	BookingID     uuid.UUID       `json:"booking_id"`
	InvoiceID     *uuid.UUID      `json:"invoice_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewPaymentCompletedEvent creates a PaymentCompletedEvent
func NewPaymentCompletedEvent(p *Payment) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentCompleted, paymentAggregateType, p.ID, p.PropertyID),
		PaymentNumber:   p.PaymentNumber,
		BookingID:       p.BookingID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
	}
}

// PaymentFailedEvent is raised when a payment fails
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string `json:"payment_number"`
	Reason        string `json:"reason"`
}

// NewPaymentFailedEvent creates a PaymentFailedEvent
func NewPaymentFailedEvent(p *Payment) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentFailed, paymentAggregateType, p.ID, p.PropertyID),
		PaymentNumber:   p.PaymentNumber,
		Reason:          p.FailureReason,
	}
}

// RefundRecordedEvent is raised when a refund payment is created against an
// original payment
type RefundRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber     string          `json:"payment_number"`
	OriginalPaymentID uuid.UUID       `json:"original_payment_id"`
	Amount            decimal.Decimal `json:"amount"`
	Reason            string          `json:"reason"`
}

// NewRefundRecordedEvent creates a RefundRecordedEvent
func NewRefundRecordedEvent(refund, original *Payment) *RefundRecordedEvent {
	return &RefundRecordedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventRefundRecorded, paymentAggregateType, refund.ID, refund.PropertyID),
		PaymentNumber:     refund.PaymentNumber,
		OriginalPaymentID: original.ID,
		Amount:            refund.Amount,
		Reason:            refund.RefundReason,
	}
}
