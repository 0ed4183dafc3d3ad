package billing

import (
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const invoiceAggregateType = "Invoice"

// Invoice event types
const (
	EventInvoiceCreated       = "billing.invoice.created"
	EventInvoicePaid          = "billing.invoice.paid"
	EventInvoicePartiallyPaid = "billing.invoice.partially_paid"
	EventInvoiceCancelled     = "billing.invoice.cancelled"
	EventInvoiceRefunded      = "billing.invoice.refunded"
)

// InvoiceCreatedEvent is raised when a new invoice is issued
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	Kind          InvoiceKind     `json:"kind"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
}

// NewInvoiceCreatedEvent creates an InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCreated, invoiceAggregateType, inv.ID, inv.PropertyID),
		InvoiceNumber:   inv.InvoiceNumber,
		Kind:            inv.Kind,
		TotalAmount:     inv.TotalAmount,
		Currency:        string(inv.Currency),
	}
}

// InvoicePaidEvent is raised when an invoice reaches a zero balance
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewInvoicePaidEvent creates an InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoicePaid, invoiceAggregateType, inv.ID, inv.PropertyID),
		InvoiceNumber:   inv.InvoiceNumber,
		TotalAmount:     inv.TotalAmount,
	}
}

// InvoicePartiallyPaidEvent is raised when a payment leaves a balance
type InvoicePartiallyPaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

// NewInvoicePartiallyPaidEvent creates an InvoicePartiallyPaidEvent
func NewInvoicePartiallyPaidEvent(inv *Invoice, applied valueobject.Money) *InvoicePartiallyPaidEvent {
	return &InvoicePartiallyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoicePartiallyPaid, invoiceAggregateType, inv.ID, inv.PropertyID),
		InvoiceNumber:   inv.InvoiceNumber,
		AppliedAmount:   applied.Amount(),
		BalanceDue:      inv.BalanceDue().Amount(),
	}
}

// InvoiceCancelledEvent is raised when an unpaid invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
}

// NewInvoiceCancelledEvent creates an InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCancelled, invoiceAggregateType, inv.ID, inv.PropertyID),
		InvoiceNumber:   inv.InvoiceNumber,
		Reason:          inv.CancelReason,
	}
}

// InvoiceRefundedEvent is raised when an invoice is fully refunded
type InvoiceRefundedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
}

// NewInvoiceRefundedEvent creates an InvoiceRefundedEvent
func NewInvoiceRefundedEvent(inv *Invoice) *InvoiceRefundedEvent {
	return &InvoiceRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceRefunded, invoiceAggregateType, inv.ID, inv.PropertyID),
		InvoiceNumber:   inv.InvoiceNumber,
	}
}
