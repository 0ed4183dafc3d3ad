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

// InvoiceKind classifies how an invoice participates in the booking's
// payment plan
type InvoiceKind string

const (
	InvoiceKindDeposit    InvoiceKind = "DEPOSIT"    // Upfront deposit billed from a deposit rule
	InvoiceKindPartial    InvoiceKind = "PARTIAL"    // Interim billing of selected charges
	InvoiceKindFinal      InvoiceKind = "FINAL"      // Residual balance at checkout
	InvoiceKindAdditional InvoiceKind = "ADDITIONAL" // Post-checkout or ad hoc charges
)

// IsValid checks if the kind is a valid InvoiceKind
func (k InvoiceKind) IsValid() bool {
	switch k {
	case InvoiceKindDeposit, InvoiceKindPartial, InvoiceKindFinal, InvoiceKindAdditional:
		return true
	}
	return false
}

// String returns the string representation of InvoiceKind
func (k InvoiceKind) String() string {
	return string(k)
}

// InvoiceStatus represents the status of an invoice.
// OVERDUE is intentionally absent: it is derived from the due date and the
// outstanding balance at read time, never stored.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"   // Unpaid, balance = total
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"   // Partially paid, 0 < balance < total
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // Fully paid, balance = 0
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Cancelled before any payment (terminal)
	InvoiceStatusRefunded  InvoiceStatus = "REFUNDED"  // Fully refunded after payment (terminal)
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusPaid,
		InvoiceStatusCancelled, InvoiceStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state.
// Cancelled and refunded invoices are retained for audit but never mutate
// again.
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusCancelled || s == InvoiceStatusRefunded
}

// CanApplyPayment returns true if payments can be applied in this status
func (s InvoiceStatus) CanApplyPayment() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusPartial
}

// InvoiceItemType classifies a line item
type InvoiceItemType string

const (
	InvoiceItemTypeRoom    InvoiceItemType = "ROOM"
	InvoiceItemTypeService InvoiceItemType = "SERVICE"
	InvoiceItemTypeProduct InvoiceItemType = "PRODUCT"
	InvoiceItemTypeFee     InvoiceItemType = "FEE"
	InvoiceItemTypeCustom  InvoiceItemType = "CUSTOM"
)

// IsValid checks if the item type is valid
func (t InvoiceItemType) IsValid() bool {
	switch t {
	case InvoiceItemTypeRoom, InvoiceItemTypeService, InvoiceItemTypeProduct,
		InvoiceItemTypeFee, InvoiceItemTypeCustom:
		return true
	}
	return false
}

// InvoiceItem is a line item within the Invoice aggregate, stored as JSONB.
// SortOrder fixes the display order; insertion order assigns it.
// A discount is described either as a percentage or a fixed amount; the
// percentage is resolved to an amount at computation time.
type InvoiceItem struct {
	ID              uuid.UUID        `json:"id"`
	Type            InvoiceItemType  `json:"type"`
	ReferenceID     *uuid.UUID       `json:"reference_id,omitempty"` // Room, service or product the line refers to
	Description     string           `json:"description"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	DiscountPercent *decimal.Decimal `json:"discount_percent,omitempty"`
	DiscountAmount  decimal.Decimal  `json:"discount_amount"`
	TaxRate         decimal.Decimal  `json:"tax_rate"`
	SortOrder       int              `json:"sort_order"`
	LineTotal       decimal.Decimal  `json:"line_total"` // Computed once by ComputeLineTotal, never re-derived ad hoc
}

// InvoiceItems is a slice of InvoiceItem implementing GORM Scanner/Valuer
// for JSONB storage
type InvoiceItems []InvoiceItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (items InvoiceItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	return json.Marshal(items)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (items *InvoiceItems) Scan(value interface{}) error {
	if value == nil {
		*items = InvoiceItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan InvoiceItems: unsupported type")
	}

	if len(bytes) == 0 {
		*items = InvoiceItems{}
		return nil
	}

	return json.Unmarshal(bytes, items)
}

// ComputeLineTotal computes a line item's total in the given currency:
// quantity*unit_price - discount + tax, rounded once at the currency's
// minor-unit precision with banker's rounding. The function is pure and
// deterministic.
func ComputeLineTotal(item InvoiceItem, currency valueobject.Currency) (valueobject.Money, error) {
	if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
		return valueobject.Money{}, ErrInvalidAmount
	}
	if item.DiscountAmount.IsNegative() {
		return valueobject.Money{}, ErrInvalidAmount
	}
	if item.DiscountPercent != nil &&
		(item.DiscountPercent.IsNegative() || item.DiscountPercent.GreaterThan(decimal.NewFromInt(100))) {
		return valueobject.Money{}, ErrInvalidAmount
	}
	if item.TaxRate.IsNegative() {
		return valueobject.Money{}, ErrInvalidAmount
	}

	gross := item.Quantity.Mul(item.UnitPrice)

	discount := item.DiscountAmount
	if item.DiscountPercent != nil {
		discount = gross.Mul(*item.DiscountPercent).Div(decimal.NewFromInt(100))
	}
	if discount.GreaterThan(gross) {
		return valueobject.Money{}, ErrInvalidAmount
	}

	taxable := gross.Sub(discount)
	tax := taxable.Mul(item.TaxRate).Div(decimal.NewFromInt(100))

	total, err := valueobject.NewMoney(taxable.Add(tax), currency)
	if err != nil {
		return valueobject.Money{}, err
	}
	return total.RoundMinor(), nil
}

// InvoiceTotals is the result of ComputeInvoiceTotals
type InvoiceTotals struct {
	Subtotal      valueobject.Money
	Discount      valueobject.Money
	ServiceCharge valueobject.Money
	Tax           valueobject.Money
	Total         valueobject.Money
}

// ComputeInvoiceTotals sums line totals, subtracts the invoice-level
// discount, then applies the service charge and finally the tax on the
// service-charge-inclusive base. The order is fixed: applying tax before the
// service charge would change the taxable base.
func ComputeInvoiceTotals(
	items InvoiceItems,
	currency valueobject.Currency,
	serviceChargeRate decimal.Decimal,
	taxRate decimal.Decimal,
	discount valueobject.Money,
) (InvoiceTotals, error) {
	if len(items) == 0 {
		return InvoiceTotals{}, ErrEmptyInvoice
	}
	if serviceChargeRate.IsNegative() || taxRate.IsNegative() {
		return InvoiceTotals{}, ErrInvalidAmount
	}
	if discount.IsNegative() {
		return InvoiceTotals{}, ErrInvalidAmount
	}
	if discount.Currency() != currency {
		return InvoiceTotals{}, ErrCurrencyMismatch
	}

	subtotal := valueobject.Zero(currency)
	for _, item := range items {
		lineTotal, err := ComputeLineTotal(item, currency)
		if err != nil {
			return InvoiceTotals{}, err
		}
		subtotal = subtotal.MustAdd(lineTotal)
	}

	if over, _ := discount.GreaterThan(subtotal); over {
		return InvoiceTotals{}, ErrInvalidAmount
	}
	discounted := subtotal.MustSubtract(discount)

	serviceCharge := discounted.Percentage(serviceChargeRate)
	taxBase := discounted.MustAdd(serviceCharge)
	tax := taxBase.Percentage(taxRate)
	total := taxBase.MustAdd(tax)

	return InvoiceTotals{
		Subtotal:      subtotal,
		Discount:      discount,
		ServiceCharge: serviceCharge,
		Tax:           tax,
		Total:         total,
	}, nil
}

// Invoice is the aggregate root for a billed document. It is owned by
// exactly one booking; it is never deleted, only status-transitioned.
type Invoice struct {
	shared.PropertyAggregateRoot
	InvoiceNumber  string               `json:"invoice_number"`
	BookingID      uuid.UUID            `json:"booking_id"`
	CustomerID     *uuid.UUID           `json:"customer_id,omitempty"`
	Kind           InvoiceKind          `json:"kind"`
	Currency       valueobject.Currency `json:"currency"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	ServiceCharge  decimal.Decimal      `json:"service_charge"`
	TaxAmount      decimal.Decimal      `json:"tax_amount"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	PaidAmount     decimal.Decimal      `json:"paid_amount"`
	Status         InvoiceStatus        `json:"status"`
	InvoiceDate    time.Time            `json:"invoice_date"`
	DueDate        *time.Time           `json:"due_date,omitempty"`
	PaidAt         *time.Time           `json:"paid_at,omitempty"`
	CancelledAt    *time.Time           `json:"cancelled_at,omitempty"`
	CancelReason   string               `json:"cancel_reason,omitempty"`
	RefundedAt     *time.Time           `json:"refunded_at,omitempty"`
	Items          InvoiceItems         `json:"items"`
}

// NewInvoice creates a new invoice from line items. Totals are computed
// once, here, and persisted; the balance due is always recomputed from
// total and paid amounts.
func NewInvoice(
	propertyID uuid.UUID,
	invoiceNumber string,
	bookingID uuid.UUID,
	customerID *uuid.UUID,
	kind InvoiceKind,
	currency valueobject.Currency,
	items []InvoiceItem,
	serviceChargeRate decimal.Decimal,
	taxRate decimal.Decimal,
	discount valueobject.Money,
	invoiceDate time.Time,
	dueDate *time.Time,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if bookingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOOKING", "Booking ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_INVOICE_KIND", "Invoice kind is not valid")
	}
	if len(items) == 0 {
		return nil, ErrEmptyInvoice
	}
	for i := range items {
		if !items[i].Type.IsValid() {
			return nil, shared.NewDomainError("INVALID_ITEM_TYPE", "Invoice item type is not valid")
		}
	}

	// Insertion order fixes the display order.
	ordered := make(InvoiceItems, len(items))
	copy(ordered, items)
	for i := range ordered {
		if ordered[i].ID == uuid.Nil {
			ordered[i].ID = uuid.New()
		}
		ordered[i].SortOrder = i
		lineTotal, err := ComputeLineTotal(ordered[i], currency)
		if err != nil {
			return nil, err
		}
		ordered[i].LineTotal = lineTotal.Amount()
	}

	totals, err := ComputeInvoiceTotals(ordered, currency, serviceChargeRate, taxRate, discount)
	if err != nil {
		return nil, err
	}
	if !totals.Total.IsPositive() {
		return nil, ErrInvalidAmount
	}

	inv := &Invoice{
		PropertyAggregateRoot: shared.NewPropertyAggregateRoot(propertyID),
		InvoiceNumber:         invoiceNumber,
		BookingID:             bookingID,
		CustomerID:            customerID,
		Kind:                  kind,
		Currency:              currency,
		Subtotal:              totals.Subtotal.Amount(),
		ServiceCharge:         totals.ServiceCharge.Amount(),
		TaxAmount:             totals.Tax.Amount(),
		DiscountAmount:        totals.Discount.Amount(),
		TotalAmount:           totals.Total.Amount(),
		PaidAmount:            decimal.Zero,
		Status:                InvoiceStatusPending,
		InvoiceDate:           invoiceDate,
		DueDate:               dueDate,
		Items:                 ordered,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// BalanceDue returns total_amount - paid_amount. It is recomputed on every
// call; the balance is never persisted independently of its source fields.
func (inv *Invoice) BalanceDue() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.TotalAmount.Sub(inv.PaidAmount), inv.Currency)
	return m
}

// GetTotalAmountMoney returns the total as Money
func (inv *Invoice) GetTotalAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.TotalAmount, inv.Currency)
	return m
}

// GetPaidAmountMoney returns the paid amount as Money
func (inv *Invoice) GetPaidAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.PaidAmount, inv.Currency)
	return m
}

// ApplyPayment applies a payment amount to the invoice and recomputes the
// balance and status. When the amount exceeds the balance due the call fails
// with ErrOverpaymentNotAllowed unless allowAdvance is set, in which case
// only the balance is absorbed and the excess is returned as advance credit
// for the caller to record against the booking.
func (inv *Invoice) ApplyPayment(amount valueobject.Money, allowAdvance bool) (valueobject.Money, error) {
	if !inv.Status.CanApplyPayment() {
		return valueobject.Money{}, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot apply payment to invoice in %s status", inv.Status))
	}
	if amount.Currency() != inv.Currency {
		return valueobject.Money{}, ErrCurrencyMismatch
	}
	if !amount.IsPositive() {
		return valueobject.Money{}, ErrInvalidAmount
	}

	balance := inv.BalanceDue()
	advance := valueobject.Zero(inv.Currency)

	applied := amount
	if over, _ := amount.GreaterThan(balance); over {
		if !allowAdvance {
			return valueobject.Money{}, ErrOverpaymentNotAllowed
		}
		applied = balance
		advance = amount.MustSubtract(balance)
	}

	inv.PaidAmount = inv.PaidAmount.Add(applied.Amount())
	inv.recomputeStatus()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	if inv.Status == InvoiceStatusPaid {
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	} else {
		inv.AddDomainEvent(NewInvoicePartiallyPaidEvent(inv, applied))
	}

	return advance, nil
}

// RevertPayment removes a previously applied amount, used when a refund is
// recorded against a payment on this invoice. A fully paid invoice may move
// back to PARTIAL or PENDING.
func (inv *Invoice) RevertPayment(amount valueobject.Money) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot revert payment on invoice in %s status", inv.Status))
	}
	if amount.Currency() != inv.Currency {
		return ErrCurrencyMismatch
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.Amount().GreaterThan(inv.PaidAmount) {
		return ErrRefundExceedsOriginal
	}

	inv.PaidAmount = inv.PaidAmount.Sub(amount.Amount())
	inv.recomputeStatus()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// recomputeStatus derives the status from total and paid amounts.
func (inv *Invoice) recomputeStatus() {
	switch {
	case inv.PaidAmount.GreaterThanOrEqual(inv.TotalAmount):
		now := time.Now()
		inv.Status = InvoiceStatusPaid
		inv.PaidAt = &now
	case inv.PaidAmount.IsPositive():
		inv.Status = InvoiceStatusPartial
		inv.PaidAt = nil
	default:
		inv.Status = InvoiceStatusPending
		inv.PaidAt = nil
	}
}

// Cancel cancels the invoice. Invoices with recorded payments cannot be
// cancelled; refund first, then cancel.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel invoice in %s status", inv.Status))
	}
	if inv.PaidAmount.IsPositive() {
		return ErrCannotCancelPaidInvoice
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))

	return nil
}

// MarkRefunded transitions the invoice to its refunded terminal state after
// all applied payments have been reverted. The caller guarantees at least
// one completed payment existed before the refund.
func (inv *Invoice) MarkRefunded() error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot mark invoice refunded in %s status", inv.Status))
	}
	if inv.PaidAmount.IsPositive() {
		return shared.NewDomainError("INVALID_STATE", "Invoice still has applied payments")
	}

	now := time.Now()
	inv.Status = InvoiceStatusRefunded
	inv.RefundedAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceRefundedEvent(inv))

	return nil
}

// IsOverdue returns true when the due date has passed with an outstanding
// balance. Overdue is derived state; nothing ever writes it.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if inv.Status.IsTerminal() || inv.Status == InvoiceStatusPaid {
		return false
	}
	if inv.DueDate == nil {
		return false
	}
	return now.After(*inv.DueDate) && inv.BalanceDue().IsPositive()
}

// StatusAt returns the display status at the given instant, substituting
// the derived OVERDUE marker where applicable.
func (inv *Invoice) StatusAt(now time.Time) string {
	if inv.IsOverdue(now) {
		return "OVERDUE"
	}
	return inv.Status.String()
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}
