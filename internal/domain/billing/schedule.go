package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ScheduleStatus represents the status of a schedule entry. OVERDUE is
// derived from the due date at read time, never stored.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "SCHEDULED"
	ScheduleStatusInvoiced  ScheduleStatus = "INVOICED"
	ScheduleStatusPaid      ScheduleStatus = "PAID"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ScheduleStatus
func (s ScheduleStatus) IsValid() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusInvoiced, ScheduleStatusPaid, ScheduleStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for terminal schedule states
func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleStatusPaid || s == ScheduleStatusCancelled
}

// ScheduleEntry is one planned future obligation in a booking's payment
// plan. ScheduleNumber is a dense 1-based sequence per booking.
type ScheduleEntry struct {
	shared.PropertyAggregateRoot
	BookingID      uuid.UUID            `json:"booking_id"`
	ScheduleNumber int                  `json:"schedule_number"`
	Description    string               `json:"description"`
	Amount         decimal.Decimal      `json:"amount"`
	Currency       valueobject.Currency `json:"currency"`
	DueDate        time.Time            `json:"due_date"`
	Status         ScheduleStatus       `json:"status"`
	InvoiceID      *uuid.UUID           `json:"invoice_id,omitempty"`
	PaidAt         *time.Time           `json:"paid_at,omitempty"`
}

func newScheduleEntry(
	propertyID, bookingID uuid.UUID,
	number int,
	description string,
	amount valueobject.Money,
	dueDate time.Time,
) *ScheduleEntry {
	return &ScheduleEntry{
		PropertyAggregateRoot: shared.NewPropertyAggregateRoot(propertyID),
		BookingID:             bookingID,
		ScheduleNumber:        number,
		Description:           description,
		Amount:                amount.Amount(),
		Currency:              amount.Currency(),
		DueDate:               dueDate,
		Status:                ScheduleStatusScheduled,
	}
}

// GetAmountMoney returns the entry amount as Money
func (e *ScheduleEntry) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(e.Amount, e.Currency)
	return m
}

// LinkInvoice transitions scheduled→invoiced, binding the entry to the
// invoice that bills it
func (e *ScheduleEntry) LinkInvoice(invoiceID uuid.UUID) error {
	if e.Status != ScheduleStatusScheduled {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot link invoice to schedule entry in %s status", e.Status))
	}
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	e.Status = ScheduleStatusInvoiced
	e.InvoiceID = &invoiceID
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	return nil
}

// MarkPaid transitions invoiced→paid
func (e *ScheduleEntry) MarkPaid() error {
	if e.Status != ScheduleStatusInvoiced {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot mark schedule entry paid in %s status", e.Status))
	}
	now := time.Now()
	e.Status = ScheduleStatusPaid
	e.PaidAt = &now
	e.UpdatedAt = now
	e.IncrementVersion()
	return nil
}

// Cancel transitions scheduled or invoiced entries to cancelled
func (e *ScheduleEntry) Cancel() error {
	if e.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel schedule entry in %s status", e.Status))
	}
	e.Status = ScheduleStatusCancelled
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	return nil
}

// IsOverdue reports whether an invoiced, unpaid entry is past due. Derived
// state; nothing ever writes it.
func (e *ScheduleEntry) IsOverdue(now time.Time) bool {
	return e.Status == ScheduleStatusInvoiced && now.After(e.DueDate)
}

// AutoScheduleConfig drives GenerateAutoSchedule
type AutoScheduleConfig struct {
	DepositPercent         decimal.Decimal
	Installments           int
	FinalPaymentOnCheckout bool
}

// GenerateAutoSchedule produces a deposit entry due at booking time, evenly
// divided installments spaced between booking date and check-in, and, when
// configured, a final entry for the residual balance due at checkout.
// Allocation keeps the sum exact: remainder minor units land on the earliest
// entries.
func GenerateAutoSchedule(b *Booking, cfg AutoScheduleConfig) ([]*ScheduleEntry, error) {
	if cfg.DepositPercent.IsNegative() || cfg.DepositPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrInvalidAmount
	}
	if cfg.Installments < 0 {
		return nil, ErrInvalidAmount
	}
	if cfg.Installments == 0 && !cfg.FinalPaymentOnCheckout && cfg.DepositPercent.LessThan(decimal.NewFromInt(100)) {
		return nil, ErrScheduleSumMismatch
	}

	total := b.TotalAmount.RoundMinor()
	deposit := total.Percentage(cfg.DepositPercent)
	pool := total.MustSubtract(deposit)

	entries := make([]*ScheduleEntry, 0, cfg.Installments+2)
	number := 1

	if deposit.IsPositive() {
		entries = append(entries, newScheduleEntry(
			b.PropertyID, b.ID, number, "Deposit", deposit, b.BookingDate))
		number++
	}

	// The pool splits across the installments plus, when configured, one
	// final part billed at checkout.
	parts := cfg.Installments
	if cfg.FinalPaymentOnCheckout {
		parts++
	}
	if parts == 0 || pool.IsZero() {
		return entries, nil
	}

	split, err := pool.Allocate(parts)
	if err != nil {
		return nil, err
	}

	interval := b.CheckIn.Sub(b.BookingDate) / time.Duration(cfg.Installments+1)
	for i := 0; i < cfg.Installments; i++ {
		due := b.BookingDate.Add(interval * time.Duration(i+1))
		entries = append(entries, newScheduleEntry(
			b.PropertyID, b.ID, number,
			fmt.Sprintf("Installment %d of %d", i+1, cfg.Installments),
			split[i], due))
		number++
	}

	if cfg.FinalPaymentOnCheckout {
		entries = append(entries, newScheduleEntry(
			b.PropertyID, b.ID, number, "Final payment", split[parts-1], b.CheckOut))
	}

	return entries, nil
}

// CustomScheduleItem describes one entry of a caller-defined payment plan.
// Exactly one of DaysFromBooking, DaysBeforeCheckIn or OnCheckout positions
// the due date.
type CustomScheduleItem struct {
	Percent           decimal.Decimal
	Description       string
	DaysFromBooking   *int
	DaysBeforeCheckIn *int
	OnCheckout        bool
}

func (i CustomScheduleItem) dueDate(b *Booking) (time.Time, error) {
	set := 0
	if i.DaysFromBooking != nil {
		set++
	}
	if i.DaysBeforeCheckIn != nil {
		set++
	}
	if i.OnCheckout {
		set++
	}
	if set != 1 {
		return time.Time{}, shared.NewDomainError("INVALID_SCHEDULE_OFFSET",
			"Exactly one of days_from_booking, days_before_checkin or on_checkout must be set")
	}

	switch {
	case i.DaysFromBooking != nil:
		return b.BookingDate.AddDate(0, 0, *i.DaysFromBooking), nil
	case i.DaysBeforeCheckIn != nil:
		return b.CheckIn.AddDate(0, 0, -*i.DaysBeforeCheckIn), nil
	default:
		return b.CheckOut, nil
	}
}

// GenerateCustomSchedule builds a payment plan from caller-supplied
// percentage items. The resulting amounts must sum to the booking total
// within one minor unit; anything further off fails ErrScheduleSumMismatch.
func GenerateCustomSchedule(b *Booking, items []CustomScheduleItem) ([]*ScheduleEntry, error) {
	if len(items) == 0 {
		return nil, ErrScheduleSumMismatch
	}

	total := b.TotalAmount.RoundMinor()
	entries := make([]*ScheduleEntry, 0, len(items))
	sum := valueobject.Zero(total.Currency())

	for idx, item := range items {
		if item.Percent.IsNegative() || item.Percent.IsZero() {
			return nil, ErrInvalidAmount
		}
		due, err := item.dueDate(b)
		if err != nil {
			return nil, err
		}

		amount := total.Percentage(item.Percent)
		sum = sum.MustAdd(amount)

		description := item.Description
		if description == "" {
			description = fmt.Sprintf("Scheduled payment %d", idx+1)
		}
		entries = append(entries, newScheduleEntry(
			b.PropertyID, b.ID, idx+1, description, amount, due))
	}

	diff := sum.MustSubtract(total).Abs()
	if over, _ := diff.GreaterThan(moneyMinorUnit(total.Currency())); over {
		return nil, ErrScheduleSumMismatch
	}

	return entries, nil
}

func moneyMinorUnit(c valueobject.Currency) valueobject.Money {
	m, _ := valueobject.NewMoney(c.MinorUnit(), c)
	return m
}
