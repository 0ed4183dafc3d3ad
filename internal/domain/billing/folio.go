package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
)

// FolioStatus represents whether a folio accepts new charges and payments
type FolioStatus string

const (
	FolioStatusOpen   FolioStatus = "OPEN"
	FolioStatusClosed FolioStatus = "CLOSED"
)

// IsValid checks if the status is a valid FolioStatus
func (s FolioStatus) IsValid() bool {
	return s == FolioStatusOpen || s == FolioStatusClosed
}

// Folio is the aggregated account for one booking. A closed folio is frozen
// against new invoices and payments; refunds remain allowed so a mistaken
// charge can still be corrected after checkout.
type Folio struct {
	shared.PropertyAggregateRoot
	FolioNumber string      `json:"folio_number"`
	BookingID   uuid.UUID   `json:"booking_id"`
	Status      FolioStatus `json:"status"`
	ClosedAt    *time.Time  `json:"closed_at,omitempty"`
	ClosedBy    *uuid.UUID  `json:"closed_by,omitempty"`
	ReopenedAt  *time.Time  `json:"reopened_at,omitempty"`
	ReopenedBy  *uuid.UUID  `json:"reopened_by,omitempty"`
}

// NewFolio opens a folio for a booking
func NewFolio(propertyID uuid.UUID, folioNumber string, bookingID uuid.UUID) (*Folio, error) {
	if folioNumber == "" {
		return nil, shared.NewDomainError("INVALID_FOLIO_NUMBER", "Folio number cannot be empty")
	}
	if bookingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOOKING", "Booking ID cannot be empty")
	}
	return &Folio{
		PropertyAggregateRoot: shared.NewPropertyAggregateRoot(propertyID),
		FolioNumber:           folioNumber,
		BookingID:             bookingID,
		Status:                FolioStatusOpen,
	}, nil
}

// IsOpen returns true while the folio accepts new charges and payments
func (f *Folio) IsOpen() bool {
	return f.Status == FolioStatusOpen
}

// Close freezes the folio. The caller passes the current statement balance;
// a non-zero balance blocks the close.
func (f *Folio) Close(balance valueobject.Money, closedBy uuid.UUID) error {
	if f.Status == FolioStatusClosed {
		return shared.NewDomainError("INVALID_STATE", "Folio is already closed")
	}
	if !balance.IsZero() {
		return ErrNonZeroBalance
	}

	now := time.Now()
	f.Status = FolioStatusClosed
	f.ClosedAt = &now
	f.ClosedBy = &closedBy
	f.UpdatedAt = now
	f.IncrementVersion()
	return nil
}

// Reopen unfreezes a closed folio. Always permitted for an authorized
// actor; there is no balance precondition.
func (f *Folio) Reopen(reopenedBy uuid.UUID) error {
	if f.Status == FolioStatusOpen {
		return shared.NewDomainError("INVALID_STATE", "Folio is already open")
	}

	now := time.Now()
	f.Status = FolioStatusOpen
	f.ReopenedAt = &now
	f.ReopenedBy = &reopenedBy
	f.UpdatedAt = now
	f.IncrementVersion()
	return nil
}

// FolioStatement is the read-side projection of a booking's invoices,
// payments and schedule. It is computed fresh on every read and never
// persisted.
type FolioStatement struct {
	Folio        *Folio            `json:"folio"`
	BookingID    uuid.UUID         `json:"booking_id"`
	Invoices     []*Invoice        `json:"invoices"`
	Payments     []*Payment        `json:"payments"`
	Schedule     []*ScheduleEntry  `json:"schedule"`
	TotalCharges valueobject.Money `json:"total_charges"`
	TotalCredits valueobject.Money `json:"total_credits"`
	Balance      valueobject.Money `json:"balance"`
}

// ComputeStatement joins a booking's billing records into a statement.
// Charges sum the totals of non-cancelled invoices; credits sum completed
// payments minus completed refunds; balance is charges minus credits.
func ComputeStatement(
	folio *Folio,
	currency valueobject.Currency,
	invoices []*Invoice,
	payments []*Payment,
	schedule []*ScheduleEntry,
) (*FolioStatement, error) {
	charges := valueobject.Zero(currency)
	for _, inv := range invoices {
		if inv.Status == InvoiceStatusCancelled {
			continue
		}
		if inv.Currency != currency {
			return nil, ErrCurrencyMismatch
		}
		charges = charges.MustAdd(inv.GetTotalAmountMoney())
	}

	credits := valueobject.Zero(currency)
	for _, p := range payments {
		if p.Status != PaymentStatusCompleted && p.Status != PaymentStatusRefunded {
			continue
		}
		if p.Currency != currency {
			return nil, ErrCurrencyMismatch
		}
		if p.IsRefund() {
			credits = credits.MustSubtract(p.GetAmountMoney())
		} else {
			credits = credits.MustAdd(p.GetAmountMoney())
		}
	}

	return &FolioStatement{
		Folio:        folio,
		BookingID:    folio.BookingID,
		Invoices:     invoices,
		Payments:     payments,
		Schedule:     schedule,
		TotalCharges: charges,
		TotalCredits: credits,
		Balance:      charges.MustSubtract(credits),
	}, nil
}

// CanAcceptCharge reports whether a new invoice or non-refund payment may
// be posted to the folio
func (f *Folio) CanAcceptCharge() error {
	if !f.IsOpen() {
		return ErrFolioClosed
	}
	return nil
}

// String implements fmt.Stringer for logging
func (f *Folio) String() string {
	return fmt.Sprintf("Folio(%s, booking=%s, %s)", f.FolioNumber, f.BookingID, f.Status)
}
