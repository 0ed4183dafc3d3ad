package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
)

// Booking is the read-side contract for the booking store. The booking
// aggregate itself is owned by the reservations subsystem; billing only
// reads the fields it needs to price deposits and schedules.
type Booking struct {
	ID          uuid.UUID
	PropertyID  uuid.UUID
	CustomerID  *uuid.UUID
	RoomTypeID  uuid.UUID
	BookingDate time.Time
	CheckIn     time.Time
	CheckOut    time.Time
	Nights      int
	TotalAmount valueobject.Money
	Status      string
}

// BookingWindowDays returns the number of days between booking and check-in
func (b *Booking) BookingWindowDays() int {
	return int(b.CheckIn.Sub(b.BookingDate).Hours() / 24)
}

// BookingReader reads bookings from the external booking store
type BookingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)
}
