package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// bookingRow is a read-only projection of the reservations subsystem's
// bookings table. Billing never writes to it.
type bookingRow struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey"`
	PropertyID  uuid.UUID            `gorm:"type:uuid"`
	CustomerID  *uuid.UUID           `gorm:"type:uuid"`
	RoomTypeID  uuid.UUID            `gorm:"type:uuid"`
	BookingDate time.Time            `gorm:"column:booking_date"`
	CheckIn     time.Time            `gorm:"column:check_in"`
	CheckOut    time.Time            `gorm:"column:check_out"`
	Nights      int                  `gorm:"column:nights"`
	TotalAmount decimal.Decimal      `gorm:"type:decimal(18,4)"`
	Currency    valueobject.Currency `gorm:"type:varchar(3)"`
	Status      string               `gorm:"type:varchar(20)"`
}

func (bookingRow) TableName() string {
	return "bookings"
}

// GormBookingReader implements billing.BookingReader over the shared database
type GormBookingReader struct {
	db *gorm.DB
}

// NewGormBookingReader creates a new GormBookingReader
func NewGormBookingReader(db *gorm.DB) *GormBookingReader {
	return &GormBookingReader{db: db}
}

// FindByID finds a booking by its ID
func (r *GormBookingReader) FindByID(ctx context.Context, id uuid.UUID) (*billing.Booking, error) {
	var row bookingRow
	if err := r.db.WithContext(ctx).
		First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	total, err := valueobject.NewMoney(row.TotalAmount, row.Currency)
	if err != nil {
		return nil, err
	}

	return &billing.Booking{
		ID:          row.ID,
		PropertyID:  row.PropertyID,
		CustomerID:  row.CustomerID,
		RoomTypeID:  row.RoomTypeID,
		BookingDate: row.BookingDate,
		CheckIn:     row.CheckIn,
		CheckOut:    row.CheckOut,
		Nights:      row.Nights,
		TotalAmount: total,
		Status:      row.Status,
	}, nil
}

// Ensure GormBookingReader implements BookingReader
var _ billing.BookingReader = (*GormBookingReader)(nil)
