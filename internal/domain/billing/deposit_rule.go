package billing

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DepositCalculationType determines how a deposit rule computes its amount
type DepositCalculationType string

const (
	DepositCalcPercentage  DepositCalculationType = "PERCENTAGE"   // Value is a percentage of the booking total
	DepositCalcFixedAmount DepositCalculationType = "FIXED_AMOUNT" // Value is an absolute amount, capped at the total
	DepositCalcNightsBased DepositCalculationType = "NIGHTS_BASED" // Value is a night count billed at the per-night rate
)

// IsValid checks if the calculation type is valid
func (t DepositCalculationType) IsValid() bool {
	switch t {
	case DepositCalcPercentage, DepositCalcFixedAmount, DepositCalcNightsBased:
		return true
	}
	return false
}

// DepositRule is a prioritized, optionally bounded policy deciding how much
// upfront payment a booking requires. Unset optional bounds mean unbounded.
type DepositRule struct {
	shared.PropertyAggregateRoot
	Name              string                 `json:"name"`
	CalculationType   DepositCalculationType `json:"calculation_type"`
	Value             decimal.Decimal        `json:"value"`
	Priority          int                    `json:"priority"`
	IsActive          bool                   `json:"is_active"`
	RoomTypeID        *uuid.UUID             `json:"room_type_id,omitempty"`
	MinStayNights     *int                   `json:"min_stay_nights,omitempty"`
	MaxStayNights     *int                   `json:"max_stay_nights,omitempty"`
	BookingWindowDays *int                   `json:"booking_window_days,omitempty"` // Upper bound on days between booking and check-in
	ValidFrom         *time.Time             `json:"valid_from,omitempty"`
	ValidTo           *time.Time             `json:"valid_to,omitempty"`
}

// NewDepositRule creates a new deposit rule
func NewDepositRule(
	propertyID uuid.UUID,
	name string,
	calcType DepositCalculationType,
	value decimal.Decimal,
	priority int,
) (*DepositRule, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_RULE_NAME", "Deposit rule name cannot be empty")
	}
	if !calcType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CALCULATION_TYPE", "Deposit calculation type is not valid")
	}
	if value.IsNegative() || value.IsZero() {
		return nil, ErrInvalidAmount
	}
	if calcType == DepositCalcPercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrInvalidAmount
	}

	return &DepositRule{
		PropertyAggregateRoot: shared.NewPropertyAggregateRoot(propertyID),
		Name:                  name,
		CalculationType:       calcType,
		Value:                 value,
		Priority:              priority,
		IsActive:              true,
	}, nil
}

// Matches reports whether the rule applies to the booking. Every unset
// optional field matches unconditionally.
func (r *DepositRule) Matches(b *Booking) bool {
	if !r.IsActive {
		return false
	}
	if r.RoomTypeID != nil && *r.RoomTypeID != b.RoomTypeID {
		return false
	}
	if r.MinStayNights != nil && b.Nights < *r.MinStayNights {
		return false
	}
	if r.MaxStayNights != nil && b.Nights > *r.MaxStayNights {
		return false
	}
	if r.BookingWindowDays != nil && b.BookingWindowDays() > *r.BookingWindowDays {
		return false
	}
	if r.ValidFrom != nil && b.BookingDate.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && b.BookingDate.After(*r.ValidTo) {
		return false
	}
	return true
}

// Specificity counts the rule's set optional bounds. A rule naming a room
// type and a stay bracket beats a catch-all rule at equal priority.
func (r *DepositRule) Specificity() int {
	n := 0
	if r.RoomTypeID != nil {
		n++
	}
	if r.MinStayNights != nil {
		n++
	}
	if r.MaxStayNights != nil {
		n++
	}
	if r.BookingWindowDays != nil {
		n++
	}
	if r.ValidFrom != nil {
		n++
	}
	if r.ValidTo != nil {
		n++
	}
	return n
}

// Calculate computes the deposit amount for the booking. Fixed and
// nights-based amounts are capped at the booking total; all outputs are
// rounded at the currency's minor unit.
func (r *DepositRule) Calculate(b *Booking) (valueobject.Money, error) {
	total := b.TotalAmount

	switch r.CalculationType {
	case DepositCalcPercentage:
		return total.Percentage(r.Value), nil

	case DepositCalcFixedAmount:
		fixed, err := valueobject.NewMoney(r.Value, total.Currency())
		if err != nil {
			return valueobject.Money{}, err
		}
		fixed = fixed.RoundMinor()
		if over, _ := fixed.GreaterThan(total); over {
			return total.RoundMinor(), nil
		}
		return fixed, nil

	case DepositCalcNightsBased:
		if b.Nights <= 0 {
			return valueobject.Money{}, ErrInvalidAmount
		}
		perNight, err := total.Divide(decimal.NewFromInt(int64(b.Nights)))
		if err != nil {
			return valueobject.Money{}, err
		}
		amount := perNight.Multiply(r.Value).RoundMinor()
		if over, _ := amount.GreaterThan(total); over {
			return total.RoundMinor(), nil
		}
		return amount, nil

	default:
		return valueobject.Money{}, shared.NewDomainError("INVALID_CALCULATION_TYPE", "Deposit calculation type is not valid")
	}
}

// SelectDepositRule picks the applicable rule for a booking: highest
// priority wins; ties break by most specific, then most recently created.
// Returns ErrNoApplicableDepositRule when nothing matches, in which case
// the caller must supply an explicit override amount.
func SelectDepositRule(rules []*DepositRule, b *Booking) (*DepositRule, error) {
	matched := make([]*DepositRule, 0, len(rules))
	for _, r := range rules {
		if r.Matches(b) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, ErrNoApplicableDepositRule
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority > matched[j].Priority
		}
		if si, sj := matched[i].Specificity(), matched[j].Specificity(); si != sj {
			return si > sj
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return matched[0], nil
}

// Activate enables the rule
func (r *DepositRule) Activate() {
	r.IsActive = true
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// Deactivate disables the rule without deleting it
func (r *DepositRule) Deactivate() {
	r.IsActive = false
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}
