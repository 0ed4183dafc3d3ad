package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type invoiceServiceEnv struct {
	svc         *InvoiceService
	invoiceRepo *fakeInvoiceRepo
	ruleRepo    *fakeRuleRepo
	folioRepo   *fakeFolioRepo
	publisher   *capturingPublisher
	booking     *billing.Booking
}

func newInvoiceServiceEnv(t *testing.T, rules ...*billing.DepositRule) *invoiceServiceEnv {
	t.Helper()

	propertyID := uuid.New()
	bookingDate := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	booking := &billing.Booking{
		ID:          uuid.New(),
		PropertyID:  propertyID,
		RoomTypeID:  uuid.New(),
		BookingDate: bookingDate,
		CheckIn:     bookingDate.AddDate(0, 0, 14),
		CheckOut:    bookingDate.AddDate(0, 0, 18),
		Nights:      4,
		TotalAmount: valueobject.NewMoneyVNDFromInt(3000000),
		Status:      "CONFIRMED",
	}
	for _, r := range rules {
		r.PropertyID = propertyID
	}

	env := &invoiceServiceEnv{
		invoiceRepo: newFakeInvoiceRepo(),
		ruleRepo:    newFakeRuleRepo(rules...),
		folioRepo:   newFakeFolioRepo(),
		publisher:   &capturingPublisher{},
		booking:     booking,
	}
	env.svc = NewInvoiceService(
		env.invoiceRepo, env.ruleRepo, env.folioRepo,
		newFakeBookingReader(booking), env.publisher, zap.NewNop(),
	)
	return env
}

func newPercentageRule(t *testing.T, percent int64, priority int) *billing.DepositRule {
	t.Helper()
	rule, err := billing.NewDepositRule(uuid.New(), "standard deposit",
		billing.DepositCalcPercentage, decimal.NewFromInt(percent), priority)
	require.NoError(t, err)
	return rule
}

func TestInvoiceService_CreateDepositInvoice(t *testing.T) {
	env := newInvoiceServiceEnv(t, newPercentageRule(t, 30, 1))

	inv, err := env.svc.CreateDepositInvoice(context.Background(), CreateDepositInvoiceRequest{
		PropertyID: env.booking.PropertyID,
		BookingID:  env.booking.ID,
	})
	require.NoError(t, err)

	// Scenario: 3,000,000 VND at 30% -> 900,000, pending.
	assert.Equal(t, billing.InvoiceKindDeposit, inv.Kind)
	assert.Equal(t, billing.InvoiceStatusPending, inv.Status)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(900000)))
	assert.NotEmpty(t, inv.InvoiceNumber)
	require.Len(t, inv.Items, 1)
	assert.Contains(t, inv.Items[0].Description, "standard deposit")

	// Persisted and events published.
	stored, err := env.invoiceRepo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEmpty(t, env.publisher.events)
	assert.Empty(t, inv.GetDomainEvents(), "events drained after publishing")
}

func TestInvoiceService_CreateDepositInvoice_PriorityWins(t *testing.T) {
	env := newInvoiceServiceEnv(t,
		newPercentageRule(t, 20, 5),
		newPercentageRule(t, 30, 10),
	)

	inv, err := env.svc.CreateDepositInvoice(context.Background(), CreateDepositInvoiceRequest{
		PropertyID: env.booking.PropertyID,
		BookingID:  env.booking.ID,
	})
	require.NoError(t, err)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(900000)))
}

func TestInvoiceService_CreateDepositInvoice_NoRuleNoOverride(t *testing.T) {
	env := newInvoiceServiceEnv(t)

	_, err := env.svc.CreateDepositInvoice(context.Background(), CreateDepositInvoiceRequest{
		PropertyID: env.booking.PropertyID,
		BookingID:  env.booking.ID,
	})
	assert.ErrorIs(t, err, billing.ErrNoApplicableDepositRule)
}

func TestInvoiceService_CreateDepositInvoice_Override(t *testing.T) {
	env := newInvoiceServiceEnv(t)

	override := decimal.NewFromInt(500000)
	inv, err := env.svc.CreateDepositInvoice(context.Background(), CreateDepositInvoiceRequest{
		PropertyID:     env.booking.PropertyID,
		BookingID:      env.booking.ID,
		OverrideAmount: &override,
	})
	require.NoError(t, err)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(500000)))
}

func TestInvoiceService_CreateDepositInvoice_UnknownBooking(t *testing.T) {
	env := newInvoiceServiceEnv(t, newPercentageRule(t, 30, 1))

	_, err := env.svc.CreateDepositInvoice(context.Background(), CreateDepositInvoiceRequest{
		PropertyID: env.booking.PropertyID,
		BookingID:  uuid.New(),
	})
	assert.Error(t, err)
}

func TestInvoiceService_CreateDepositInvoice_ClosedFolio(t *testing.T) {
	env := newInvoiceServiceEnv(t, newPercentageRule(t, 30, 1))

	folio, err := billing.NewFolio(env.booking.PropertyID, "FOL-1", env.booking.ID)
	require.NoError(t, err)
	require.NoError(t, folio.Close(valueobject.ZeroVND(), uuid.New()))
	require.NoError(t, env.folioRepo.Save(context.Background(), folio))

	_, err = env.svc.CreateDepositInvoice(context.Background(), CreateDepositInvoiceRequest{
		PropertyID: env.booking.PropertyID,
		BookingID:  env.booking.ID,
	})
	assert.ErrorIs(t, err, billing.ErrFolioClosed)
}

func TestInvoiceService_CreatePartialInvoice(t *testing.T) {
	env := newInvoiceServiceEnv(t)

	inv, err := env.svc.CreatePartialInvoice(context.Background(), CreateInvoiceRequest{
		PropertyID: env.booking.PropertyID,
		BookingID:  env.booking.ID,
		Items: []InvoiceItemInput{
			{
				Type:        billing.InvoiceItemTypeService,
				Description: "Airport pickup",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.NewFromInt(350000),
			},
			{
				Type:        billing.InvoiceItemTypeProduct,
				Description: "Minibar",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.NewFromInt(75000),
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, billing.InvoiceKindPartial, inv.Kind)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(500000)))
	assert.Len(t, inv.Items, 2)
}

func TestInvoiceService_CreatePartialInvoice_Empty(t *testing.T) {
	env := newInvoiceServiceEnv(t)

	_, err := env.svc.CreatePartialInvoice(context.Background(), CreateInvoiceRequest{
		PropertyID: env.booking.PropertyID,
		BookingID:  env.booking.ID,
	})
	assert.ErrorIs(t, err, billing.ErrEmptyInvoice)
}

func TestInvoiceService_CancelInvoice(t *testing.T) {
	env := newInvoiceServiceEnv(t, newPercentageRule(t, 30, 1))

	inv, err := env.svc.CreateDepositInvoice(context.Background(), CreateDepositInvoiceRequest{
		PropertyID: env.booking.PropertyID,
		BookingID:  env.booking.ID,
	})
	require.NoError(t, err)

	cancelled, err := env.svc.CancelInvoice(context.Background(),
		env.booking.PropertyID, inv.ID, "duplicate booking")
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusCancelled, cancelled.Status)

	_, err = env.svc.CancelInvoice(context.Background(),
		env.booking.PropertyID, uuid.New(), "missing")
	assert.Error(t, err)
}

func TestInvoiceService_RoundTripTotals(t *testing.T) {
	// ComputeInvoiceTotals over the invoice's own items reproduces the
	// persisted total exactly.
	env := newInvoiceServiceEnv(t)

	inv, err := env.svc.CreatePartialInvoice(context.Background(), CreateInvoiceRequest{
		PropertyID: env.booking.PropertyID,
		BookingID:  env.booking.ID,
		Items: []InvoiceItemInput{{
			Type:        billing.InvoiceItemTypeRoom,
			Description: "Room charge",
			Quantity:    decimal.NewFromInt(4),
			UnitPrice:   decimal.NewFromInt(750000),
			TaxRate:     decimal.NewFromInt(8),
		}},
		ServiceChargeRate: decimal.NewFromInt(5),
		TaxRate:           decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	totals, err := billing.ComputeInvoiceTotals(inv.Items, inv.Currency,
		decimal.NewFromInt(5), decimal.NewFromInt(10), valueobject.Zero(inv.Currency))
	require.NoError(t, err)
	assert.True(t, totals.Total.Amount().Equal(inv.TotalAmount))
}
