package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roomItem(qty, unitPrice int64) InvoiceItem {
	return InvoiceItem{
		Type:        InvoiceItemTypeRoom,
		Description: "Deluxe room",
		Quantity:    decimal.NewFromInt(qty),
		UnitPrice:   decimal.NewFromInt(unitPrice),
	}
}

func createTestInvoice(t *testing.T, items ...InvoiceItem) *Invoice {
	t.Helper()
	if len(items) == 0 {
		items = []InvoiceItem{roomItem(2, 1500000)}
	}
	due := time.Now().Add(48 * time.Hour)
	inv, err := NewInvoice(
		uuid.New(),
		"INV-20260115-00001",
		uuid.New(),
		nil,
		InvoiceKindDeposit,
		valueobject.VND,
		items,
		decimal.Zero,
		decimal.Zero,
		valueobject.ZeroVND(),
		time.Now(),
		&due,
	)
	require.NoError(t, err)
	return inv
}

func TestComputeLineTotal(t *testing.T) {
	tests := []struct {
		name    string
		item    InvoiceItem
		want    int64
		wantErr bool
	}{
		{
			name: "quantity times unit price",
			item: roomItem(2, 1500000),
			want: 3000000,
		},
		{
			name: "percentage discount then tax",
			item: InvoiceItem{
				Type:            InvoiceItemTypeService,
				Quantity:        decimal.NewFromInt(1),
				UnitPrice:       decimal.NewFromInt(1000000),
				DiscountPercent: ptrDecimal(decimal.NewFromInt(10)),
				TaxRate:         decimal.NewFromInt(10),
			},
			// (1000000 - 100000) * 1.10
			want: 990000,
		},
		{
			name: "fixed discount",
			item: InvoiceItem{
				Type:           InvoiceItemTypeProduct,
				Quantity:       decimal.NewFromInt(3),
				UnitPrice:      decimal.NewFromInt(50000),
				DiscountAmount: decimal.NewFromInt(30000),
			},
			want: 120000,
		},
		{
			name:    "negative quantity",
			item:    InvoiceItem{Type: InvoiceItemTypeRoom, Quantity: decimal.NewFromInt(-1), UnitPrice: decimal.NewFromInt(100)},
			wantErr: true,
		},
		{
			name: "discount exceeds base",
			item: InvoiceItem{
				Type:           InvoiceItemTypeFee,
				Quantity:       decimal.NewFromInt(1),
				UnitPrice:      decimal.NewFromInt(100),
				DiscountAmount: decimal.NewFromInt(200),
			},
			wantErr: true,
		},
		{
			name: "discount percent above 100",
			item: InvoiceItem{
				Type:            InvoiceItemTypeFee,
				Quantity:        decimal.NewFromInt(1),
				UnitPrice:       decimal.NewFromInt(100),
				DiscountPercent: ptrDecimal(decimal.NewFromInt(101)),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeLineTotal(tt.item, valueobject.VND)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Amount().Equal(decimal.NewFromInt(tt.want)),
				"got %s want %d", got.Amount(), tt.want)
		})
	}
}

func TestComputeInvoiceTotals_OrderOfApplication(t *testing.T) {
	// subtotal 2,000,000; discount 200,000 -> 1,800,000
	// service charge 5% -> 90,000; tax 10% of 1,890,000 -> 189,000
	items := InvoiceItems{roomItem(2, 1000000)}
	totals, err := ComputeInvoiceTotals(items, valueobject.VND,
		decimal.NewFromInt(5), decimal.NewFromInt(10), valueobject.NewMoneyVNDFromInt(200000))
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Amount().Equal(decimal.NewFromInt(2000000)))
	assert.True(t, totals.ServiceCharge.Amount().Equal(decimal.NewFromInt(90000)))
	assert.True(t, totals.Tax.Amount().Equal(decimal.NewFromInt(189000)))
	assert.True(t, totals.Total.Amount().Equal(decimal.NewFromInt(2079000)))
}

func TestComputeInvoiceTotals_EmptyItems(t *testing.T) {
	_, err := ComputeInvoiceTotals(nil, valueobject.VND, decimal.Zero, decimal.Zero, valueobject.ZeroVND())
	assert.ErrorIs(t, err, ErrEmptyInvoice)
}

func TestNewInvoice(t *testing.T) {
	inv := createTestInvoice(t)

	assert.Equal(t, InvoiceStatusPending, inv.Status)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(3000000)))
	assert.True(t, inv.PaidAmount.IsZero())
	assert.True(t, inv.BalanceDue().Amount().Equal(decimal.NewFromInt(3000000)))
	assert.Equal(t, 1, inv.GetVersion())
	assert.Len(t, inv.GetDomainEvents(), 1)
	assert.Equal(t, EventInvoiceCreated, inv.GetDomainEvents()[0].EventType())

	// SortOrder follows insertion order.
	for i, item := range inv.Items {
		assert.Equal(t, i, item.SortOrder)
		assert.NotEqual(t, uuid.Nil, item.ID)
	}
}

func TestNewInvoice_Validation(t *testing.T) {
	due := time.Now().Add(24 * time.Hour)

	_, err := NewInvoice(uuid.New(), "", uuid.New(), nil, InvoiceKindFinal,
		valueobject.VND, []InvoiceItem{roomItem(1, 100)},
		decimal.Zero, decimal.Zero, valueobject.ZeroVND(), time.Now(), &due)
	assert.Error(t, err)

	_, err = NewInvoice(uuid.New(), "INV-1", uuid.New(), nil, InvoiceKindFinal,
		valueobject.VND, nil,
		decimal.Zero, decimal.Zero, valueobject.ZeroVND(), time.Now(), &due)
	assert.ErrorIs(t, err, ErrEmptyInvoice)

	_, err = NewInvoice(uuid.New(), "INV-1", uuid.New(), nil, InvoiceKind("BOGUS"),
		valueobject.VND, []InvoiceItem{roomItem(1, 100)},
		decimal.Zero, decimal.Zero, valueobject.ZeroVND(), time.Now(), &due)
	assert.Error(t, err)
}

func TestInvoice_ApplyPayment_Partial(t *testing.T) {
	inv := createTestInvoice(t)

	advance, err := inv.ApplyPayment(valueobject.NewMoneyVNDFromInt(1000000), false)
	require.NoError(t, err)
	assert.True(t, advance.IsZero())
	assert.Equal(t, InvoiceStatusPartial, inv.Status)
	assert.True(t, inv.BalanceDue().Amount().Equal(decimal.NewFromInt(2000000)))
	assert.Nil(t, inv.PaidAt)
	assert.Equal(t, 2, inv.GetVersion())
}

func TestInvoice_ApplyPayment_Full(t *testing.T) {
	inv := createTestInvoice(t)

	_, err := inv.ApplyPayment(valueobject.NewMoneyVNDFromInt(3000000), false)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.BalanceDue().IsZero())
	assert.NotNil(t, inv.PaidAt)

	events := inv.GetDomainEvents()
	assert.Equal(t, EventInvoicePaid, events[len(events)-1].EventType())
}

func TestInvoice_ApplyPayment_OverpaymentRejected(t *testing.T) {
	inv := createTestInvoice(t)

	_, err := inv.ApplyPayment(valueobject.NewMoneyVNDFromInt(3000001), false)
	assert.ErrorIs(t, err, ErrOverpaymentNotAllowed)
	assert.Equal(t, InvoiceStatusPending, inv.Status)
	assert.True(t, inv.PaidAmount.IsZero())
}

func TestInvoice_ApplyPayment_AdvanceCredit(t *testing.T) {
	inv := createTestInvoice(t)

	advance, err := inv.ApplyPayment(valueobject.NewMoneyVNDFromInt(3500000), true)
	require.NoError(t, err)
	assert.True(t, advance.Amount().Equal(decimal.NewFromInt(500000)))
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.PaidAmount.Equal(decimal.NewFromInt(3000000)))
}

func TestInvoice_ApplyPayment_InvalidInputs(t *testing.T) {
	inv := createTestInvoice(t)

	_, err := inv.ApplyPayment(valueobject.ZeroVND(), false)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	usd, _ := valueobject.NewMoneyFromInt(100, valueobject.USD)
	_, err = inv.ApplyPayment(usd, false)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestInvoice_ApplyPayment_TerminalStatus(t *testing.T) {
	inv := createTestInvoice(t)
	require.NoError(t, inv.Cancel("guest no-show"))

	_, err := inv.ApplyPayment(valueobject.NewMoneyVNDFromInt(1000), false)
	assert.Error(t, err)
}

func TestInvoice_RevertPayment(t *testing.T) {
	inv := createTestInvoice(t)
	_, err := inv.ApplyPayment(valueobject.NewMoneyVNDFromInt(3000000), false)
	require.NoError(t, err)
	require.Equal(t, InvoiceStatusPaid, inv.Status)

	require.NoError(t, inv.RevertPayment(valueobject.NewMoneyVNDFromInt(1000000)))
	assert.Equal(t, InvoiceStatusPartial, inv.Status)
	assert.Nil(t, inv.PaidAt)
	assert.True(t, inv.BalanceDue().Amount().Equal(decimal.NewFromInt(1000000)))

	require.NoError(t, inv.RevertPayment(valueobject.NewMoneyVNDFromInt(2000000)))
	assert.Equal(t, InvoiceStatusPending, inv.Status)

	err = inv.RevertPayment(valueobject.NewMoneyVNDFromInt(1))
	assert.ErrorIs(t, err, ErrRefundExceedsOriginal)
}

func TestInvoice_Cancel(t *testing.T) {
	inv := createTestInvoice(t)

	err := inv.Cancel("")
	assert.Error(t, err)

	require.NoError(t, inv.Cancel("duplicate booking"))
	assert.Equal(t, InvoiceStatusCancelled, inv.Status)
	assert.NotNil(t, inv.CancelledAt)

	// Terminal: cannot cancel twice.
	assert.Error(t, inv.Cancel("again"))
}

func TestInvoice_Cancel_WithPayments(t *testing.T) {
	inv := createTestInvoice(t)
	_, err := inv.ApplyPayment(valueobject.NewMoneyVNDFromInt(500000), false)
	require.NoError(t, err)

	err = inv.Cancel("changed plans")
	assert.ErrorIs(t, err, ErrCannotCancelPaidInvoice)
}

func TestInvoice_MarkRefunded(t *testing.T) {
	inv := createTestInvoice(t)
	_, err := inv.ApplyPayment(valueobject.NewMoneyVNDFromInt(3000000), false)
	require.NoError(t, err)

	// Still has applied payments.
	assert.Error(t, inv.MarkRefunded())

	require.NoError(t, inv.RevertPayment(valueobject.NewMoneyVNDFromInt(3000000)))
	require.NoError(t, inv.MarkRefunded())
	assert.Equal(t, InvoiceStatusRefunded, inv.Status)
	assert.NotNil(t, inv.RefundedAt)

	assert.Error(t, inv.RevertPayment(valueobject.NewMoneyVNDFromInt(1)))
}

func TestInvoice_IsOverdue(t *testing.T) {
	inv := createTestInvoice(t)
	past := time.Now().Add(-24 * time.Hour)
	inv.DueDate = &past

	now := time.Now()
	assert.True(t, inv.IsOverdue(now))
	assert.Equal(t, "OVERDUE", inv.StatusAt(now))
	// Stored status is untouched.
	assert.Equal(t, InvoiceStatusPending, inv.Status)

	_, err := inv.ApplyPayment(valueobject.NewMoneyVNDFromInt(3000000), false)
	require.NoError(t, err)
	assert.False(t, inv.IsOverdue(now))
	assert.Equal(t, "PAID", inv.StatusAt(now))
}

func TestInvoice_IsOverdue_NoDueDate(t *testing.T) {
	inv := createTestInvoice(t)
	inv.DueDate = nil
	assert.False(t, inv.IsOverdue(time.Now()))
}

func ptrDecimal(d decimal.Decimal) *decimal.Decimal {
	return &d
}
