package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_MinorUnitPlaces(t *testing.T) {
	tests := []struct {
		currency Currency
		places   int32
	}{
		{VND, 0},
		{JPY, 0},
		{KRW, 0},
		{USD, 2},
		{EUR, 2},
		{THB, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.currency), func(t *testing.T) {
			assert.Equal(t, tt.places, tt.currency.MinorUnitPlaces())
		})
	}
}

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromInt(100), VND)
	require.NoError(t, err)
	assert.Equal(t, VND, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromInt(100)))

	_, err = NewMoney(decimal.NewFromInt(100), "")
	assert.Error(t, err)
}

func TestMoney_AddSubtract(t *testing.T) {
	a := NewMoneyVNDFromInt(500000)
	b := NewMoneyVNDFromInt(300000)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount().Equal(decimal.NewFromInt(800000)))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.True(t, diff.Amount().Equal(decimal.NewFromInt(200000)))
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	a := NewMoneyVNDFromInt(100)
	b, err := NewMoneyFromInt(100, USD)
	require.NoError(t, err)

	_, err = a.Add(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = a.Subtract(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = a.LessThan(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_RoundMinor(t *testing.T) {
	// Banker's rounding: 0.5 rounds to the nearest even integer.
	m, err := NewMoneyFromString("100.5", VND)
	require.NoError(t, err)
	assert.True(t, m.RoundMinor().Amount().Equal(decimal.NewFromInt(100)))

	m, err = NewMoneyFromString("101.5", VND)
	require.NoError(t, err)
	assert.True(t, m.RoundMinor().Amount().Equal(decimal.NewFromInt(102)))

	usd, err := NewMoneyFromString("10.125", USD)
	require.NoError(t, err)
	assert.Equal(t, "10.12", usd.RoundMinor().Amount().StringFixed(2))
}

func TestMoney_Percentage(t *testing.T) {
	m := NewMoneyVNDFromInt(3000000)
	deposit := m.Percentage(decimal.NewFromInt(30))
	assert.True(t, deposit.Amount().Equal(decimal.NewFromInt(900000)))
}

func TestMoney_Allocate(t *testing.T) {
	m := NewMoneyVNDFromInt(1000001)
	parts, err := m.Allocate(3)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	sum := ZeroVND()
	for _, p := range parts {
		sum = sum.MustAdd(p)
	}
	assert.True(t, sum.Equals(m), "allocated parts must sum to the original amount")

	// Remainder minor units go to the leading parts.
	first, err := parts[0].GreaterThanOrEqual(parts[2])
	require.NoError(t, err)
	assert.True(t, first)

	_, err = m.Allocate(0)
	assert.Error(t, err)
}

func TestMoney_AllocateTwoDecimalCurrency(t *testing.T) {
	m, err := NewMoneyFromString("100.01", USD)
	require.NoError(t, err)

	parts, err := m.Allocate(2)
	require.NoError(t, err)
	sum := Zero(USD)
	for _, p := range parts {
		sum = sum.MustAdd(p)
	}
	assert.True(t, sum.Equals(m))
	assert.Equal(t, "50.01", parts[0].Amount().StringFixed(2))
	assert.Equal(t, "50.00", parts[1].Amount().StringFixed(2))
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := NewMoneyVNDFromInt(900000)
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoney_Predicates(t *testing.T) {
	assert.True(t, ZeroVND().IsZero())
	assert.True(t, NewMoneyVNDFromInt(1).IsPositive())
	assert.True(t, NewMoneyVNDFromInt(-1).IsNegative())
	assert.True(t, NewMoneyVNDFromInt(-5).Negate().IsPositive())
	assert.True(t, NewMoneyVNDFromInt(-5).Abs().IsPositive())
}
