package money

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Construction
// ============================================================================

func TestFromDecimal_UnknownCurrencyFallsBackToINR(t *testing.T) {
	m := FromDecimal(decimal.RequireFromString("12.34"), "XXX-NOT-REAL")
	assert.Equal(t, INR, m.Currency())
	assert.Equal(t, int64(1234), m.Amount())
}

// ============================================================================
// Arithmetic
// ============================================================================

func TestSum(t *testing.T) {
	total, err := Sum(New(250000, INR), New(3750, INR), New(675, INR), New(675, INR))
	require.NoError(t, err)
	assert.Equal(t, int64(255100), total.Amount())
	assert.Equal(t, "2551.00", total.String())

	empty, err := Sum()
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestSum_CurrencyMismatch(t *testing.T) {
	_, err := Sum(New(100, INR), New(100, USD))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestDecimalRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("0.10").Add(decimal.RequireFromString("0.20"))
	m := FromDecimal(d, INR)
	assert.True(t, m.ToDecimal().Equal(decimal.RequireFromString("0.30")))
	assert.Equal(t, 0.3, m.Float64())
}

func TestAbsAndSign(t *testing.T) {
	m := New(-1500, INR)
	assert.True(t, m.IsNegative())
	assert.Equal(t, int64(1500), m.Abs().Amount())
	assert.Equal(t, INR, m.Abs().Currency())
}

func TestNilSafety(t *testing.T) {
	var m *Money
	assert.Equal(t, int64(0), m.Amount())
	assert.True(t, m.IsZero())
	assert.Equal(t, "0.00", m.String())

	sum, err := m.Add(New(100, INR))
	require.NoError(t, err)
	assert.Equal(t, int64(100), sum.Amount())
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(New(123456, INR))
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "1234.56", out["amount"])
	assert.Equal(t, INR, out["currency"])
	assert.Contains(t, out["display"], "1,234.56")
}

// ============================================================================
// Generator
// ============================================================================

func TestTestDataGenerator_Reproducible(t *testing.T) {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	a := NewTestDataGeneratorWithSeed(42).Lines(start, 30, 20)
	b := NewTestDataGeneratorWithSeed(42).Lines(start, 30, 20)
	require.Len(t, a, 20)

	for i := range a {
		assert.Equal(t, a[i].Description, b[i].Description)
		assert.Equal(t, a[i].Amount.Amount(), b[i].Amount.Amount())
		assert.False(t, a[i].Date.Before(start))
		assert.False(t, a[i].Date.After(start.AddDate(0, 0, 30)))
		assert.GreaterOrEqual(t, a[i].Amount.Amount(), int64(1000))
		assert.Less(t, a[i].Amount.Amount(), int64(2500000))
		assert.Contains(t, a[i].Description, a[i].Merchant)
	}
}

func BenchmarkSum(b *testing.B) {
	g := NewTestDataGeneratorWithSeed(1)
	values := make([]*Money, 100)
	for i := range values {
		values[i] = g.Amount(1, 1000)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Sum(values...)
	}
}
