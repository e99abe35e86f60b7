// Package money provides currency-safe arithmetic over integer minor units.
// Statement amounts arrive as decimal strings; totals that must not drift
// (EMI consolidation, summary lines) are accumulated here.
package money

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes seen on supported statements (ISO-4217).
const (
	INR = "INR"
	USD = "USD"
	EUR = "EUR"
)

// ErrCurrencyMismatch is returned when adding values of different currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money is an amount in minor units with its currency.
type Money struct {
	m *money.Money
}

// New creates Money from minor units (paise for INR).
func New(minor int64, currencyCode string) *Money {
	return &Money{m: money.New(minor, currencyCode)}
}

// Zero returns a zero amount in the given currency.
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// FromDecimal rounds d to the currency's minor unit.
func FromDecimal(d decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(INR)
		currencyCode = INR
	}
	minor := d.Shift(int32(currency.Fraction)).Round(0).IntPart()
	return New(minor, currencyCode)
}

// Sum adds values that share a currency. An empty list sums to zero INR.
func Sum(values ...*Money) (*Money, error) {
	if len(values) == 0 {
		return Zero(INR), nil
	}
	total := Zero(values[0].Currency())
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}

// Amount returns the value in minor units.
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 code.
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

func (m *Money) IsZero() bool     { return m.Amount() == 0 }
func (m *Money) IsNegative() bool { return m.Amount() < 0 }

// Abs returns the magnitude.
func (m *Money) Abs() *Money {
	if m == nil || m.m == nil {
		return nil
	}
	return &Money{m: m.m.Absolute()}
}

// Add returns m + other.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	if !m.m.SameCurrency(other.m) {
		return nil, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency(), other.Currency())
	}
	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, err
	}
	return &Money{m: result}, nil
}

// Display formats with the currency symbol, e.g. "₹1,234.56".
func (m *Money) Display() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Display()
}

// String returns the plain decimal form, e.g. "1234.56".
func (m *Money) String() string {
	return m.ToDecimal().StringFixed(m.fraction())
}

// ToDecimal converts back to a decimal in major units.
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.New(m.m.Amount(), -int32(m.fraction()))
}

// Float64 is for JSON and canonical transaction amounts only.
func (m *Money) Float64() float64 {
	return m.ToDecimal().InexactFloat64()
}

func (m *Money) fraction() int32 {
	if m == nil || m.m == nil {
		return 2
	}
	return int32(m.m.Currency().Fraction)
}

func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(map[string]any{
		"amount":   m.String(),
		"currency": m.Currency(),
		"display":  m.Display(),
	})
}
