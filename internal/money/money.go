// Package money holds all currency arithmetic for the platform.
//
// Amounts are fixed-point decimals with exactly 2 fractional digits and
// round-half-up rounding for every derived quantity. Binary floats are never
// used for anything that represents money; they can't represent base-10 kobo
// exactly and the error compounds across operations.
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid monetary amount")

// Money is an immutable two-decimal-place currency amount.
type Money struct {
	d decimal.Decimal
}

func Zero() Money {
	return Money{d: decimal.Zero}
}

// Parse converts a user-supplied amount string into Money.
// Non-numeric input fails with ErrInvalidAmount. Whether a zero or negative
// amount is acceptable is the caller's decision, not ours.
func Parse(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}

	return FromDecimal(d), nil
}

// FromDecimal quantizes an arbitrary decimal to 2 places, rounding half-up.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Round(2)}
}

// FromKobo converts a kobo (minor unit) integer into a naira Money value.
// Paystack amounts are always expressed in kobo.
func FromKobo(kobo int64) Money {
	return Money{d: decimal.New(kobo, -2)}
}

// Kobo returns the amount in the minor unit, the form Paystack expects.
func (m Money) Kobo() int64 {
	return m.d.Mul(decimal.New(100, 0)).IntPart()
}

func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// Mul applies a rate (e.g. a fee fraction like 0.10) and re-quantizes the
// result to 2 places, half-up.
func (m Money) Mul(rate decimal.Decimal) Money {
	return FromDecimal(m.d.Mul(rate))
}

func (m Money) Equal(other Money) bool {
	return m.d.Equal(other.d)
}

func (m Money) GreaterThan(other Money) bool {
	return m.d.GreaterThan(other.d)
}

func (m Money) LessThan(other Money) bool {
	return m.d.LessThan(other.d)
}

func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

func (m Money) IsZero() bool {
	return m.d.IsZero()
}

func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// String always renders with 2 decimal places, e.g. "1000.00".
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// ParseRate parses a configured fraction (e.g. "0.10" for a 10% fee).
func ParseRate(value string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid rate %q: %w", value, err)
	}

	return rate, nil
}

// Value implements driver.Valuer so Money maps onto NUMERIC(12,2) columns.
func (m Money) Value() (driver.Value, error) {
	return m.d.StringFixed(2), nil
}

// Scan implements sql.Scanner.
func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}

	m.d = d.Round(2)
	return nil
}

// MarshalJSON renders the amount as a quoted decimal string so clients never
// see float artifacts.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	parsed, err := Parse(s)
	if err != nil {
		return err
	}

	*m = parsed
	return nil
}
