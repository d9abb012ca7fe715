// Package core holds the banking domain: accounts, transactions and the
// pure transfer and aggregation functions operating on them.
//
// Amounts are fixed-point cents. User input and stored JSON numbers are
// converted through shopspring/decimal so no float rounding is involved.
package core

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor units (cents).
type Money struct {
	Cents int64
}

var (
	ErrAmountFormat   = errors.New("amount is not a number")
	ErrAmountOverflow = errors.New("amount out of range")
)

var maxAmount = decimal.New(1<<62, -2)

// Cents is a shorthand constructor.
func Cents(c int64) Money { return Money{Cents: c} }

// ParseAmount parses a user supplied decimal string and rounds it half-up to cents.
//
// Examples:
//
//	ParseAmount("200")    -> 20000
//	ParseAmount("12.345") -> 1235
//	ParseAmount("NaN")    -> ErrAmountFormat
//
// Zero and negative values parse successfully; positivity is a transfer rule.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrAmountFormat
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrAmountFormat, s)
	}
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	if d.Abs().GreaterThan(maxAmount) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: d.Round(2).Shift(2).IntPart()}, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimals, e.g. "-12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Add returns m+o clamped to the int64 range.
func (m Money) Add(o Money) Money {
	sum, err := m.CheckedAdd(o)
	if err == nil {
		return sum
	}
	if o.Cents > 0 {
		return Money{Cents: math.MaxInt64}
	}
	return Money{Cents: math.MinInt64}
}

// CheckedAdd returns m+o or ErrAmountOverflow when the sum leaves the int64 range.
func (m Money) CheckedAdd(o Money) (Money, error) {
	if (o.Cents > 0 && m.Cents > math.MaxInt64-o.Cents) || (o.Cents < 0 && m.Cents < math.MinInt64-o.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: m.Cents + o.Cents}, nil
}

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) IsPositive() bool { return m.Cents > 0 }

// MarshalJSON encodes the amount as a JSON number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string in major units.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*m = Money{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrAmountFormat, s)
	}
	parsed, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
