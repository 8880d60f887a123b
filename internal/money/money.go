// Package money is a fixed point currency amount stored as integer cents.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents.
type Money int64

var (
	ErrPrecision = errors.New("money: more than two decimal places")
	ErrOverflow  = errors.New("money: amount out of range")
)

func FromCents(c int64) Money { return Money(c) }

// Parse reads a decimal string such as "10", "10.5" or "10.50".
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return FromDecimal(d)
}

func FromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Round(2)) {
		return 0, ErrPrecision
	}
	cents := d.Shift(2)
	if !cents.BigInt().IsInt64() {
		return 0, fmt.Errorf("money: %s out of range", d.String())
	}
	return Money(cents.IntPart()), nil
}

func (m Money) Cents() int64 { return int64(m) }

// Add returns m+o, or ErrOverflow when the sum does not fit in int64 cents.
func (m Money) Add(o Money) (Money, error) {
	s := m + o
	if (o > 0 && s < m) || (o < 0 && s > m) {
		return 0, ErrOverflow
	}
	return s, nil
}

// Mul multiplies by a quantity, or returns ErrOverflow.
func (m Money) Mul(q int) (Money, error) {
	if m == 0 || q == 0 {
		return 0, nil
	}
	if m == math.MinInt64 && q == -1 {
		return 0, ErrOverflow
	}
	p := m * Money(q)
	if p/Money(q) != m {
		return 0, ErrOverflow
	}
	return p, nil
}

func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -2) }

func (m Money) String() string { return m.Decimal().StringFixed(2) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		uq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("money: %w", err)
		}
		s = uq
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
