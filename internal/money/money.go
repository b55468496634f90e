// Package money converts between decimal price strings and integer minor units.
package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalid   = errors.New("not a valid price")
	ErrNegative  = errors.New("price cannot be negative")
	ErrPrecision = errors.New("price has more than two decimal places")
	ErrTooLarge  = errors.New("price is too large")
)

var maxCents = decimal.NewFromInt(math.MaxInt64 / 1000)

// ParseCents turns "9.99" into 999.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, ErrInvalid
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalid
	}
	if d.IsNegative() {
		return 0, ErrNegative
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, ErrPrecision
	}
	if cents.GreaterThan(maxCents) {
		return 0, ErrTooLarge
	}
	return cents.IntPart(), nil
}

func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func LineTotal(unitCents int64, qty int) int64 {
	return unitCents * int64(qty)
}
