// Package core provides money parsing and handling utilities.
//
// Amounts are carried as integer cents; decimal strings are only
// touched at the boundaries.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseDecimalToCents converts a positive decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half-up on the third decimal place.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,345") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() || !cents.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseBudgetToCents is ParseDecimalToCents for budgets, where zero is allowed.
func ParseBudgetToCents(s string) (int64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, ErrNegativeBudget
	}
	cents := d.Mul(hundred).Round(0)
	if cents.IsNegative() || !cents.BigInt().IsInt64() {
		return 0, ErrNegativeBudget
	}
	return cents.IntPart(), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	return decimal.NewFromString(s)
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with two decimals, e.g. "95.00" or "-5.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Dollars returns the amount as a float64 for JSON and display only.
func (m Money) Dollars() float64 {
	return m.Decimal().InexactFloat64()
}
