package core

import (
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
			if !errors.Is(err, ErrInvalidAmount) {
				t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
			}
		}
	}
}

func TestParseBudgetToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"0", 0, true},
		{"100", 10000, true},
		{"99,99", 9999, true},
		{"-5", 0, false},
		{"x", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseBudgetToCents(tc.in)
		if tc.ok && (err != nil || got != tc.out) {
			t.Errorf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%q expected error", tc.in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		m    Money
		want string
	}{
		{Money{Cents: 9500}, "95.00"},
		{Money{Cents: 1}, "0.01"},
		{Money{Cents: 0}, "0.00"},
		{Money{Cents: -500}, "-5.00"},
		{Money{Cents: 123456}, "1234.56"},
	}
	for _, tc := range cases {
		if got := tc.m.String(); got != tc.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tc.m.Cents, got, tc.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 10000}
	b := Money{Cents: 10500}
	if got := a.Sub(b); got.Cents != -500 {
		t.Fatalf("Sub = %d, want -500", got.Cents)
	}
	if got := a.Add(b); got.Cents != 20500 {
		t.Fatalf("Add = %d, want 20500", got.Cents)
	}
	if got := b.Dollars(); got != 105 {
		t.Fatalf("Dollars = %v, want 105", got)
	}
}
