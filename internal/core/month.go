package core

import (
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// MonthStart truncates t to the first day of its calendar month in UTC.
func MonthStart(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), 1)
}

// MonthStart returns the month key of d.
func (d Date) MonthStart() Date {
	return MonthStart(d.Time)
}

// NextMonth returns the first day of the month after d's month.
func (d Date) NextMonth() Date {
	m := d.MonthStart()
	return Date{Time: m.AddDate(0, 1, 0)}
}

// MonthLabel renders d's month as "March 2024".
func (d Date) MonthLabel() string {
	return d.Format("January 2006")
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ParseMonth accepts YYYY-MM or any YYYY-MM-DD within the month and
// returns the month key.
func ParseMonth(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(MonthLayout, s); err == nil {
		return MonthStart(t), nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return MonthStart(t), nil
	}
	return Date{}, ErrInvalidMonth
}
