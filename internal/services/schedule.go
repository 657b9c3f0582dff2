package services

import (
	"time"

	"expensetracker/internal/core"
)

// SummarySchedule decides when the monthly summary run is due. The run
// happens once per calendar month, on or after Day, and covers the
// previous month.
type SummarySchedule struct {
	// Day of the month to run on. Days past the end of a short month
	// clamp to its last day.
	Day int
}

// IsDue reports whether a run should happen at now given the last run time.
func (s SummarySchedule) IsDue(lastRun, now time.Time) bool {
	if !lastRun.IsZero() && lastRun.Year() == now.Year() && lastRun.Month() == now.Month() {
		return false
	}
	return now.Day() >= s.targetDay(now)
}

func (s SummarySchedule) targetDay(now time.Time) int {
	day := s.Day
	if day < 1 {
		day = 1
	}
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return day
}

// Month returns the month a run at now reports on: the one before now.
func (s SummarySchedule) Month(now time.Time) core.Date {
	first := core.MonthStart(now)
	return core.Date{Time: first.AddDate(0, -1, 0)}
}
