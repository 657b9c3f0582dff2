package services

import (
	"testing"
	"time"
)

func TestSummaryScheduleIsDue(t *testing.T) {
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name    string
		day     int
		lastRun time.Time
		now     time.Time
		want    bool
	}{
		{"never run, on day", 1, time.Time{}, at(2024, 3, 1), true},
		{"never run, before day", 5, time.Time{}, at(2024, 3, 4), false},
		{"already ran this month", 1, at(2024, 3, 1), at(2024, 3, 20), false},
		{"new month, on day", 1, at(2024, 2, 1), at(2024, 3, 1), true},
		{"new month, before day", 10, at(2024, 2, 10), at(2024, 3, 9), false},
		{"day clamps to short month", 31, at(2024, 1, 31), at(2024, 2, 29), true},
		{"new year", 1, at(2023, 12, 1), at(2024, 1, 2), true},
		{"zero day treated as first", 0, time.Time{}, at(2024, 3, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SummarySchedule{Day: tt.day}
			if got := s.IsDue(tt.lastRun, tt.now); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummaryScheduleMonth(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "2024-02-01"},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2023-12-01"},
	}
	for _, tt := range tests {
		if got := (SummarySchedule{Day: 1}).Month(tt.now).String(); got != tt.want {
			t.Errorf("Month(%s) = %s, want %s", tt.now.Format(time.DateOnly), got, tt.want)
		}
	}
}
