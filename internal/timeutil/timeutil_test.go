package timeutil

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-05")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if got := FormatDate(d); got != "2026-01-05" {
		t.Errorf("FormatDate() = %q, want 2026-01-05", got)
	}

	for _, bad := range []string{"", "2026-1-5", "05/01/2026", "garbage"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) expected error", bad)
		}
	}
}

func TestClockToMinutes(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:00", 480, false},
		{"09:45", 585, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9:00am", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ClockToMinutes(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ClockToMinutes(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ClockToMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMinutesToClock(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{480, "08:00"},
		{585, "09:45"},
		{1439, "23:59"},
	}

	for _, tt := range tests {
		if got := MinutesToClock(tt.in); got != tt.want {
			t.Errorf("MinutesToClock(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)

	if got := DaysBetween(a, b); got != 7 {
		t.Errorf("DaysBetween() = %d, want 7", got)
	}
	if got := DaysBetween(b, a); got != -7 {
		t.Errorf("DaysBetween() reversed = %d, want -7", got)
	}
	if got := DaysBetween(a, a); got != 0 {
		t.Errorf("DaysBetween() same day = %d, want 0", got)
	}
}

func TestWeekdayIndex(t *testing.T) {
	// 2024-01-01 was a Monday; 2024-01-07 a Sunday.
	mon := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sun := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

	if got := WeekdayIndex(mon); got != 1 {
		t.Errorf("WeekdayIndex(monday) = %d, want 1", got)
	}
	if got := WeekdayIndex(sun); got != 0 {
		t.Errorf("WeekdayIndex(sunday) = %d, want 0", got)
	}
}

func TestActiveOnDate(t *testing.T) {
	tests := []struct {
		name             string
		start, end, date string
		want             bool
	}{
		{"single day match", "2026-01-05", "", "2026-01-05", true},
		{"single day miss", "2026-01-05", "", "2026-01-06", false},
		{"span start", "2026-01-05", "2026-01-08", "2026-01-05", true},
		{"span middle", "2026-01-05", "2026-01-08", "2026-01-06", true},
		{"span end inclusive", "2026-01-05", "2026-01-08", "2026-01-08", true},
		{"before span", "2026-01-05", "2026-01-08", "2026-01-04", false},
		{"after span", "2026-01-05", "2026-01-08", "2026-01-09", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActiveOnDate(tt.start, tt.end, tt.date); got != tt.want {
				t.Errorf("ActiveOnDate(%q, %q, %q) = %v, want %v", tt.start, tt.end, tt.date, got, tt.want)
			}
		})
	}
}
