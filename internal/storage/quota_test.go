package storage

import (
	"testing"
	"time"
)

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"monday maps to itself",
			time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC),
			time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			"sunday maps to previous monday",
			time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		},
		{
			"wednesday maps back two days",
			time.Date(2026, 8, 26, 0, 0, 1, 0, time.UTC),
			time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(tt.in); !got.Equal(tt.want) {
				t.Errorf("WeekStart(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWeekStart_NonUTCInput(t *testing.T) {
	loc := time.FixedZone("GST", 4*3600)
	// 01:00 Monday in GST is 21:00 Sunday UTC; the week bucket is UTC-based.
	in := time.Date(2026, 8, 24, 1, 0, 0, 0, loc)
	want := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)
	if got := WeekStart(in); !got.Equal(want) {
		t.Errorf("WeekStart(%v) = %v, want %v", in, got, want)
	}
}

func TestDaysUntilReset(t *testing.T) {
	tests := []struct {
		day  time.Time
		want int
	}{
		{time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC), 7}, // Monday
		{time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC), 5}, // Wednesday
		{time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC), 2}, // Saturday
		{time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC), 1}, // Sunday
	}
	for _, tt := range tests {
		if got := DaysUntilReset(tt.day); got != tt.want {
			t.Errorf("DaysUntilReset(%v) = %d, want %d", tt.day, got, tt.want)
		}
	}
}
