package domain

import (
	"testing"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Calendar Day Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestDaysBetween(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", date(2025, 1, 1), date(2025, 1, 1).Add(23 * time.Hour), 0},
		{"next day", date(2025, 1, 1), date(2025, 1, 2), 1},
		{"backwards", date(2025, 1, 5), date(2025, 1, 1), -4},
		{"leap year", date(2024, 2, 28), date(2024, 3, 1), 2},
		{"beyond duration range", date(1, 1, 1), date(9999, 12, 31), 3652058},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("DaysBetween = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysBetween_UsesLocalDate(t *testing.T) {
	east := time.FixedZone("UTC+10", 10*60*60)
	// 23:30 on Jan 1 in UTC+10 is still Jan 1 there, even though it is Jan 1 13:30 UTC.
	a := time.Date(2025, 1, 1, 23, 30, 0, 0, east)
	b := time.Date(2025, 1, 2, 0, 30, 0, 0, east)
	if got := DaysBetween(a, b); got != 1 {
		t.Errorf("DaysBetween = %d, want 1", got)
	}
}
