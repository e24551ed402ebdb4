package ingestion

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBusinessDaysBetween(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		// 2025-04-07 is a Monday
		{name: "full week", start: day(2025, 4, 7), end: day(2025, 4, 13), want: 5},
		{name: "weekend only", start: day(2025, 4, 12), end: day(2025, 4, 13), want: 0},
		{name: "single weekday", start: day(2025, 4, 9), end: day(2025, 4, 9), want: 1},
		{name: "empty range", start: day(2025, 4, 10), end: day(2025, 4, 9), want: 0},
		{name: "two weeks", start: day(2025, 4, 7), end: day(2025, 4, 20), want: 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			days := businessDaysBetween(tc.start, tc.end)
			if len(days) != tc.want {
				t.Fatalf("want %d days got %d", tc.want, len(days))
			}
			for i, d := range days {
				if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
					t.Fatalf("weekend day returned: %v", d)
				}
				if i > 0 && !days[i-1].Before(d) {
					t.Fatal("days must be strictly increasing")
				}
			}
		})
	}
}

func TestBusinessDaysBetween_TruncatesTime(t *testing.T) {
	start := time.Date(2025, 4, 7, 15, 30, 0, 0, time.UTC)
	end := time.Date(2025, 4, 8, 1, 0, 0, 0, time.UTC)
	days := businessDaysBetween(start, end)
	if len(days) != 2 {
		t.Fatalf("want 2 days got %d", len(days))
	}
	if days[0].Hour() != 0 {
		t.Fatal("days must be truncated to midnight")
	}
}
