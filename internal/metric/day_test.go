package metric

import (
	"testing"
	"time"
)

func TestExpandDays(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       []string
	}{
		{
			name:  "inclusive range",
			start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
			want:  []string{"2025-01-01", "2025-01-02", "2025-01-03"},
		},
		{
			name:  "single day",
			start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  []string{"2025-01-01"},
		},
		{
			name:  "crosses month and leap day",
			start: time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			want:  []string{"2024-02-28", "2024-02-29", "2024-03-01"},
		},
		{
			name:  "offset zone normalized to UTC",
			start: time.Date(2025, 1, 2, 3, 0, 0, 0, time.FixedZone("IST", 5*3600+1800)),
			end:   time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC),
			want:  []string{"2025-01-01", "2025-01-02"},
		},
		{
			name:  "reversed",
			start: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
			end:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandDays(tt.start, tt.end)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("day %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDayBounds(t *testing.T) {
	ts := time.Date(2025, 6, 15, 23, 10, 0, 0, time.FixedZone("EST", -5*3600))

	if got := DayKey(ts); got != "2025-06-16" {
		t.Errorf("DayKey = %s, want 2025-06-16", got)
	}
	if got := StartOfDay(ts); !got.Equal(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartOfDay = %v", got)
	}
	end := EndOfDay(ts)
	if DayKey(end) != "2025-06-16" || DayKey(end.Add(time.Nanosecond)) != "2025-06-17" {
		t.Errorf("EndOfDay = %v is not the last instant of the day", end)
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay(" 2025-01-02 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Location() != time.UTC || DayKey(d) != "2025-01-02" {
		t.Errorf("got %v", d)
	}
	for _, bad := range []string{"", "2025-13-01", "02/01/2025", "2025-01-02T00:00:00Z"} {
		if _, err := ParseDay(bad); err == nil {
			t.Errorf("ParseDay(%q) expected error", bad)
		}
	}
}
