package metric

import (
	"strings"
	"time"
)

// DayLayout is the format of a day key.
const DayLayout = time.DateOnly

// DayKey is the canonical UTC calendar date of t. Every day key in the
// package goes through here.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD day key as UTC midnight.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayLayout, strings.TrimSpace(s))
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay is the last representable instant of t's UTC day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// ExpandDays lists the day keys from start to end, both inclusive.
// It returns nil when start is after end.
func ExpandDays(start, end time.Time) []string {
	from, to := StartOfDay(start), StartOfDay(end)
	if from.After(to) {
		return nil
	}
	days := make([]string, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, DayKey(d))
	}
	return days
}
