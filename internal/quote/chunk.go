package quote

import "time"

type DateRange struct {
	From time.Time
	To   time.Time
}

// Days is the number of calendar days the range covers, both ends included.
func (r DateRange) Days() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// SplitDateRange cuts [from, to] into consecutive ranges of at most maxDays
// days each. Both bounds are truncated to UTC midnight first.
func SplitDateRange(from, to time.Time, maxDays int) []DateRange {
	from, to = utcDay(from), utcDay(to)
	if from.After(to) || maxDays <= 0 {
		return nil
	}

	var chunks []DateRange
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, maxDays) {
		end := cur.AddDate(0, 0, maxDays-1)
		if end.After(to) {
			end = to
		}
		chunks = append(chunks, DateRange{From: cur, To: end})
	}
	return chunks
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
