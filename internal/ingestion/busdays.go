package ingestion

import "time"

// businessDaysBetween returns every Monday–Friday calendar day in
// [start, end], truncated to dates, in chronological order. No holiday
// calendar is applied; the source publishes files for plain weekdays.
func businessDaysBetween(start, end time.Time) []time.Time {
	var days []time.Time
	for d := truncateToDate(start); !d.After(truncateToDate(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
