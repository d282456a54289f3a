package billing

import "time"

// CalendarDay returns the calendar date of t as seen in loc, as midnight UTC.
// Due dates and "today" are both compared in this form.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
