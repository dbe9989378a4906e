// Package quote renders the timestamp shown under a quoted message.
package quote

import (
	"time"
)

const (
	clock = "03:04 PM"
	date  = "01/02/2006"
)

// Format describes created relative to now in loc. The same calendar day
// gives "Today at 03:04 PM", any of the six days before it the weekday name,
// and older dates fall back to 01/02/2006. Dates after today keep the weekday
// form, which covers clock skew around midnight.
func Format(created, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	created = created.In(loc)
	now = now.In(loc)

	days := day(now) - day(created)
	switch {
	case days == 0:
		return "Today at " + created.Format(clock)
	case days < 7:
		return created.Format("Monday") + " at " + created.Format(clock)
	}
	return created.Format(date)
}

// day counts calendar days so daylight saving shifts do not move the boundary.
func day(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
