package reminder

import (
	"strconv"
	"time"
)

// Until renders the time left before due as a coarse phrase ("in 2 hours").
// Anything already past is "overdue"; it never reads as future.
func Until(due, now time.Time) string {
	diff := due.Sub(now)
	if diff < 0 {
		return "overdue"
	}
	secs := int64(diff / time.Second)
	switch {
	case secs == 0:
		return "now"
	case secs < 60:
		return in(secs, "second")
	case secs < 3600:
		return in(secs/60, "minute")
	case secs < 86400:
		return in(secs/3600, "hour")
	case secs < 604800:
		return in(secs/86400, "day")
	default:
		return in(secs/604800, "week")
	}
}

func in(n int64, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return "in " + strconv.FormatInt(n, 10) + " " + unit
}

// Absolute renders due relative to the calendar: "Today at 03:00 PM",
// "Monday at 09:00 AM", "Jan 15 at 03:00 PM", "Jan 15, 2027 at 03:00 PM".
func Absolute(due, now time.Time) string {
	due = due.In(now.Location())
	dy, dm, dd := due.Date()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(dy, dm, dd, 0, 0, 0, 0, now.Location())
	days := int(day.Sub(today).Hours()/24 + 0.5)
	if day.Before(today) {
		days = -int(today.Sub(day).Hours()/24 + 0.5)
	}

	switch {
	case days == 0:
		return due.Format("Today at 03:04 PM")
	case days == 1:
		return due.Format("Tomorrow at 03:04 PM")
	case days > 1 && days <= 7:
		return due.Format("Monday at 03:04 PM")
	case dy == now.Year():
		return due.Format("Jan 02 at 03:04 PM")
	default:
		return due.Format("Jan 02, 2006 at 03:04 PM")
	}
}

// Display is the read-only column text for a task's reminder: the relative
// phrase, suffixed with "(r)" when it repeats. Empty when there is none.
func Display(st State, now time.Time) string {
	if !st.Active() {
		return ""
	}
	s := Until(st.DueAt, now)
	if st.Recurring() {
		s += " (r)"
	}
	return s
}
