package reminder

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which grammar branch produced a Parsed value.
type Kind int

const (
	KindKeyword Kind = iota + 1
	KindNext
	KindDuration
	KindExplicitDate
	KindWeekday
)

func (k Kind) String() string {
	switch k {
	case KindKeyword:
		return "keyword"
	case KindNext:
		return "next"
	case KindDuration:
		return "duration"
	case KindExplicitDate:
		return "date"
	case KindWeekday:
		return "weekday"
	default:
		return "unknown"
	}
}

// Default times of day.
const (
	TodayHour   = 15
	DefaultHour = 9
)

// Parsed is the result of Parse.
type Parsed struct {
	Kind Kind
	At   time.Time

	// Recurring is set when the expression ended with "repeat"; Every then
	// holds the recurrence interval.
	Recurring bool
	Every     Interval

	// UnitAmbiguous is set alongside ErrAmbiguousUnit.
	UnitAmbiguous bool
}

const repeatWord = "repeat"

type branch func(body string, now time.Time, recurring bool) (Parsed, bool, error)

// Branch order is the grammar priority; first match wins.
var branches = []branch{
	parseKeyword,
	parseNext,
	parseDuration,
	parseExplicitDate,
	parseWeekday,
}

// Parse resolves a reminder expression relative to now. It never guesses:
// anything not covered by the grammar is an error.
func Parse(text string, now time.Time) (Parsed, error) {
	s := normalize(text)
	if s == "" {
		return Parsed{}, &ParseError{Input: text, Err: ErrEmpty}
	}

	body, recurring := s, false
	if f := strings.Fields(s); len(f) > 1 && f[len(f)-1] == repeatWord {
		body = strings.Join(f[:len(f)-1], " ")
		recurring = true
	}

	for _, br := range branches {
		p, ok, err := br(body, now, recurring)
		if err != nil {
			if errors.Is(err, ErrAmbiguousUnit) {
				p.UnitAmbiguous = true
			}
			return p, &ParseError{Input: text, Err: err}
		}
		if ok {
			return p, nil
		}
	}

	// A "<int> <word>" shape that nothing else claimed is a bad unit.
	if m := reInterval.FindStringSubmatch(body); m != nil {
		return Parsed{}, &ParseError{Input: text, Err: ErrUnknownUnit}
	}
	return Parsed{}, &ParseError{Input: text, Err: ErrUnrecognized}
}

func parseKeyword(body string, now time.Time, recurring bool) (Parsed, bool, error) {
	var at time.Time
	switch body {
	case "today":
		at = clock(now, TodayHour, 0, 0)
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
	case "tomorrow":
		at = clock(now, DefaultHour, 0, 0).AddDate(0, 0, 1)
	default:
		return Parsed{}, false, nil
	}
	p := Parsed{Kind: KindKeyword, At: at}
	if recurring {
		p.Recurring, p.Every = true, Interval{Count: 1, Unit: Days}
	}
	return p, true, nil
}

func parseNext(body string, now time.Time, recurring bool) (Parsed, bool, error) {
	f := strings.Fields(body)
	if len(f) != 2 || f[0] != "next" {
		return Parsed{}, false, nil
	}
	u, err := lookupUnit(f[1])
	if err != nil {
		return Parsed{}, false, err
	}
	iv := Interval{Count: 1, Unit: u}
	p := Parsed{Kind: KindNext, At: iv.AddTo(now, 1)}
	if recurring {
		p.At, p.Recurring, p.Every = iv.NextAfter(now, now), true, iv
	}
	return p, true, nil
}

func parseDuration(body string, now time.Time, recurring bool) (Parsed, bool, error) {
	iv, matched, err := parseIntervalBody(body)
	if errors.Is(err, ErrUnknownUnit) {
		// "25 aug" and friends belong to the date branch.
		return Parsed{}, false, nil
	}
	if err != nil || !matched {
		return Parsed{}, false, err
	}
	p := Parsed{Kind: KindDuration, At: iv.AddTo(now, 1)}
	if recurring {
		if iv.IsZero() {
			return Parsed{}, false, ErrInvalidNumber
		}
		p.At, p.Recurring, p.Every = iv.NextAfter(now, now), true, iv
	}
	return p, true, nil
}

var (
	reISODate  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[ t](\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)
	reDayMonth = regexp.MustCompile(`^(\d{1,2}) ([a-z]+)(?:/(\d{2}|\d{4}))?(?: (\S+))?$`)
	reDayOnly  = regexp.MustCompile(`^(\d{1,2})$`)
)

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

func parseExplicitDate(body string, now time.Time, recurring bool) (Parsed, bool, error) {
	if m := reISODate.FindStringSubmatch(body); m != nil {
		if recurring {
			return Parsed{}, false, ErrRepeatNotAllowed
		}
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		h, mi, sec := DefaultHour, 0, 0
		if m[4] != "" {
			h, _ = strconv.Atoi(m[4])
			mi, _ = strconv.Atoi(m[5])
			if m[6] != "" {
				sec, _ = strconv.Atoi(m[6])
			}
			if h > 23 || mi > 59 || sec > 59 {
				return Parsed{}, false, ErrInvalidTime
			}
		}
		at, err := date(y, time.Month(mo), d, h, mi, sec, now.Location())
		if err != nil {
			return Parsed{}, false, err
		}
		if !at.After(now) {
			return Parsed{}, false, ErrPastDate
		}
		return Parsed{Kind: KindExplicitDate, At: at}, true, nil
	}

	if m := reDayMonth.FindStringSubmatch(body); m != nil {
		month, ok := monthNames[m[2]]
		if !ok {
			return Parsed{}, false, nil
		}
		d, _ := strconv.Atoi(m[1])
		h, mi := DefaultHour, 0
		if m[4] != "" {
			var err error
			if h, mi, err = parseClock(m[4]); err != nil {
				return Parsed{}, false, err
			}
		}
		if m[3] != "" {
			if recurring {
				return Parsed{}, false, ErrRepeatNotAllowed
			}
			y, _ := strconv.Atoi(m[3])
			if len(m[3]) == 2 {
				y += 2000
			}
			at, err := date(y, month, d, h, mi, 0, now.Location())
			if err != nil {
				return Parsed{}, false, err
			}
			if !at.After(now) {
				return Parsed{}, false, ErrPastDate
			}
			return Parsed{Kind: KindExplicitDate, At: at}, true, nil
		}
		// No year: the next occurrence, this year or the following one.
		var at time.Time
		for y := now.Year(); y <= now.Year()+4; y++ {
			cand, err := date(y, month, d, h, mi, 0, now.Location())
			if err != nil {
				// Feb 29 outside a leap year.
				if d == 29 && month == time.February {
					continue
				}
				return Parsed{}, false, err
			}
			if cand.After(now) {
				at = cand
				break
			}
		}
		if at.IsZero() {
			return Parsed{}, false, ErrInvalidDate
		}
		p := Parsed{Kind: KindExplicitDate, At: at}
		if recurring {
			p.Recurring, p.Every = true, Interval{Count: 1, Unit: Years}
		}
		return p, true, nil
	}

	if m := reDayOnly.FindStringSubmatch(body); m != nil {
		d, _ := strconv.Atoi(m[1])
		if d < 1 || d > 31 {
			return Parsed{}, false, ErrInvalidDate
		}
		at := nextDayOfMonth(now, d, DefaultHour, 0)
		p := Parsed{Kind: KindExplicitDate, At: at}
		if recurring {
			p.Recurring, p.Every = true, Interval{Count: 1, Unit: Months}
		}
		return p, true, nil
	}
	return Parsed{}, false, nil
}

func nextDayOfMonth(now time.Time, day, hour, min int) time.Time {
	y, mo, _ := now.Date()
	for i := 0; ; i++ {
		first := time.Date(y, mo+time.Month(i), 1, hour, min, 0, 0, now.Location())
		if daysIn(first) < day {
			continue
		}
		cand := first.AddDate(0, 0, day-1)
		if cand.After(now) {
			return cand
		}
	}
}

func daysIn(first time.Time) int {
	return first.AddDate(0, 1, -1).Day()
}

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

func parseWeekday(body string, now time.Time, recurring bool) (Parsed, bool, error) {
	f := strings.Fields(body)
	if len(f) == 0 || len(f) > 2 {
		return Parsed{}, false, nil
	}
	wd, ok := weekdayNames[f[0]]
	if !ok {
		return Parsed{}, false, nil
	}
	h, mi := DefaultHour, 0
	if len(f) == 2 {
		var err error
		if h, mi, err = parseClock(f[1]); err != nil {
			return Parsed{}, false, err
		}
	}
	p := Parsed{Kind: KindWeekday, At: nextWeekday(now, wd, h, mi)}
	if recurring {
		p.Recurring, p.Every = true, Interval{Count: 1, Unit: Weeks}
	}
	return p, true, nil
}

// nextWeekday is today when the time has not passed yet, otherwise the
// following occurrence.
func nextWeekday(now time.Time, wd time.Weekday, hour, min int) time.Time {
	delta := (int(wd) - int(now.Weekday()) + 7) % 7
	at := clock(now, hour, min, 0).AddDate(0, 0, delta)
	if !at.After(now) {
		at = at.AddDate(0, 0, 7)
	}
	return at
}

var reClock = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)?$`)

// parseClock reads "9", "14", "9:30", "9am", "12pm".
func parseClock(s string) (hour, min int, err error) {
	m := reClock.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, ErrInvalidTime
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
		if min > 59 {
			return 0, 0, ErrInvalidTime
		}
	}
	switch m[3] {
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, ErrInvalidTime
		}
		if hour == 12 {
			hour = 0
		}
		if m[3] == "pm" {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, ErrInvalidTime
		}
	}
	return hour, min, nil
}

func clock(now time.Time, hour, min, sec int) time.Time {
	y, mo, d := now.Date()
	return time.Date(y, mo, d, hour, min, sec, 0, now.Location())
}

// date builds a calendar date and rejects values time.Date would normalise
// (Feb 30, month 13).
func date(y int, mo time.Month, d, h, mi, sec int, loc *time.Location) (time.Time, error) {
	t := time.Date(y, mo, d, h, mi, sec, 0, loc)
	if t.Year() != y || t.Month() != mo || t.Day() != d {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}
