package reminder

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Unit is a canonical time unit understood by the parser.
type Unit int

const (
	UnitNone Unit = iota
	Seconds
	Minutes
	Hours
	Days
	Weeks
	Months
	Quarters
	Years
	Decades
)

var unitNames = map[Unit][2]string{
	Seconds:  {"second", "seconds"},
	Minutes:  {"minute", "minutes"},
	Hours:    {"hour", "hours"},
	Days:     {"day", "days"},
	Weeks:    {"week", "weeks"},
	Months:   {"month", "months"},
	Quarters: {"quarter", "quarters"},
	Years:    {"year", "years"},
	Decades:  {"decade", "decades"},
}

func (u Unit) String() string {
	if n, ok := unitNames[u]; ok {
		return n[1]
	}
	return "none"
}

// unitTable is part of the external contract: handler scripts and users rely
// on exactly these spellings. Do not add entries without bumping the docs.
var unitTable = []struct {
	unit  Unit
	words []string
}{
	{Seconds, []string{"sec", "secs", "s", "second", "seconds"}},
	{Minutes, []string{"min", "mins", "m", "minute", "minutes"}},
	{Hours, []string{"hr", "hrs", "h", "ho", "hour", "hours"}},
	{Days, []string{"d", "day", "days"}},
	{Weeks, []string{"w", "wk", "wks", "week", "weeks"}},
	{Months, []string{"mo", "mon", "mos", "month", "months"}},
	{Quarters, []string{"q", "qtr", "quarter", "quarters"}},
	{Years, []string{"y", "yr", "yrs", "year", "years"}},
	{Decades, []string{"decade", "decades"}},
}

// lookupUnit resolves a whole token against the unit table. The token is
// compared as a whole word, so "mo" never resolves through "m".
func lookupUnit(word string) (Unit, error) {
	var found Unit
	for _, row := range unitTable {
		for _, w := range row.words {
			if w != word {
				continue
			}
			if found != UnitNone && found != row.unit {
				return UnitNone, ErrAmbiguousUnit
			}
			found = row.unit
		}
	}
	if found == UnitNone {
		return UnitNone, ErrUnknownUnit
	}
	return found, nil
}

// ValidateUnits reports the first synonym that maps to more than one unit.
func ValidateUnits() error {
	seen := map[string]Unit{}
	for _, row := range unitTable {
		for _, w := range row.words {
			if prev, ok := seen[w]; ok && prev != row.unit {
				return fmt.Errorf("%w: %q maps to %s and %s", ErrAmbiguousUnit, w, prev, row.unit)
			}
			seen[w] = row.unit
		}
	}
	return nil
}

// Interval is Count×Unit. Month based units use calendar arithmetic.
type Interval struct {
	Count int
	Unit  Unit
}

func (iv Interval) IsZero() bool { return iv.Count <= 0 || iv.Unit == UnitNone }

// String renders the interval so that ParseInterval can read it back.
func (iv Interval) String() string {
	if iv.IsZero() {
		return ""
	}
	n := unitNames[iv.Unit]
	if iv.Count == 1 {
		return "1 " + n[0]
	}
	return strconv.Itoa(iv.Count) + " " + n[1]
}

// AddTo returns t advanced by k intervals. Month based units keep t's day of
// month, clamped to the last day of a shorter target month ("1 month" from
// Jan 31 is Feb 29 in a leap year).
func (iv Interval) AddTo(t time.Time, k int) time.Time {
	n := iv.Count * k
	if m := monthsIn(iv.Unit); m > 0 {
		at, _ := addMonths(t, m*n)
		return at
	}
	switch iv.Unit {
	case Seconds:
		return t.Add(time.Duration(n) * time.Second)
	case Minutes:
		return t.Add(time.Duration(n) * time.Minute)
	case Hours:
		return t.Add(time.Duration(n) * time.Hour)
	case Days:
		return t.AddDate(0, 0, n)
	case Weeks:
		return t.AddDate(0, 0, 7*n)
	default:
		return t
	}
}

// monthsIn is the number of calendar months in one unit, 0 for units of a
// fixed length.
func monthsIn(u Unit) int {
	switch u {
	case Months:
		return 1
	case Quarters:
		return 3
	case Years:
		return 12
	case Decades:
		return 120
	default:
		return 0
	}
}

// addMonths moves t by n calendar months keeping the clock. When t's day
// does not exist in the target month the result is that month's last day
// and false.
func addMonths(t time.Time, n int) (time.Time, bool) {
	y, mo, d := t.Date()
	hh, mm, ss := t.Clock()
	first := time.Date(y, mo+time.Month(n), 1, hh, mm, ss, t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		return first.AddDate(0, 0, last-1), false
	}
	return first.AddDate(0, 0, d-1), true
}

// occurrence is anchor+k×iv on the recurrence grid. Month based grids have
// no occurrence in a month lacking the anchor's day; ok is false there.
func (iv Interval) occurrence(anchor time.Time, k int) (time.Time, bool) {
	if m := monthsIn(iv.Unit); m > 0 {
		return addMonths(anchor, m*iv.Count*k)
	}
	return iv.AddTo(anchor, k), true
}

// Approx is the nominal length of the interval (months count as 30 days),
// saturating at the largest time.Duration. Display and validation only;
// scheduling goes through AddTo.
func (iv Interval) Approx() time.Duration {
	d, ok := scale(iv.Count, nominal(iv.Unit))
	if !ok {
		return math.MaxInt64
	}
	return d
}

// scale is n×u, false when it does not fit in a time.Duration.
func scale(n int, u time.Duration) (time.Duration, bool) {
	if n <= 0 || u <= 0 {
		return 0, true
	}
	if int64(n) > math.MaxInt64/int64(u) {
		return 0, false
	}
	return time.Duration(n) * u, true
}

func nominal(u Unit) time.Duration {
	const day = 24 * time.Hour
	switch u {
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	case Days:
		return day
	case Weeks:
		return 7 * day
	case Months:
		return 30 * day
	case Quarters:
		return 90 * day
	case Years:
		return 365 * day
	case Decades:
		return 3650 * day
	default:
		return 0
	}
}

// longest is an upper bound for one unit, so that elapsed/longest never
// overestimates the number of whole intervals (DST days can be 25h).
func longest(u Unit) time.Duration {
	const day = 25 * time.Hour
	switch u {
	case Days:
		return day
	case Weeks:
		return 7 * day
	case Months:
		return 31 * day
	case Quarters:
		return 92 * day
	case Years:
		return 366 * day
	case Decades:
		return 3653 * day
	default:
		return nominal(u)
	}
}

// maxSkips bounds consecutive grid months without the anchor's day. Feb 29
// on a yearly grid needs at most three.
const maxSkips = 48

// NextAfter returns the first occurrence anchor+k×iv (k >= 1) strictly after
// t. Whole intervals are skipped in one step, so a long outage costs nothing.
// Month based grids keep the anchor's day of month and skip months that lack
// it, so "31 repeat" fires on Jan 31, Mar 31, May 31 and never drifts.
func (iv Interval) NextAfter(anchor, t time.Time) time.Time {
	if iv.IsZero() {
		return anchor
	}
	k := 1
	if t.After(anchor) {
		if span, ok := scale(iv.Count, longest(iv.Unit)); ok && span > 0 {
			if est := int(t.Sub(anchor) / span); est > k {
				k = est
			}
		}
	}
	for skipped := 0; skipped < maxSkips; k++ {
		next, ok := iv.occurrence(anchor, k)
		switch {
		case !ok:
			skipped++
		case next.After(t):
			return next
		default:
			skipped = 0
		}
	}
	next := iv.AddTo(anchor, k)
	for !next.After(t) {
		k++
		next = iv.AddTo(anchor, k)
	}
	return next
}

var reInterval = regexp.MustCompile(`^(\d+)\s*([a-z]+)$`)

// maxCount bounds entered counts. It keeps second, minute and hour
// intervals inside time.Duration; longer units use calendar arithmetic.
const maxCount = 100000

// ParseInterval parses "<int> <unit>" or the compact "<int><unit>" form.
func ParseInterval(text string) (Interval, error) {
	s := normalize(text)
	if s == "" {
		return Interval{}, &ParseError{Input: text, Err: ErrEmpty}
	}
	iv, matched, err := parseIntervalBody(s)
	if err != nil {
		return Interval{}, &ParseError{Input: text, Err: err}
	}
	if !matched {
		return Interval{}, &ParseError{Input: text, Err: ErrUnrecognized}
	}
	return iv, nil
}

func parseIntervalBody(s string) (Interval, bool, error) {
	m := reInterval.FindStringSubmatch(s)
	if m == nil {
		return Interval{}, false, nil
	}
	u, err := lookupUnit(m[2])
	if err != nil {
		return Interval{}, true, err
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n > maxCount {
		return Interval{}, true, ErrInvalidNumber
	}
	return Interval{Count: n, Unit: u}, true, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
