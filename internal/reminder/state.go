package reminder

import (
	"strings"
	"time"
)

// DefaultDelay is what Delay adds when no text is given.
var DefaultDelay = Interval{Count: 10, Unit: Minutes}

// State is the reminder part of a task.
//
// A zero DueAt means no reminder. A zero Every means one-shot. A cleared
// state has every field zero.
type State struct {
	DueAt       time.Time
	Every       Interval
	LastFiredAt time.Time

	// Text is the expression as entered, kept for display.
	Text string
}

func (s State) Active() bool    { return !s.DueAt.IsZero() }
func (s State) Recurring() bool { return s.Active() && !s.Every.IsZero() }

// IsDue reports whether the reminder should fire at now.
func (s State) IsDue(now time.Time) bool {
	return s.Active() && !s.DueAt.After(now)
}

// Set parses text and replaces st wholesale. On error st is untouched.
func Set(st *State, text string, now time.Time) (Parsed, error) {
	p, err := Parse(text, now)
	if err != nil {
		return p, err
	}
	*st = State{DueAt: p.At, Text: normalize(text)}
	if p.Recurring {
		st.Every = p.Every
	}
	return p, nil
}

// Clear removes the reminder. Calling it on a cleared state is a no-op.
func Clear(st *State) {
	*st = State{}
}

// Delay pushes the reminder back by text (an interval such as "15 min"), or
// by DefaultDelay when text is blank. The base is the current due time when
// there is one, otherwise now. Recurrence is kept.
func Delay(st *State, text string, now time.Time) error {
	iv := DefaultDelay
	if strings.TrimSpace(text) != "" {
		var err error
		if iv, err = ParseInterval(text); err != nil {
			return err
		}
	}
	base := now
	if st.Active() {
		base = st.DueAt
	}
	st.DueAt = iv.AddTo(base, 1)
	st.Text = "delayed: " + iv.String()
	return nil
}

// RescheduleAfterFire applies the post-fire transition. Recurring reminders
// move to the first occurrence strictly after firedAt, skipping any that
// were missed; one-shot reminders are cleared.
func RescheduleAfterFire(st *State, firedAt time.Time) {
	if !st.Recurring() {
		Clear(st)
		return
	}
	st.DueAt = st.Every.NextAfter(st.DueAt, firedAt)
	st.LastFiredAt = firedAt
}

// Repeat turns an existing one-shot reminder into a recurring one anchored
// at its current due time. The interval is taken from the original text when
// that was a plain duration ("2 hours"), otherwise it is one week.
func Repeat(st *State) error {
	if !st.Active() {
		return ErrNoReminder
	}
	if st.Recurring() {
		return nil
	}
	iv := Interval{Count: 1, Unit: Weeks}
	if prev, err := ParseInterval(st.Text); err == nil && !prev.IsZero() {
		iv = prev
	}
	st.Every = iv
	return nil
}
