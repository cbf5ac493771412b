package reminder

import (
	"errors"
	"fmt"
)

var (
	ErrEmpty            = errors.New("reminder text is empty")
	ErrUnrecognized     = errors.New("could not parse reminder")
	ErrUnknownUnit      = errors.New("unknown time unit")
	ErrAmbiguousUnit    = errors.New("ambiguous time unit")
	ErrInvalidNumber    = errors.New("invalid number")
	ErrInvalidTime      = errors.New("invalid time of day")
	ErrInvalidDate      = errors.New("invalid date")
	ErrPastDate         = errors.New("date is in the past")
	ErrRepeatNotAllowed = errors.New("repeat is not supported for this expression")
	ErrNoReminder       = errors.New("task has no reminder")
)

// ParseError is returned for malformed reminder input. It is meant to be
// shown to the user as is.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%v: %q", e.Err, e.Input) }
func (e *ParseError) Unwrap() error { return e.Err }
