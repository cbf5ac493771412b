package notifier

import (
	"errors"
	"fmt"
)

var (
	ErrHandlerFailed   = errors.New("reminder handler failed")
	ErrSinkUnavailable = errors.New("notification sink unavailable")
)

type FailureKind int

const (
	HandlerFailed FailureKind = iota + 1
	SinkUnavailable
)

func (k FailureKind) String() string {
	switch k {
	case HandlerFailed:
		return "handler_failed"
	case SinkUnavailable:
		return "sink_unavailable"
	default:
		return "unknown"
	}
}

// DispatchError is returned by Dispatcher.Dispatch.
type DispatchError struct {
	Kind   FailureKind
	Sink   string
	TaskID int64
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch task %d via %s: %v", e.TaskID, e.Sink, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func (e *DispatchError) Is(target error) bool {
	switch target {
	case ErrHandlerFailed:
		return e.Kind == HandlerFailed
	case ErrSinkUnavailable:
		return e.Kind == SinkUnavailable
	}
	return false
}

func kindOf(err error) FailureKind {
	if errors.Is(err, ErrHandlerFailed) {
		return HandlerFailed
	}
	return SinkUnavailable
}
