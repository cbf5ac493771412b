package notifier

import "context"

// Sink delivers one snapshot. Errors should wrap ErrHandlerFailed or
// ErrSinkUnavailable; anything else is reported as SinkUnavailable.
type Sink interface {
	Name() string
	Notify(ctx context.Context, s Snapshot) error
}
