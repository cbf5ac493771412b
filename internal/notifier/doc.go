// Package notifier delivers due reminders.
//
// A Dispatcher owns exactly one Sink, chosen from configuration:
//
//   - handler: an external executable that reads one JSON task snapshot on stdin
//   - telegram: a bot message to a fixed chat (and optional forum thread)
//   - desktop: org.freedesktop.Notifications over the session bus, falling back
//     to notify-send
//
// Dispatch is rate limited, publishes reminder.dispatched and
// reminder.dispatch_failed events, and keeps a short in-memory history.
// Failures come back as *DispatchError and are never retried here; the
// scheduler reschedules regardless.
package notifier
