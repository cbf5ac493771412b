package notifier

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/godbus/dbus/v5"
)

const (
	desktopExpire = 10000 // milliseconds
	appName       = "dolist"
)

// DesktopSink posts a freedesktop notification. The session bus is tried
// first; notify-send is the fallback for hosts without a reachable bus.
type DesktopSink struct {
	viaBus        func(ctx context.Context, title, body string) error
	viaNotifySend func(ctx context.Context, title, body string) error
}

func NewDesktopSink() *DesktopSink {
	return &DesktopSink{viaBus: busNotify, viaNotifySend: notifySend}
}

func (d *DesktopSink) Name() string { return "desktop" }

func (d *DesktopSink) Notify(ctx context.Context, s Snapshot) error {
	title, body := s.Title(), s.Body()
	busErr := d.viaBus(ctx, title, body)
	if busErr == nil {
		return nil
	}
	if err := d.viaNotifySend(ctx, title, body); err != nil {
		return fmt.Errorf("%w: session bus: %v; notify-send: %v", ErrSinkUnavailable, busErr, err)
	}
	return nil
}

func busNotify(ctx context.Context, title, body string) error {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return err
	}
	defer conn.Close()

	obj := conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(1))}
	call := obj.CallWithContext(ctx, "org.freedesktop.Notifications.Notify", 0,
		appName, uint32(0), "", title, body, []string{}, hints, int32(desktopExpire))
	return call.Err
}

func notifySend(ctx context.Context, title, body string) error {
	bin, err := exec.LookPath("notify-send")
	if err != nil {
		return err
	}
	out, err := exec.CommandContext(ctx, bin, title, body, "-u", "normal", "-t", strconv.Itoa(desktopExpire)).CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%v: %s", err, out)
	}
	return err
}
