package indicator

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName      = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"
)

// notifier is the freedesktop notification surface.
type notifier interface {
	Notify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error)
	Dismiss(ctx context.Context, id uint32) error
}

// dbusNotifier talks to the notification daemon on the session bus.
type dbusNotifier struct{}

// Notify sends a notification and returns the ID assigned by the server.
func (dbusNotifier) Notify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int) (uint32, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return 0, fmt.Errorf("connect session bus: %w", err)
	}

	call := conn.Object(notificationsName, notificationsPath).CallWithContext(
		ctx,
		notificationsInterface+".Notify",
		0,
		appName,
		replaceID,
		"",
		summary,
		"",
		[]string{},
		map[string]dbus.Variant{},
		int32(timeoutMS),
	)
	if call.Err != nil {
		return 0, fmt.Errorf("desktop notify failed: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("desktop notify invalid response: %w", err)
	}
	return id, nil
}

// Dismiss requests explicit close by notification ID.
func (dbusNotifier) Dismiss(ctx context.Context, id uint32) error {
	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}

	call := conn.Object(notificationsName, notificationsPath).CallWithContext(
		ctx,
		notificationsInterface+".CloseNotification",
		0,
		id,
	)
	if call.Err != nil {
		return fmt.Errorf("desktop dismiss failed: %w", call.Err)
	}
	return nil
}
