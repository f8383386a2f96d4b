package desktop

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Bus is the part of a session-bus connection the desktop uses.
// *dbus.Conn satisfies it.
type Bus interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
}

var _ Bus = (*dbus.Conn)(nil)

const (
	notificationsDest  = "org.freedesktop.Notifications"
	notificationsPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsIface = "org.freedesktop.Notifications"

	fileManagerDest = "org.freedesktop.FileManager1"
	fileManagerPath = dbus.ObjectPath("/org/freedesktop/FileManager1")
	showItemsMethod = "org.freedesktop.FileManager1.ShowItems"
)

// ConnectSessionBus opens a private connection to the session bus. The
// caller closes it.
func ConnectSessionBus() (*dbus.Conn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return conn, nil
}
