package desktop

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/1broseidon/windowkit/internal/platform"
)

var urgencies = map[string]byte{"low": 0, "normal": 1, "critical": 2}

// closeReasons maps the NotificationClosed reason codes.
var closeReasons = map[uint32]string{
	1: "expired",
	2: "dismissed",
	3: "closed",
}

func (d *Desktop) notifications() dbus.BusObject {
	return d.opts.Bus.Object(notificationsDest, notificationsPath)
}

// ShowNotification calls Notify and returns the server's id.
func (d *Desktop) ShowNotification(ctx context.Context, n platform.Notification) (string, error) {
	if strings.TrimSpace(n.Title) == "" {
		return "", fmt.Errorf("notification: %w", ErrEmptyArgument)
	}
	if d.opts.Bus == nil {
		return "", fmt.Errorf("notification: %w", ErrNoSessionBus)
	}
	hints, err := notifyHints(n)
	if err != nil {
		return "", err
	}
	if err := d.subscribe(); err != nil {
		d.logger.Warn("notification close signals unavailable", "error", err)
	}

	var id uint32
	call := d.notifications().CallWithContext(ctx, notificationsIface+".Notify", 0,
		d.opts.AppName, uint32(0), n.Icon, n.Title, n.Body, []string{}, hints, int32(-1))
	if err := call.Store(&id); err != nil {
		return "", fmt.Errorf("notify: %w", err)
	}
	if id == 0 {
		return "", ErrNoNotificationID
	}

	key := strconv.FormatUint(uint64(id), 10)
	d.mu.Lock()
	d.shown[key] = true
	d.mu.Unlock()
	return key, nil
}

func notifyHints(n platform.Notification) (map[string]dbus.Variant, error) {
	hints := map[string]dbus.Variant{}
	if n.Urgency != "" {
		u, ok := urgencies[n.Urgency]
		if !ok {
			return nil, fmt.Errorf("notification urgency %q (want low, normal or critical)", n.Urgency)
		}
		hints["urgency"] = dbus.MakeVariant(u)
	}
	return hints, nil
}

// CloseNotification withdraws a notification. Unknown ids are already gone
// and succeed.
func (d *Desktop) CloseNotification(ctx context.Context, id string) error {
	d.mu.Lock()
	ok := d.shown[id]
	delete(d.shown, id)
	d.mu.Unlock()
	if !ok || d.opts.Bus == nil {
		return nil
	}
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return fmt.Errorf("notification id %q: %w", id, err)
	}
	call := d.notifications().CallWithContext(ctx, notificationsIface+".CloseNotification", 0, uint32(n))
	if call.Err != nil {
		return fmt.Errorf("close notification: %w", call.Err)
	}
	return nil
}

func (d *Desktop) WatchNotifications(closed func(id, reason string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = closed
}

// subscribe starts listening for NotificationClosed once.
func (d *Desktop) subscribe() error {
	d.subOnce.Do(func() {
		d.subErr = d.opts.Bus.AddMatchSignal(
			dbus.WithMatchObjectPath(notificationsPath),
			dbus.WithMatchInterface(notificationsIface),
			dbus.WithMatchMember("NotificationClosed"),
		)
		if d.subErr != nil {
			return
		}
		ch := make(chan *dbus.Signal, 16)
		d.opts.Bus.Signal(ch)
		go d.listen(ch)
	})
	return d.subErr
}

func (d *Desktop) listen(ch <-chan *dbus.Signal) {
	for {
		select {
		case <-d.done:
			return
		case sig, ok := <-ch:
			if !ok {
				return
			}
			d.signal(sig)
		}
	}
}

// signal reports a notification closing on its own. Ones withdrawn by
// CloseNotification are no longer in shown and stay silent.
func (d *Desktop) signal(sig *dbus.Signal) {
	if sig.Name != notificationsIface+".NotificationClosed" || len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}
	code, _ := sig.Body[1].(uint32)
	reason, ok := closeReasons[code]
	if !ok {
		reason = "undefined"
	}

	key := strconv.FormatUint(uint64(id), 10)
	d.mu.Lock()
	ours := d.shown[key]
	delete(d.shown, key)
	closed := d.closed
	d.mu.Unlock()

	if ours && closed != nil {
		closed(key, reason)
	}
}
