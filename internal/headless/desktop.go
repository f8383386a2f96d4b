package headless

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/1broseidon/windowkit/internal/platform"
)

// Desktop implements platform.Desktop in memory. Calls are recorded and
// answered immediately unless Gate is set, in which case every call waits
// for a value on Gate (or ctx) first.
type Desktop struct {
	Gate chan struct{}

	mu            sync.Mutex
	urls          []string
	paths         []string
	notifications map[string]platform.Notification
	closed        func(id, reason string)

	// DialogResult is returned by ShowFileDialog. A nil slice means the
	// user cancelled.
	DialogResult []string
	// Err, when set, fails every call.
	Err error
}

var (
	_ platform.Desktop             = (*Desktop)(nil)
	_ platform.NotificationWatcher = (*Desktop)(nil)
)

// NewDesktop creates an empty desktop.
func NewDesktop() *Desktop {
	return &Desktop{notifications: make(map[string]platform.Notification)}
}

func (d *Desktop) wait(ctx context.Context) error {
	if d.Gate != nil {
		select {
		case <-d.Gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return d.Err
}

func (d *Desktop) OpenURL(ctx context.Context, url string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	return nil
}

func (d *Desktop) OpenFileManager(ctx context.Context, path string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paths = append(d.paths, path)
	return nil
}

func (d *Desktop) ShowNotification(ctx context.Context, n platform.Notification) (string, error) {
	if err := d.wait(ctx); err != nil {
		return "", err
	}
	id := uuid.NewString()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications[id] = n
	return id, nil
}

func (d *Desktop) CloseNotification(ctx context.Context, id string) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.notifications, id)
	return nil
}

func (d *Desktop) ShowFileDialog(ctx context.Context, _ platform.FileDialog) ([]string, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.DialogResult == nil {
		return nil, platform.ErrCancelled
	}
	return append([]string(nil), d.DialogResult...), nil
}

func (d *Desktop) ActivationToken(ctx context.Context, appID string) (string, error) {
	if err := d.wait(ctx); err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

func (d *Desktop) WatchNotifications(closed func(id, reason string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = closed
}

// SimNotificationDismissed is the user dismissing a notification. Safe
// from any goroutine.
func (d *Desktop) SimNotificationDismissed(id string) {
	d.mu.Lock()
	_, ok := d.notifications[id]
	delete(d.notifications, id)
	closed := d.closed
	d.mu.Unlock()
	if ok && closed != nil {
		closed(id, "dismissed")
	}
}

// URLs lists opened URLs.
func (d *Desktop) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// Notifications returns the ids of visible notifications.
func (d *Desktop) Notifications() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.notifications))
	for id := range d.notifications {
		out = append(out, id)
	}
	return out
}
