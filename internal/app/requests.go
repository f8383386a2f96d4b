package app

import (
	"context"
	"errors"

	"github.com/1broseidon/windowkit/internal/bridge"
	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/platform"
)

// Async commands return a request id synchronously and answer with one
// event carrying it. 0 means the request could not be enqueued. Requests
// owned by a window that closes first never resolve.

// OpenURL opens url with the desktop's default handler.
func (a *App) OpenURL(w ids.WindowID, url string) ids.RequestID {
	return a.request("OpenURL", w, func(ctx context.Context, d platform.Desktop) bridge.Completion {
		err := d.OpenURL(ctx, url)
		return func(id ids.RequestID, owner ids.WindowID) {
			a.emit(event.OpenURLResponse{Window: owner, Request: id, Err: err})
		}
	})
}

// OpenFileManager reveals path in the desktop file manager.
func (a *App) OpenFileManager(w ids.WindowID, path string) ids.RequestID {
	return a.request("OpenFileManager", w, func(ctx context.Context, d platform.Desktop) bridge.Completion {
		err := d.OpenFileManager(ctx, path)
		return func(id ids.RequestID, owner ids.WindowID) {
			a.emit(event.OpenFileManagerResponse{Window: owner, Request: id, Err: err})
		}
	})
}

// ShowFileDialog runs an open or save dialog.
func (a *App) ShowFileDialog(w ids.WindowID, dialog platform.FileDialog) ids.RequestID {
	return a.request("ShowFileDialog", w, func(ctx context.Context, d platform.Desktop) bridge.Completion {
		paths, err := d.ShowFileDialog(ctx, dialog)
		return func(id ids.RequestID, owner ids.WindowID) {
			ev := event.FileDialogResponse{Window: owner, Request: id, Paths: paths, Err: err}
			if errors.Is(err, platform.ErrCancelled) {
				ev.Cancelled, ev.Err, ev.Paths = true, nil, nil
			}
			a.emit(ev)
		}
	})
}

// RequestActivationToken asks for a token another client can use to take
// focus on our behalf.
func (a *App) RequestActivationToken(w ids.WindowID) ids.RequestID {
	appID := ""
	if st, err := a.windows.Get(w); err == nil {
		appID = st.Params.AppID
	}
	return a.request("RequestActivationToken", w, func(ctx context.Context, d platform.Desktop) bridge.Completion {
		token, err := d.ActivationToken(ctx, appID)
		return func(id ids.RequestID, owner ids.WindowID) {
			a.emit(event.ActivationTokenResponse{Window: owner, Request: id, Token: token, Err: err})
		}
	})
}

// ShowNotification posts a desktop notification. NotificationShown answers
// with the returned id; NotificationClosed later carries the same id. The
// notification is closed if its window closes.
func (a *App) ShowNotification(w ids.WindowID, n platform.Notification) ids.RequestID {
	if w != 0 {
		if _, err := a.windows.Get(w); err != nil {
			a.logger.Warn("notification for unknown window", "error", err)
			return 0
		}
	}
	id := a.request("ShowNotification", 0, func(ctx context.Context, d platform.Desktop) bridge.Completion {
		desktopID, err := d.ShowNotification(ctx, n)
		return func(id ids.RequestID, _ ids.WindowID) {
			a.notificationShown(id, desktopID, err)
		}
	})
	if id != 0 {
		a.showing[id] = w
	}
	return id
}

// CloseNotification withdraws a notification by its show request id and
// returns the close request id, or 0. The NotificationClosed answering it
// carries both ids.
func (a *App) CloseNotification(req ids.RequestID) ids.RequestID {
	a.loop.AssertLoopThread("CloseNotification")
	n, ok := a.notifications[req]
	if !ok {
		a.logger.Warn("close unknown notification", "request", req)
		return 0
	}
	id := a.request("CloseNotification", n.window, func(ctx context.Context, d platform.Desktop) bridge.Completion {
		err := d.CloseNotification(ctx, n.desktopID)
		return func(id ids.RequestID, owner ids.WindowID) {
			a.emit(event.NotificationClosed{Window: owner, Request: req, CloseRequest: id, Reason: "closed", Err: err})
		}
	})
	if id != 0 {
		a.forgetNotification(req)
	}
	return id
}

func (a *App) request(op string, w ids.WindowID, work func(context.Context, platform.Desktop) bridge.Completion) ids.RequestID {
	a.loop.AssertLoopThread(op)
	if a.desktop == nil {
		a.logger.Warn("no desktop services", "op", op, "error", platform.ErrUnsupported)
		return 0
	}
	if w != 0 {
		if _, err := a.windows.Get(w); err != nil {
			a.logger.Warn("request for unknown window", "op", op, "error", err)
			return 0
		}
	}
	d := a.desktop
	id := a.bridge.Submit(w, func(ctx context.Context) bridge.Completion { return work(ctx, d) })
	if id == 0 {
		a.logger.Warn("request not enqueued", "op", op, "window", w)
	}
	return id
}

func (a *App) notificationShown(req ids.RequestID, desktopID string, err error) {
	w, ok := a.showing[req]
	delete(a.showing, req)
	if !ok {
		// The owning window closed while the notification was being shown.
		if err == nil && desktopID != "" {
			a.closeDesktopNotification(desktopID)
		}
		return
	}
	if err == nil && desktopID != "" {
		a.notifications[req] = notification{window: w, desktopID: desktopID}
		a.byDesktopID[desktopID] = req
	}
	a.emit(event.NotificationShown{Window: w, Request: req, NotificationID: desktopID, Err: err})
}

func (a *App) notificationClosed(desktopID, reason string) {
	req, ok := a.byDesktopID[desktopID]
	if !ok {
		return
	}
	n := a.notifications[req]
	a.forgetNotification(req)
	a.emit(event.NotificationClosed{Window: n.window, Request: req, Reason: reason})
}

func (a *App) forgetNotification(req ids.RequestID) {
	if n, ok := a.notifications[req]; ok {
		delete(a.byDesktopID, n.desktopID)
		delete(a.notifications, req)
	}
}

// closeWindowNotifications withdraws every notification a closed window
// posted and forgets ones still being shown.
func (a *App) closeWindowNotifications(w ids.WindowID) {
	for req, owner := range a.showing {
		if owner == w {
			delete(a.showing, req)
		}
	}
	for req, n := range a.notifications {
		if n.window != w {
			continue
		}
		a.forgetNotification(req)
		a.closeDesktopNotification(n.desktopID)
	}
}

func (a *App) closeDesktopNotification(desktopID string) {
	if a.desktop == nil {
		return
	}
	d := a.desktop
	a.bridge.Submit(0, func(ctx context.Context) bridge.Completion {
		if err := d.CloseNotification(ctx, desktopID); err != nil {
			a.logger.Debug("close notification failed", "id", desktopID, "error", err)
		}
		return nil
	})
}
