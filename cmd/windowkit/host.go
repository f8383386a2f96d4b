package main

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/windowkit/internal/app"
	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/ipc"
	"github.com/1broseidon/windowkit/internal/mime"
	"github.com/1broseidon/windowkit/internal/selection"
	"github.com/1broseidon/windowkit/internal/window"
)

var clipboardTypes = []string{mime.TextPlainUTF8, mime.TextPlain}

// host is the embedding application behind `windowkit run`: it opens one
// window, keeps clipboard text, and quits once its last window is gone.
// Every method runs on the event loop.
type host struct {
	app    *app.App
	logger *slog.Logger
	params window.Params

	clipboard []byte
	opened    bool
}

var _ ipc.Controller = (*host)(nil)

func newHost(title string, logger *slog.Logger) *host {
	return &host{
		logger: logger,
		params: window.Params{
			Title:       title,
			Size:        geom.Size{Width: 800, Height: 600},
			MinSize:     geom.Size{Width: 200, Height: 150},
			Decorations: true,
			AppID:       title,
		},
	}
}

func (h *host) callbacks() app.Callbacks {
	return app.Callbacks{
		OnEvent:          h.onEvent,
		DataTransferData: h.dataTransferData,
	}
}

func (h *host) onEvent(e event.Event) bool {
	switch e := e.(type) {
	case event.ApplicationStarted:
		if id := h.app.CreateWindow(h.params); id != 0 {
			h.opened = true
			h.logger.Info("window opened", "window", id, "title", h.params.Title)
		}
	case event.WindowClosed:
		h.logger.Info("window closed", "window", e.Window)
		if h.opened && len(h.app.WindowIDs()) == 0 {
			h.app.RequestTerminate()
		}
	case event.DataTransferAvailable:
		h.logger.Debug("selection owner changed", "selection", e.Selection.String(), "types", e.MimeTypes)
		if e.OwnershipLost && e.Selection == selection.Clipboard {
			h.clipboard = nil
		}
	case event.OpenURLResponse:
		if e.Err != nil {
			h.logger.Warn("open url failed", "request", e.Request, "error", e.Err)
		}
	case event.NotificationClosed:
		h.logger.Debug("notification closed", "request", e.Request)
	}
	return true
}

func (h *host) dataTransferData(source app.Source, mimeType string) ([]byte, error) {
	if source != app.SourceClipboard || h.clipboard == nil {
		return nil, fmt.Errorf("no %s content", source)
	}
	// The text is the same under every advertised type.
	for _, t := range clipboardTypes {
		if mime.Equal(t, mimeType) {
			return append([]byte(nil), h.clipboard...), nil
		}
	}
	return nil, fmt.Errorf("clipboard has no %s", mimeType)
}

func (h *host) Status() app.Status { return h.app.Status() }

func (h *host) Windows() []window.Snapshot { return h.app.Windows() }

func (h *host) CloseWindow(id ids.WindowID) bool { return h.app.CloseWindow(id) }

// OpenURL defaults to the focused window, else the first window. With no
// windows at all the request has no owner.
func (h *host) OpenURL(w ids.WindowID, url string) ids.RequestID {
	if w == 0 {
		w = h.app.Status().Focused
	}
	if w == 0 {
		if windows := h.app.WindowIDs(); len(windows) > 0 {
			w = windows[0]
		}
	}
	return h.app.OpenURL(w, url)
}

func (h *host) SetClipboardText(text string) bool {
	if text == "" {
		// A clipboard manager may still read the old text during the clear.
		ok := h.app.Put(selection.Clipboard, nil)
		h.clipboard = nil
		return ok
	}
	if !h.app.Put(selection.Clipboard, clipboardTypes) {
		return false
	}
	h.clipboard = []byte(text)
	return true
}
