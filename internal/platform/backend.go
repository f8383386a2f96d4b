// Package platform defines the boundary between the toolkit core and a
// native windowing system.
//
// Backend methods are commands issued from the event-loop thread. Sink
// methods are notifications the backend raises, also on the event-loop
// thread: backends that receive native events elsewhere post them through
// the function passed to Start. Desktop calls may block and are only made
// from bridge workers.
package platform

import (
	"context"
	"errors"
	"time"

	"github.com/1broseidon/windowkit/internal/dnd"
	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/selection"
	"github.com/1broseidon/windowkit/internal/textinput"
	"github.com/1broseidon/windowkit/internal/window"
)

var (
	// ErrUnsupported is returned for operations the backend cannot perform.
	ErrUnsupported = errors.New("not supported by backend")
	// ErrCancelled is returned by file dialogs the user dismissed.
	ErrCancelled = errors.New("cancelled by user")
)

// Backend abstracts window-system operations across platforms.
type Backend interface {
	Name() string
	// Start connects the backend. post schedules fn on the event loop and
	// reports false once the loop stopped.
	Start(post func(fn func()) bool, sink Sink) error
	Close() error

	CreateWindow(id ids.WindowID, params window.Params) error
	DestroyWindow(id ids.WindowID) error
	SetTitle(id ids.WindowID, title string) error
	SetMaximized(id ids.WindowID, on bool) error
	SetFullscreen(id ids.WindowID, on bool) error
	Minimize(id ids.WindowID) error
	RequestRedraw(id ids.WindowID) error

	EnableTextInput(id ids.WindowID, ctx textinput.Context) error
	UpdateTextInput(id ids.WindowID, ctx textinput.Context) error
	// DisableTextInput detaches the input method from the window. It must
	// take effect before the next key event is processed.
	DisableTextInput(id ids.WindowID) error

	StartDrag(id ids.WindowID, params dnd.SourceParams, press window.PointerDown) error

	// SelectionAvailable reports whether the seat has a device for kind.
	SelectionAvailable(kind selection.Kind) bool
	OwnSelection(kind selection.Kind, mimeTypes []string) error
	// ClearSelection gives up ownership. For the clipboard the backend may
	// hand the content to a clipboard manager, waiting at most handover.
	ClearSelection(kind selection.Kind, handover time.Duration) error
	// ReadSelection fetches content from a foreign owner. It blocks and is
	// called from bridge workers only.
	ReadSelection(ctx context.Context, kind selection.Kind, mimeType string) ([]byte, error)
}

// Sink receives native notifications. Every method runs on the
// event-loop thread.
type Sink interface {
	Configure(id ids.WindowID, c window.Configure)
	KeyboardEnter(id ids.WindowID)
	KeyboardLeave(id ids.WindowID)
	// CloseRequested is the user asking to close, e.g. the title-bar button.
	CloseRequested(id ids.WindowID)
	// Closed is the native window going away.
	Closed(id ids.WindowID)
	Draw(id ids.WindowID)
	DragIconDraw(size geom.Size)
	DisplaysChanged(displays []event.Display)

	// Input carries keyboard and pointer events as-is.
	Input(e event.Event)
	// TextInput carries an input-method update for the window.
	TextInput(id ids.WindowID, u textinput.Update)

	// DragEnter and DragMotion must answer synchronously.
	DragEnter(id ids.WindowID, at geom.Point, offer dnd.Offer) dnd.Decision
	DragMotion(id ids.WindowID, at geom.Point) dnd.Decision
	DragLeave(id ids.WindowID)
	Drop(id ids.WindowID, at geom.Point)

	// DragSourceData serves a drop target reading from our drag.
	DragSourceData(mimeType string) ([]byte, error)
	DragSourceAction(action dnd.Action)
	DragSourceFinished(action dnd.Action)
	DragSourceCancelled()

	// SelectionData serves a peer reading a selection we own.
	SelectionData(kind selection.Kind, mimeType string) ([]byte, error)
	// SelectionOffer reports a foreign owner. A nil list means nobody
	// owns the selection.
	SelectionOffer(kind selection.Kind, mimeTypes []string)
}

// Notification is a desktop notification request.
type Notification struct {
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`
	Icon    string `json:"icon,omitempty"`
	Urgency string `json:"urgency,omitempty"`
}

// FileFilter restricts a file dialog to matching names.
type FileFilter struct {
	Name     string   `json:"name"`
	Patterns []string `json:"patterns"`
}

// FileDialog describes an open or save dialog.
type FileDialog struct {
	Title     string       `json:"title,omitempty"`
	StartPath string       `json:"start_path,omitempty"`
	Save      bool         `json:"save,omitempty"`
	Directory bool         `json:"directory,omitempty"`
	Multiple  bool         `json:"multiple,omitempty"`
	Filters   []FileFilter `json:"filters,omitempty"`
	// Modal keeps the dialog above its parent window.
	Modal       bool   `json:"modal,omitempty"`
	AcceptLabel string `json:"accept_label,omitempty"`
}

// Desktop is the set of blocking desktop services. Implementations are
// called from bridge workers and must honour ctx.
type Desktop interface {
	OpenURL(ctx context.Context, url string) error
	OpenFileManager(ctx context.Context, path string) error
	ShowNotification(ctx context.Context, n Notification) (string, error)
	CloseNotification(ctx context.Context, id string) error
	ShowFileDialog(ctx context.Context, d FileDialog) ([]string, error)
	ActivationToken(ctx context.Context, appID string) (string, error)
}

// NotificationWatcher is implemented by desktops that can report a
// notification closing on its own. closed may be called from any goroutine.
type NotificationWatcher interface {
	WatchNotifications(closed func(id, reason string))
}
