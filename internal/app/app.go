// Package app owns the toolkit state and normalizes backend notifications
// into the single event stream delivered to the host.
//
// Every exported method must be called on the event-loop thread. Code on
// other goroutines goes through loop.Post or loop.Call first.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/windowkit/internal/bridge"
	"github.com/1broseidon/windowkit/internal/dnd"
	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/loop"
	"github.com/1broseidon/windowkit/internal/mime"
	"github.com/1broseidon/windowkit/internal/platform"
	"github.com/1broseidon/windowkit/internal/selection"
	"github.com/1broseidon/windowkit/internal/textinput"
	"github.com/1broseidon/windowkit/internal/window"
)

var (
	// ErrTextInputUnavailable is returned when enabling text input on a
	// window without keyboard focus.
	ErrTextInputUnavailable = errors.New("text input not available")
	// ErrTextInputDisabled is returned when updating a window that has no
	// text input session.
	ErrTextInputDisabled = errors.New("text input not enabled")
	// ErrNotStarted is returned by operations that need a started backend.
	ErrNotStarted = errors.New("application not started")
	// ErrNoProvider is returned when content is requested but the host
	// installed no DataTransferData callback.
	ErrNoProvider = errors.New("no content provider")
	// ErrHostPanic wraps a panic raised by a host callback.
	ErrHostPanic = errors.New("host callback panicked")
)

const defaultHandover = 2 * time.Second

// Source names where content is pulled from when a peer reads from us.
type Source int

const (
	SourceClipboard Source = iota
	SourcePrimary
	SourceDrag
)

func (s Source) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceDrag:
		return "drag"
	default:
		return "clipboard"
	}
}

func sourceOf(kind selection.Kind) Source {
	if kind == selection.Primary {
		return SourcePrimary
	}
	return SourceClipboard
}

// Callbacks are the host's hooks. All run on the event-loop thread and
// must not block. Any of them may be nil.
type Callbacks struct {
	OnEvent event.Handler
	// QueryDropTarget answers which types and actions the window accepts
	// at the pointer location.
	QueryDropTarget func(w ids.WindowID, at geom.Point, offered []string) []dnd.Supported
	// DataTransferData supplies content for a selection or drag we own.
	DataTransferData func(source Source, mimeType string) ([]byte, error)
	// WindowCloseRequest decides whether a user close request proceeds.
	// A nil predicate allows every close.
	WindowCloseRequest func(w ids.WindowID) bool
	// ApplicationWantsToTerminate decides whether RequestTerminate proceeds.
	ApplicationWantsToTerminate func() bool
}

// Options configures New.
type Options struct {
	Backend   platform.Backend
	Desktop   platform.Desktop
	Loop      *loop.Loop
	Logger    *slog.Logger
	Callbacks Callbacks

	Workers      int
	RequestQueue int
	// DebugAssertions turns protocol violations into panics.
	DebugAssertions bool
	// NonIMEWindow never becomes text-input available.
	NonIMEWindow ids.WindowID
	TieBreak     mime.Policy
	// ClipboardHandover bounds the wait for a clipboard manager on clear.
	ClipboardHandover time.Duration
}

// App is the application state. It is not safe for concurrent use; the
// event loop serializes access.
type App struct {
	backend platform.Backend
	desktop platform.Desktop
	loop    *loop.Loop
	bridge  *bridge.Bridge
	logger  *slog.Logger
	cb      Callbacks

	debug        bool
	nonIME       ids.WindowID
	tieBreak     mime.Policy
	handoverWait time.Duration

	windows    *window.Registry
	sessions   map[ids.WindowID]*textinput.Session
	source     *dnd.Source
	target     *dnd.Target
	selections map[selection.Kind]*selection.Selection

	// shown notifications by show request, and the reverse lookup
	notifications map[ids.RequestID]notification
	byDesktopID   map[string]ids.RequestID
	// show requests still in flight, by owning window
	showing map[ids.RequestID]ids.WindowID

	observers  []func(event.Event)
	queue      []event.Event
	delivering bool
	started    bool
	closed     bool
}

type notification struct {
	window    ids.WindowID
	desktopID string
}

// New builds the application state. Nothing native happens until Start.
func New(opts Options) (*App, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("app: backend is required")
	}
	if opts.Loop == nil {
		return nil, fmt.Errorf("app: loop is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handover := opts.ClipboardHandover
	if handover <= 0 {
		handover = defaultHandover
	}

	a := &App{
		backend:       opts.Backend,
		desktop:       opts.Desktop,
		loop:          opts.Loop,
		logger:        logger,
		cb:            opts.Callbacks,
		debug:         opts.DebugAssertions,
		nonIME:        opts.NonIMEWindow,
		tieBreak:      opts.TieBreak,
		handoverWait:  handover,
		windows:       window.NewRegistry(),
		sessions:      make(map[ids.WindowID]*textinput.Session),
		selections:    make(map[selection.Kind]*selection.Selection),
		notifications: make(map[ids.RequestID]notification),
		byDesktopID:   make(map[string]ids.RequestID),
		showing:       make(map[ids.RequestID]ids.WindowID),
	}
	for _, k := range selection.Kinds {
		a.selections[k] = selection.New(k)
	}
	a.bridge = bridge.New(opts.Loop.Post, bridge.Options{
		Workers:   opts.Workers,
		QueueSize: opts.RequestQueue,
		Logger:    logger.With("component", "bridge"),
	})
	if w, ok := opts.Desktop.(platform.NotificationWatcher); ok {
		w.WatchNotifications(func(id, reason string) {
			a.loop.Post(func() { a.notificationClosed(id, reason) })
		})
	}
	return a, nil
}

// Start connects the backend and delivers ApplicationStarted.
func (a *App) Start() error {
	a.loop.AssertLoopThread("Start")
	if a.started {
		return nil
	}
	if err := a.backend.Start(a.loop.Post, &sink{a}); err != nil {
		return fmt.Errorf("start %s backend: %w", a.backend.Name(), err)
	}
	a.started = true
	a.logger.Info("backend started", "backend", a.backend.Name())
	a.emit(event.ApplicationStarted{})
	return nil
}

// Run starts the application on the calling goroutine and pumps the loop
// until it stops, then shuts down.
func (a *App) Run(ctx context.Context) error {
	var startErr error
	a.loop.Post(func() {
		if err := a.Start(); err != nil {
			startErr = err
			a.loop.Stop()
		}
	})
	runErr := a.loop.Run(ctx)
	a.Shutdown()
	if startErr != nil {
		return startErr
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// Shutdown stops the workers and disconnects the backend. It is safe to
// call more than once.
func (a *App) Shutdown() {
	if a.closed {
		return
	}
	a.closed = true
	a.bridge.Close()
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("backend close failed", "error", err)
	}
}

// RequestTerminate asks the host whether to quit. On approval it delivers
// ApplicationWillTerminate and stops the loop.
func (a *App) RequestTerminate() bool {
	a.loop.AssertLoopThread("RequestTerminate")
	if a.cb.ApplicationWantsToTerminate != nil {
		allow := false
		if !a.callHost("ApplicationWantsToTerminate", func() { allow = a.cb.ApplicationWantsToTerminate() }) || !allow {
			a.logger.Info("termination vetoed by host")
			return false
		}
	}
	a.emit(event.ApplicationWillTerminate{})
	a.loop.Stop()
	return true
}

// Observe registers fn to see every event after the host handler. Used by
// the event tap and automation surfaces; fn must copy what it keeps.
func (a *App) Observe(fn func(event.Event)) {
	a.loop.AssertLoopThread("Observe")
	a.observers = append(a.observers, fn)
}

// Status is a summary of the application state.
type Status struct {
	Backend       string               `json:"backend"`
	Windows       int                  `json:"windows"`
	Focused       ids.WindowID         `json:"focused,omitempty"`
	Pending       int                  `json:"pending_requests"`
	Notifications int                  `json:"notifications"`
	Dragging      bool                 `json:"dragging"`
	DropTarget    bool                 `json:"drop_target"`
	Selections    []selection.Snapshot `json:"selections"`
}

// Status reports the current state.
func (a *App) Status() Status {
	a.loop.AssertLoopThread("Status")
	st := Status{
		Backend:       a.backend.Name(),
		Windows:       a.windows.Len(),
		Focused:       a.windows.Focused(),
		Pending:       a.bridge.Len(),
		Notifications: len(a.notifications),
		Dragging:      a.source != nil,
		DropTarget:    a.target != nil,
	}
	for _, k := range selection.Kinds {
		st.Selections = append(st.Selections, a.selections[k].Snapshot())
	}
	return st
}

// emit queues e and, unless a delivery is already running, delivers the
// queue in order. Events raised by the host during a delivery are
// delivered after it returns.
func (a *App) emit(e event.Event) {
	a.loop.AssertLoopThread("emit")
	a.queue = append(a.queue, e)
	if a.delivering {
		return
	}
	a.delivering = true
	defer func() { a.delivering = false }()
	for len(a.queue) > 0 {
		next := a.queue[0]
		a.queue[0] = nil
		a.queue = a.queue[1:]
		a.dispatch(next)
	}
}

func (a *App) dispatch(e event.Event) {
	if a.cb.OnEvent != nil {
		a.callHost(e.Kind().String(), func() { a.cb.OnEvent(e) })
	}
	for _, obs := range a.observers {
		a.callHost("observer", func() { obs(e) })
	}
}

// callHost runs host code and converts a panic into a logged failure. It
// reports whether fn returned normally.
func (a *App) callHost(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("host callback panicked", "callback", name, "panic", r)
			ok = false
		}
	}()
	fn()
	return true
}

// violation reports a peer protocol bug.
func (a *App) violation(op string, w ids.WindowID, err error) {
	if a.debug {
		panic(fmt.Sprintf("protocol violation in %s (window %d): %v", op, w, err))
	}
	a.logger.Error("protocol violation", "op", op, "window", w, "error", err)
}

// provide pulls content for a peer from the host.
func (a *App) provide(source Source, mimeType string) (data []byte, err error) {
	if a.cb.DataTransferData == nil {
		return nil, ErrNoProvider
	}
	if !a.callHost("DataTransferData", func() { data, err = a.cb.DataTransferData(source, mimeType) }) {
		return nil, fmt.Errorf("%s %q: %w", source, mimeType, ErrHostPanic)
	}
	return data, err
}
