// Package x11 is the X11 backend, built on xgb and xgbutil.
//
// Native events are read on a dedicated goroutine and posted to the event
// loop; all window and selection state is touched on the loop only, except
// the read-side selection cache, which bridge workers share under mu.
package x11

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/windowkit/internal/dnd"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/platform"
	"github.com/1broseidon/windowkit/internal/textinput"
	"github.com/1broseidon/windowkit/internal/window"
)

// ErrNoWindow is returned for commands on windows this backend never created.
var ErrNoWindow = errors.New("x11: no such window")

// Options configures a Backend.
type Options struct {
	// Display overrides $DISPLAY.
	Display string
	// Scale is reported for every window and display. Zero means 1.
	Scale  float64
	Logger *slog.Logger
}

// Backend implements platform.Backend on an X server.
type Backend struct {
	opts   Options
	logger *slog.Logger
	conn   *Connection
	post   func(func()) bool
	sink   platform.Sink

	windows map[ids.WindowID]*nativeWindow
	byXID   map[xproto.Window]ids.WindowID

	sel *selections

	done chan struct{}
	once sync.Once
}

var _ platform.Backend = (*Backend)(nil)

// New creates a backend that is not yet connected.
func New(opts Options) *Backend {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		opts:    opts,
		logger:  logger,
		windows: make(map[ids.WindowID]*nativeWindow),
		byXID:   make(map[xproto.Window]ids.WindowID),
		done:    make(chan struct{}),
	}
}

func (b *Backend) Name() string { return "x11" }

// Start connects to the X server and begins reading events.
func (b *Backend) Start(post func(func()) bool, sink platform.Sink) error {
	if sink == nil {
		return fmt.Errorf("x11: nil sink")
	}
	conn, err := NewConnection(b.opts.Display)
	if err != nil {
		return fmt.Errorf("x11: connect: %w", err)
	}
	sel, err := newSelections(conn, b.logger, post)
	if err != nil {
		conn.Close()
		return fmt.Errorf("x11: selections: %w", err)
	}
	b.conn, b.sel, b.post, b.sink = conn, sel, post, sink

	if err := conn.initRandR(); err != nil {
		b.logger.Warn("randr unavailable, display changes will not be reported", "error", err)
	}

	go func() {
		defer close(b.done)
		conn.EventLoop(b.dispatch, func(xerr xgb.Error) {
			b.logger.Debug("x11 protocol error", "error", xerr)
		})
	}()

	post(b.reportDisplays)
	return nil
}

// dispatch runs on the reader goroutine.
func (b *Backend) dispatch(ev xgb.Event) {
	if ev, ok := ev.(xproto.SelectionNotifyEvent); ok {
		if b.sel.notified(ev) {
			return
		}
	}
	b.post(func() { b.handle(ev) })
}

// Close disconnects. The reader goroutine exits once the connection is gone.
func (b *Backend) Close() error {
	b.once.Do(func() {
		if b.conn == nil {
			close(b.done)
			return
		}
		b.sel.close()
		for _, w := range b.windows {
			w.win.Destroy()
		}
		b.conn.Close()
	})
	<-b.done
	return nil
}

func (b *Backend) CreateWindow(id ids.WindowID, params window.Params) error {
	if _, exists := b.windows[id]; exists {
		return fmt.Errorf("x11: window %d already exists", id)
	}
	w, err := b.conn.createWindow(id, params)
	if err != nil {
		return err
	}
	b.windows[id] = w
	b.byXID[w.win.Id] = id
	b.logger.Debug("native window created", "window", id, "xid", w.win.Id)
	return nil
}

// DestroyWindow destroys the native window. Closed follows from the
// DestroyNotify event.
func (b *Backend) DestroyWindow(id ids.WindowID) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.win.Destroy()
	return nil
}

func (b *Backend) SetTitle(id ids.WindowID, title string) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	b.conn.setTitle(w.win.Id, title)
	return nil
}

func (b *Backend) SetMaximized(id ids.WindowID, on bool) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	return b.conn.setMaximized(w.win.Id, on)
}

func (b *Backend) SetFullscreen(id ids.WindowID, on bool) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	return b.conn.setFullscreen(w.win.Id, on)
}

func (b *Backend) Minimize(id ids.WindowID) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	return b.conn.minimize(w.win.Id)
}

// RequestRedraw schedules a draw tick. X has no frame clock, so the tick
// is simply the next loop iteration.
func (b *Backend) RequestRedraw(id ids.WindowID) error {
	if _, err := b.window(id); err != nil {
		return err
	}
	b.post(func() {
		if _, ok := b.windows[id]; ok {
			b.sink.Draw(id)
		}
	})
	return nil
}

// X11 has no input method protocol here. While enabled, typed text is
// reported as commit-only TextInput updates.

func (b *Backend) EnableTextInput(id ids.WindowID, _ textinput.Context) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.textInput = true
	return nil
}

func (b *Backend) UpdateTextInput(id ids.WindowID, _ textinput.Context) error {
	_, err := b.window(id)
	return err
}

func (b *Backend) DisableTextInput(id ids.WindowID) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.textInput = false
	return nil
}

// StartDrag is not implemented; XDND is not supported.
func (b *Backend) StartDrag(ids.WindowID, dnd.SourceParams, window.PointerDown) error {
	return fmt.Errorf("x11 drag source: %w", platform.ErrUnsupported)
}

func (b *Backend) reportDisplays() {
	displays, err := b.conn.Displays(b.opts.Scale)
	if err != nil {
		b.logger.Warn("query displays failed", "error", err)
		return
	}
	b.sink.DisplaysChanged(displays)
}

func (b *Backend) window(id ids.WindowID) (*nativeWindow, error) {
	w, ok := b.windows[id]
	if !ok {
		return nil, fmt.Errorf("window %d: %w", id, ErrNoWindow)
	}
	return w, nil
}

func (b *Backend) lookup(xid xproto.Window) (*nativeWindow, bool) {
	id, ok := b.byXID[xid]
	if !ok {
		return nil, false
	}
	w, ok := b.windows[id]
	return w, ok
}
