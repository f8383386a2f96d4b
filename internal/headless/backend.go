// Package headless is an in-memory backend. It behaves like a compositor
// that maps every window immediately and lets callers drive input through
// the Sim methods. It is used by tests and by `windowkit run --backend
// headless`.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/1broseidon/windowkit/internal/dnd"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/mime"
	"github.com/1broseidon/windowkit/internal/platform"
	"github.com/1broseidon/windowkit/internal/selection"
	"github.com/1broseidon/windowkit/internal/textinput"
	"github.com/1broseidon/windowkit/internal/window"
)

// ErrNoWindow is returned for commands on windows the backend never created.
var ErrNoWindow = errors.New("headless: no such window")

// Options configures a Backend.
type Options struct {
	// Scale is reported in every configure. Zero means 1.
	Scale float64
	// NoPrimary removes the primary-selection device.
	NoPrimary bool
	// ClipboardManager takes over clipboard content when we clear it.
	ClipboardManager bool
}

// Window is the backend's record of a native window.
type Window struct {
	Params     window.Params
	Size       geom.Size
	Title      string
	Maximized  bool
	Fullscreen bool
	Minimized  bool
	// Active follows simulated focus and the last simulated configure.
	Active bool
	// TextInput is the last context pushed to the input method.
	TextInput *textinput.Context
	// Surrounding counts surrounding-text pushes after enable.
	Surrounding int
}

// Backend implements platform.Backend in memory.
type Backend struct {
	opts    Options
	post    func(func()) bool
	sink    platform.Sink
	windows map[ids.WindowID]*Window
	serial  uint32

	drag *dnd.SourceParams

	// guarded by mu; ReadSelection runs on bridge workers
	mu       sync.Mutex
	owned    map[selection.Kind][]string
	external map[selection.Kind]map[string][]byte
	order    map[selection.Kind][]string
	handover []time.Duration
}

var _ platform.Backend = (*Backend)(nil)

// New creates a backend that is not yet started.
func New(opts Options) *Backend {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	return &Backend{
		opts:     opts,
		windows:  make(map[ids.WindowID]*Window),
		owned:    make(map[selection.Kind][]string),
		external: make(map[selection.Kind]map[string][]byte),
		order:    make(map[selection.Kind][]string),
	}
}

func (b *Backend) Name() string { return "headless" }

func (b *Backend) Start(post func(func()) bool, sink platform.Sink) error {
	if sink == nil {
		return fmt.Errorf("headless: nil sink")
	}
	b.post, b.sink = post, sink
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// CreateWindow maps the window and configures it on the next task.
func (b *Backend) CreateWindow(id ids.WindowID, params window.Params) error {
	if _, exists := b.windows[id]; exists {
		return fmt.Errorf("headless: window %d already exists", id)
	}
	b.windows[id] = &Window{Params: params, Size: params.Size, Title: params.Title}
	b.configureLater(id)
	return nil
}

func (b *Backend) DestroyWindow(id ids.WindowID) error {
	if _, err := b.window(id); err != nil {
		return err
	}
	delete(b.windows, id)
	b.post(func() { b.sink.Closed(id) })
	return nil
}

func (b *Backend) SetTitle(id ids.WindowID, title string) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.Title = title
	return nil
}

func (b *Backend) SetMaximized(id ids.WindowID, on bool) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.Maximized = on
	b.configureLater(id)
	return nil
}

func (b *Backend) SetFullscreen(id ids.WindowID, on bool) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.Fullscreen = on
	b.configureLater(id)
	return nil
}

func (b *Backend) Minimize(id ids.WindowID) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.Minimized = true
	return nil
}

func (b *Backend) RequestRedraw(id ids.WindowID) error {
	if _, err := b.window(id); err != nil {
		return err
	}
	b.post(func() { b.sink.Draw(id) })
	return nil
}

func (b *Backend) EnableTextInput(id ids.WindowID, ctx textinput.Context) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.TextInput = &ctx
	w.Surrounding = 0
	return nil
}

func (b *Backend) UpdateTextInput(id ids.WindowID, ctx textinput.Context) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	if w.TextInput == nil {
		return fmt.Errorf("headless: window %d has no input method bound", id)
	}
	w.TextInput = &ctx
	w.Surrounding++
	return nil
}

func (b *Backend) DisableTextInput(id ids.WindowID) error {
	w, err := b.window(id)
	if err != nil {
		return err
	}
	w.TextInput = nil
	return nil
}

func (b *Backend) StartDrag(id ids.WindowID, params dnd.SourceParams, press window.PointerDown) error {
	if _, err := b.window(id); err != nil {
		return err
	}
	p := params
	p.MimeTypes = mime.Copy(params.MimeTypes)
	b.drag = &p
	if p.Icon != nil {
		size := p.Icon.Size
		b.post(func() { b.sink.DragIconDraw(size) })
	}
	return nil
}

func (b *Backend) SelectionAvailable(kind selection.Kind) bool {
	return kind != selection.Primary || !b.opts.NoPrimary
}

func (b *Backend) OwnSelection(kind selection.Kind, mimeTypes []string) error {
	if !b.SelectionAvailable(kind) {
		return platform.ErrUnsupported
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owned[kind] = mime.Copy(mimeTypes)
	delete(b.external, kind)
	delete(b.order, kind)
	return nil
}

// ClearSelection drops ownership. With a clipboard manager configured, the
// manager reads every advertised type first and becomes the owner.
func (b *Backend) ClearSelection(kind selection.Kind, handover time.Duration) error {
	b.mu.Lock()
	types := b.owned[kind]
	delete(b.owned, kind)
	b.handover = append(b.handover, handover)
	b.mu.Unlock()

	if kind != selection.Clipboard || !b.opts.ClipboardManager || len(types) == 0 {
		return nil
	}
	saved := make(map[string][]byte, len(types))
	var order []string
	deadline := time.Now().Add(handover)
	for _, t := range types {
		if time.Now().After(deadline) {
			break
		}
		data, err := b.sink.SelectionData(kind, t)
		if err != nil {
			continue
		}
		saved[t] = data
		order = append(order, t)
	}
	b.mu.Lock()
	b.external[kind] = saved
	b.order[kind] = order
	b.mu.Unlock()
	if len(order) > 0 {
		b.post(func() { b.sink.SelectionOffer(kind, mime.Copy(order)) })
	}
	return nil
}

// ReadSelection reads from the simulated foreign owner.
func (b *Backend) ReadSelection(ctx context.Context, kind selection.Kind, mimeType string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	content, ok := b.external[kind]
	if !ok {
		return nil, fmt.Errorf("headless: %s has no foreign owner", kind)
	}
	for t, data := range content {
		if mime.Equal(t, mimeType) {
			return append([]byte(nil), data...), nil
		}
	}
	return nil, fmt.Errorf("headless: %s does not offer %q", kind, mimeType)
}

// Window returns the backend record for id.
func (b *Backend) Window(id ids.WindowID) (*Window, bool) {
	w, ok := b.windows[id]
	return w, ok
}

// Owned reports the types we advertise on kind.
func (b *Backend) Owned(kind selection.Kind) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return mime.Copy(b.owned[kind])
}

// Handovers lists the handover bounds passed to ClearSelection.
func (b *Backend) Handovers() []time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]time.Duration(nil), b.handover...)
}

// Drag returns the active outgoing drag, if any.
func (b *Backend) Drag() (dnd.SourceParams, bool) {
	if b.drag == nil {
		return dnd.SourceParams{}, false
	}
	return *b.drag, true
}

func (b *Backend) window(id ids.WindowID) (*Window, error) {
	w, ok := b.windows[id]
	if !ok {
		return nil, fmt.Errorf("window %d: %w", id, ErrNoWindow)
	}
	return w, nil
}

func (b *Backend) configureLater(id ids.WindowID) {
	b.post(func() {
		w, ok := b.windows[id]
		if !ok {
			return
		}
		b.sink.Configure(id, b.configureFor(w))
	})
}

func (b *Backend) configureFor(w *Window) window.Configure {
	return window.Configure{
		Size:         w.Size,
		Scale:        b.opts.Scale,
		Active:       w.Active,
		Maximized:    w.Maximized,
		Fullscreen:   w.Fullscreen,
		Decoration:   window.DecorationServer,
		Capabilities: window.AllCapabilities,
	}
}
