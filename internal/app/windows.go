package app

import (
	"errors"

	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/window"
)

// CreateWindow registers a window and asks the backend to create it on the
// next loop iteration. It returns 0 on failure. The first WindowConfigure
// for the id marks the window as configured.
func (a *App) CreateWindow(params window.Params) ids.WindowID {
	a.loop.AssertLoopThread("CreateWindow")
	if !a.started {
		a.logger.Warn("create window before start", "error", ErrNotStarted)
		return 0
	}
	st, err := a.windows.Create(params)
	if err != nil {
		a.logger.Warn("create window failed", "error", err)
		return 0
	}
	id := st.ID
	a.loop.Defer(func() {
		if _, err := a.windows.Get(id); err != nil {
			return
		}
		if err := a.backend.CreateWindow(id, params); err != nil {
			a.logger.Warn("native window create failed", "window", id, "error", err)
			a.windowClosed(id)
		}
	})
	a.logger.Debug("window created", "window", id, "title", params.Title)
	return id
}

// CloseWindow destroys a window without consulting the close predicate.
// WindowClosed follows once the backend reports the window gone.
func (a *App) CloseWindow(id ids.WindowID) bool {
	a.loop.AssertLoopThread("CloseWindow")
	st, err := a.windows.Get(id)
	if err != nil {
		a.logger.Warn("close window", "error", err)
		return false
	}
	if st.Phase == window.PhaseClosing {
		return true
	}
	if err := a.windows.BeginClose(id); err != nil {
		return false
	}
	a.loop.Defer(func() {
		if _, err := a.windows.Get(id); err != nil {
			return
		}
		if err := a.backend.DestroyWindow(id); err != nil {
			a.logger.Warn("native window destroy failed", "window", id, "error", err)
			a.windowClosed(id)
		}
	})
	return true
}

// SetTitle updates the window title.
func (a *App) SetTitle(id ids.WindowID, title string) bool {
	a.loop.AssertLoopThread("SetTitle")
	st, err := a.windows.Get(id)
	if err != nil {
		a.logger.Warn("set title", "error", err)
		return false
	}
	if err := a.backend.SetTitle(id, title); err != nil {
		a.logger.Warn("native set title failed", "window", id, "error", err)
		return false
	}
	st.Title = title
	return true
}

// SetMaximized requests a state change; the next configure reports it.
func (a *App) SetMaximized(id ids.WindowID, on bool) bool {
	return a.windowCommand("SetMaximized", id, func() error { return a.backend.SetMaximized(id, on) })
}

// SetFullscreen requests a state change; the next configure reports it.
func (a *App) SetFullscreen(id ids.WindowID, on bool) bool {
	return a.windowCommand("SetFullscreen", id, func() error { return a.backend.SetFullscreen(id, on) })
}

// Minimize iconifies the window.
func (a *App) Minimize(id ids.WindowID) bool {
	ok := a.windowCommand("Minimize", id, func() error { return a.backend.Minimize(id) })
	if ok {
		if st, err := a.windows.Get(id); err == nil {
			st.Minimized = true
		}
	}
	return ok
}

// RequestRedraw asks for a WindowDraw tick.
func (a *App) RequestRedraw(id ids.WindowID) bool {
	return a.windowCommand("RequestRedraw", id, func() error { return a.backend.RequestRedraw(id) })
}

func (a *App) windowCommand(op string, id ids.WindowID, native func() error) bool {
	a.loop.AssertLoopThread(op)
	if _, err := a.windows.Get(id); err != nil {
		a.logger.Warn("window command", "op", op, "error", err)
		return false
	}
	if err := native(); err != nil {
		a.logger.Warn("native window command failed", "op", op, "window", id, "error", err)
		return false
	}
	return true
}

// WindowState returns a snapshot of one window.
func (a *App) WindowState(id ids.WindowID) (window.Snapshot, bool) {
	a.loop.AssertLoopThread("WindowState")
	st, err := a.windows.Get(id)
	if err != nil {
		return window.Snapshot{}, false
	}
	return st.Snapshot(), true
}

// WindowIDs lists live windows in creation order.
func (a *App) WindowIDs() []ids.WindowID {
	a.loop.AssertLoopThread("WindowIDs")
	return a.windows.IDs()
}

// Windows snapshots every live window.
func (a *App) Windows() []window.Snapshot {
	a.loop.AssertLoopThread("Windows")
	var out []window.Snapshot
	a.windows.Each(func(st *window.State) {
		out = append(out, st.Snapshot())
	})
	return out
}

func (a *App) configure(id ids.WindowID, c window.Configure) {
	res, err := a.windows.ApplyConfigure(id, c)
	if errors.Is(err, window.ErrEmptyConfigure) {
		a.logger.Debug("ignoring zero-area configure", "window", id)
		return
	}
	if err != nil {
		a.logger.Warn("configure", "error", err)
		return
	}
	st, _ := a.windows.Get(id)
	if res.First {
		a.logger.Debug("window configured", "window", id, "width", st.Size.Width, "height", st.Size.Height)
	}
	a.emit(event.WindowConfigure{
		Window:       id,
		Size:         st.Size,
		Active:       c.Active,
		Maximized:    st.Maximized,
		Fullscreen:   st.Fullscreen,
		Decoration:   st.Decoration,
		Capabilities: st.Capabilities,
	})
	if res.ScaleChanged {
		a.emit(event.WindowScaleChanged{Window: id, Scale: res.Scale})
	}
}

func (a *App) keyboardEnter(id ids.WindowID) {
	st, err := a.windows.Get(id)
	if err != nil {
		a.logger.Warn("keyboard enter", "error", err)
		return
	}
	if a.windows.Focused() == id {
		return
	}
	if prev := a.windows.Focused(); prev != 0 {
		a.keyboardLeave(prev)
	}
	// Availability is in place before the host hears about focus, so the
	// enter handler may enable text input.
	a.windows.SetFocused(id)
	available := id != a.nonIME
	st.TextInputAvailable = available
	a.emit(event.WindowKeyboardEnter{Window: id})
	if available {
		a.emit(event.TextInputAvailability{Window: id, Available: true})
	}
}

func (a *App) keyboardLeave(id ids.WindowID) {
	if !a.windows.ClearFocused(id) {
		return
	}
	a.dropTextInput(id)
	if st, err := a.windows.Get(id); err == nil && st.TextInputAvailable {
		st.TextInputAvailable = false
		a.emit(event.TextInputAvailability{Window: id, Available: false})
	}
	a.emit(event.WindowKeyboardLeave{Window: id})
}

func (a *App) closeRequested(id ids.WindowID) {
	if _, err := a.windows.Get(id); err != nil {
		a.logger.Warn("close request", "error", err)
		return
	}
	if a.cb.WindowCloseRequest != nil {
		allow := false
		if !a.callHost("WindowCloseRequest", func() { allow = a.cb.WindowCloseRequest(id) }) || !allow {
			a.logger.Debug("close vetoed by host", "window", id)
			return
		}
	}
	a.emit(event.WindowCloseRequested{Window: id})
	a.CloseWindow(id)
}

// windowClosed retires id from every table. Closing the last window stops
// the loop.
func (a *App) windowClosed(id ids.WindowID) {
	if a.windows.Focused() == id {
		a.keyboardLeave(id)
	}
	if _, ok := a.windows.Remove(id); !ok {
		return
	}
	delete(a.sessions, id)
	if a.target != nil && a.target.Window == id {
		a.target = nil
	}
	if a.source != nil && a.source.Window == id {
		a.source = nil
	}
	if dropped := a.bridge.DropWindow(id); len(dropped) > 0 {
		a.logger.Debug("dropped pending requests", "window", id, "requests", dropped)
	}
	a.closeWindowNotifications(id)

	a.emit(event.WindowClosed{Window: id})
	a.logger.Debug("window closed", "window", id, "remaining", a.windows.Len())

	if a.windows.Len() == 0 {
		a.logger.Info("last window closed, stopping event loop")
		a.loop.Stop()
	}
}

func (a *App) draw(id ids.WindowID) {
	if _, err := a.windows.Get(id); err != nil {
		return
	}
	a.emit(event.WindowDraw{Window: id})
}

func (a *App) dragIconDraw(size geom.Size) {
	a.emit(event.DragIconDraw{Size: size})
}

func (a *App) displaysChanged(displays []event.Display) {
	a.emit(event.DisplayConfigurationChanged{Displays: append([]event.Display(nil), displays...)})
}

func (a *App) input(e event.Event) {
	w := event.WindowOf(e)
	st, err := a.windows.Get(w)
	if err != nil {
		a.logger.Debug("input for unknown window", "kind", e.Kind().String(), "window", w)
		return
	}
	switch ev := e.(type) {
	case event.MouseDown:
		st.Pointer = &window.PointerDown{Button: int(ev.Button), Location: ev.Location, Serial: ev.Serial}
	case event.MouseUp:
		st.Pointer = nil
	case event.MouseExited:
		if a.source == nil {
			st.Pointer = nil
		}
	case event.KeyDown:
		a.keyText(ev)
	}
	a.emit(e)
}
