package app

import (
	"testing"

	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/headless"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/window"
)

func TestWindowLifecycle_RegistryTracksCreatesMinusCloses(t *testing.T) {
	h := newHarness(t)

	var created []ids.WindowID
	for i := 0; i < 3; i++ {
		created = append(created, h.window(100+i, 100))
		if got := len(h.app.WindowIDs()); got != i+1 {
			t.Fatalf("after %d creates registry has %d", i+1, got)
		}
	}
	configures := only[event.WindowConfigure](h.take())
	if len(configures) != 3 {
		t.Fatalf("got %d configures, want 3", len(configures))
	}

	for i, id := range created {
		if !h.app.CloseWindow(id) {
			t.Fatalf("CloseWindow(%d) = false", id)
		}
		h.loop.Drain()
		if got, want := len(h.app.WindowIDs()), len(created)-i-1; got != want {
			t.Fatalf("after %d closes registry has %d, want %d", i+1, got, want)
		}
		last := i == len(created)-1
		if h.loop.Stopped() != last {
			t.Fatalf("after close %d loop stopped = %v", i+1, h.loop.Stopped())
		}
	}
	closed := only[event.WindowClosed](h.take())
	if len(closed) != 3 {
		t.Fatalf("got %d WindowClosed, want 3", len(closed))
	}
}

func TestCreateWindow_FirstConfigure(t *testing.T) {
	h := newHarness(t)
	id := h.app.CreateWindow(window.Params{Title: "W1", Size: geom.Size{Width: 200, Height: 300}})
	if st, _ := h.app.WindowState(id); st.Phase != "created" {
		t.Fatalf("phase before configure = %s", st.Phase)
	}
	if len(h.events) != 0 {
		t.Fatalf("create delivered events synchronously: %v", kinds(h.events))
	}
	h.loop.Drain()

	evs := h.take()
	assertKinds(t, evs, event.KindWindowConfigure)
	cfg := evs[0].(event.WindowConfigure)
	if cfg.Window != id || cfg.Size != (geom.Size{Width: 200, Height: 300}) || cfg.Active {
		t.Fatalf("configure = %+v", cfg)
	}
	if st, _ := h.app.WindowState(id); st.Phase != "inactive" {
		t.Fatalf("phase after configure = %s", st.Phase)
	}
}

func TestConfigure_ScaleIsSeparateEvent(t *testing.T) {
	h := newHarness(t)
	w := h.window(100, 100)
	h.take()

	h.backend.SimResize(w, geom.Size{Width: 300, Height: 200}, 2)
	evs := h.take()
	assertKinds(t, evs, event.KindWindowConfigure, event.KindWindowScaleChanged)
	if sc := evs[1].(event.WindowScaleChanged); sc.Scale != 2 {
		t.Fatalf("scale = %v", sc.Scale)
	}

	// Same scale again: size only.
	h.backend.SimResize(w, geom.Size{Width: 310, Height: 200}, 2)
	assertKinds(t, h.take(), event.KindWindowConfigure)
}

func TestConfigure_ZeroAreaIgnored(t *testing.T) {
	h := newHarness(t)
	w := h.window(100, 100)
	h.take()

	h.backend.SimConfigure(w, window.Configure{Size: geom.Size{Width: 0, Height: 50}})
	if evs := h.take(); len(evs) != 0 {
		t.Fatalf("zero-area configure delivered %v", kinds(evs))
	}
	if st, _ := h.app.WindowState(w); st.Size.Width != 100 {
		t.Fatalf("size changed to %+v", st.Size)
	}
}

func TestFocus_IsExclusive(t *testing.T) {
	h := newHarness(t)
	w1 := h.window(10, 10)
	w2 := h.window(10, 10)
	h.take()

	h.backend.SimFocus(w1)
	h.backend.SimFocus(w2)
	evs := h.take()
	assertKinds(t, evs,
		event.KindWindowKeyboardEnter,
		event.KindTextInputAvailability,
		event.KindTextInputAvailability,
		event.KindWindowKeyboardLeave,
		event.KindWindowKeyboardEnter,
		event.KindTextInputAvailability,
	)
	if ev := evs[2].(event.TextInputAvailability); ev.Window != w1 || ev.Available {
		t.Fatalf("expected w1 unavailable, got %+v", ev)
	}
	if ev := evs[3].(event.WindowKeyboardLeave); ev.Window != w1 {
		t.Fatalf("leave went to %d", ev.Window)
	}
	if h.app.Status().Focused != w2 {
		t.Fatalf("focused = %d", h.app.Status().Focused)
	}
}

func TestFocus_NonIMEWindowSkipsAvailability(t *testing.T) {
	h := newHarness(t, func(o *Options, _ *headless.Options) {
		o.NonIMEWindow = 1
	})
	w := h.window(10, 10)
	if w != 1 {
		t.Fatalf("first window id = %d", w)
	}
	h.take()

	h.backend.SimFocus(w)
	assertKinds(t, h.take(), event.KindWindowKeyboardEnter)
	h.backend.SimBlur(w)
	assertKinds(t, h.take(), event.KindWindowKeyboardLeave)
}

func TestCloseRequest_Predicate(t *testing.T) {
	allow := false
	h := newHarness(t, func(o *Options, _ *headless.Options) {
		o.Callbacks.WindowCloseRequest = func(ids.WindowID) bool { return allow }
	})
	w := h.window(10, 10)
	keep := h.window(10, 10)
	h.take()

	h.backend.SimCloseButton(w)
	h.loop.Drain()
	if evs := h.take(); len(evs) != 0 {
		t.Fatalf("vetoed close delivered %v", kinds(evs))
	}
	if _, ok := h.app.WindowState(w); !ok {
		t.Fatal("vetoed window was removed")
	}

	allow = true
	h.backend.SimCloseButton(w)
	h.loop.Drain()
	assertKinds(t, h.take(), event.KindWindowCloseRequested, event.KindWindowClosed)
	if _, ok := h.app.WindowState(w); ok {
		t.Fatal("closed window still registered")
	}
	if h.loop.Stopped() {
		t.Fatalf("loop stopped with window %d still open", keep)
	}
}

func TestWindowCommands_UnknownWindowIsSoftFailure(t *testing.T) {
	h := newHarness(t)
	if h.app.SetTitle(42, "x") || h.app.SetMaximized(42, true) || h.app.CloseWindow(42) || h.app.RequestRedraw(42) {
		t.Fatal("commands on unknown window should return false")
	}
}

func TestSetMaximized_ReportedByConfigure(t *testing.T) {
	h := newHarness(t)
	w := h.window(10, 10)
	h.take()

	if !h.app.SetMaximized(w, true) {
		t.Fatal("SetMaximized = false")
	}
	h.loop.Drain()
	evs := only[event.WindowConfigure](h.take())
	if len(evs) != 1 || !evs[0].Maximized {
		t.Fatalf("configures = %+v", evs)
	}
}

func TestSetMaximized_KeepsFocusedWindowActive(t *testing.T) {
	h := newHarness(t)
	w := h.window(10, 10)
	h.backend.SimFocus(w)
	h.take()

	if !h.app.SetMaximized(w, true) {
		t.Fatal("SetMaximized = false")
	}
	h.loop.Drain()
	evs := only[event.WindowConfigure](h.take())
	if len(evs) != 1 || !evs[0].Active {
		t.Fatalf("configures = %+v", evs)
	}
	if st, _ := h.app.windows.Get(w); st.Phase != window.PhaseActive {
		t.Fatalf("phase = %s", st.Phase)
	}

	h.backend.SimBlur(w)
	h.app.SetFullscreen(w, true)
	h.loop.Drain()
	if st, _ := h.app.windows.Get(w); st.Phase != window.PhaseInactive {
		t.Fatalf("phase after blur = %s", st.Phase)
	}
}

func TestPointerDown_RecordedAndCleared(t *testing.T) {
	h := newHarness(t)
	w := h.window(10, 10)
	h.backend.SimPointerDown(w, geom.Point{X: 1, Y: 1}, event.ButtonLeft)
	st, _ := h.app.windows.Get(w)
	if st.Pointer == nil || st.Pointer.Serial == 0 {
		t.Fatalf("pointer record = %+v", st.Pointer)
	}
	h.backend.SimPointerUp(w, geom.Point{X: 1, Y: 1}, event.ButtonLeft)
	if st.Pointer != nil {
		t.Fatal("pointer record survived release")
	}
}
