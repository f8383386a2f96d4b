package event

import (
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/window"
)

// WindowConfigure reports a new logical configuration. The first one for a
// window marks it as configured.
type WindowConfigure struct {
	Window       ids.WindowID        `json:"window"`
	Size         geom.Size           `json:"size"`
	Active       bool                `json:"active"`
	Maximized    bool                `json:"maximized"`
	Fullscreen   bool                `json:"fullscreen"`
	Decoration   window.Decoration   `json:"decoration"`
	Capabilities window.Capabilities `json:"capabilities"`
}

// WindowScaleChanged is delivered separately from the configure that
// carried it.
type WindowScaleChanged struct {
	Window ids.WindowID `json:"window"`
	Scale  float64      `json:"scale"`
}

// WindowDraw is the per-frame animation tick.
type WindowDraw struct {
	Window ids.WindowID `json:"window"`
}

type WindowKeyboardEnter struct {
	Window ids.WindowID `json:"window"`
}

type WindowKeyboardLeave struct {
	Window ids.WindowID `json:"window"`
}

// WindowCloseRequested is delivered after the host approved a close.
type WindowCloseRequested struct {
	Window ids.WindowID `json:"window"`
}

type WindowClosed struct {
	Window ids.WindowID `json:"window"`
}

func (WindowConfigure) Kind() Kind      { return KindWindowConfigure }
func (WindowScaleChanged) Kind() Kind   { return KindWindowScaleChanged }
func (WindowDraw) Kind() Kind           { return KindWindowDraw }
func (WindowKeyboardEnter) Kind() Kind  { return KindWindowKeyboardEnter }
func (WindowKeyboardLeave) Kind() Kind  { return KindWindowKeyboardLeave }
func (WindowCloseRequested) Kind() Kind { return KindWindowCloseRequested }
func (WindowClosed) Kind() Kind         { return KindWindowClosed }

func (WindowConfigure) isEvent()      {}
func (WindowScaleChanged) isEvent()   {}
func (WindowDraw) isEvent()           {}
func (WindowKeyboardEnter) isEvent()  {}
func (WindowKeyboardLeave) isEvent()  {}
func (WindowCloseRequested) isEvent() {}
func (WindowClosed) isEvent()         {}
