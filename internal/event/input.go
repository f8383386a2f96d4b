package event

import (
	"strings"

	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
)

// Key names a physical key independent of layout. Printable keys use the
// unshifted character; the rest use the constants below.
type Key string

const (
	KeyBackspace  Key = "Backspace"
	KeyDelete     Key = "Delete"
	KeyEnter      Key = "Enter"
	KeyEscape     Key = "Escape"
	KeyTab        Key = "Tab"
	KeyArrowLeft  Key = "Left"
	KeyArrowRight Key = "Right"
	KeyArrowUp    Key = "Up"
	KeyArrowDown  Key = "Down"
	KeyHome       Key = "Home"
	KeyEnd        Key = "End"
	KeySpace      Key = "Space"
	KeyShift      Key = "Shift"
	KeyControl    Key = "Control"
	KeyAlt        Key = "Alt"
	KeySuper      Key = "Super"
	KeyUnknown    Key = "Unknown"
)

// Modifiers is the set of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModSuper
	ModCapsLock
	ModNumLock
)

var modifierNames = []struct {
	mod  Modifiers
	name string
}{
	{ModShift, "shift"},
	{ModControl, "ctrl"},
	{ModAlt, "alt"},
	{ModSuper, "super"},
	{ModCapsLock, "caps"},
	{ModNumLock, "num"},
}

func (m Modifiers) String() string {
	var parts []string
	for _, mn := range modifierNames {
		if m&mn.mod != 0 {
			parts = append(parts, mn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// MarshalText renders the set for JSON.
func (m Modifiers) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// MouseButton numbers follow the X11 convention: 1 left, 2 middle, 3 right.
type MouseButton int

const (
	ButtonLeft   MouseButton = 1
	ButtonMiddle MouseButton = 2
	ButtonRight  MouseButton = 3
)

// KeyDown carries Text when the key produces characters under the current
// layout. Text is empty for non-printing keys.
type KeyDown struct {
	Window    ids.WindowID `json:"window"`
	Key       Key          `json:"key"`
	Code      uint32       `json:"code"`
	Text      string       `json:"text,omitempty"`
	Modifiers Modifiers    `json:"modifiers"`
	Repeat    bool         `json:"repeat,omitempty"`
}

type KeyUp struct {
	Window    ids.WindowID `json:"window"`
	Key       Key          `json:"key"`
	Code      uint32       `json:"code"`
	Modifiers Modifiers    `json:"modifiers"`
}

type ModifiersChanged struct {
	Window    ids.WindowID `json:"window"`
	Modifiers Modifiers    `json:"modifiers"`
}

type MouseMoved struct {
	Window   ids.WindowID `json:"window"`
	Location geom.Point   `json:"location"`
}

// MouseDown carries the native serial that a following drag start needs.
type MouseDown struct {
	Window   ids.WindowID `json:"window"`
	Button   MouseButton  `json:"button"`
	Location geom.Point   `json:"location"`
	Serial   uint32       `json:"serial"`
}

type MouseUp struct {
	Window   ids.WindowID `json:"window"`
	Button   MouseButton  `json:"button"`
	Location geom.Point   `json:"location"`
}

type MouseEntered struct {
	Window   ids.WindowID `json:"window"`
	Location geom.Point   `json:"location"`
}

type MouseExited struct {
	Window ids.WindowID `json:"window"`
}

// ScrollWheel deltas are in logical pixels, positive down and right.
type ScrollWheel struct {
	Window   ids.WindowID `json:"window"`
	Delta    geom.Point   `json:"delta"`
	Location geom.Point   `json:"location"`
}

func (KeyDown) Kind() Kind          { return KindKeyDown }
func (KeyUp) Kind() Kind            { return KindKeyUp }
func (ModifiersChanged) Kind() Kind { return KindModifiersChanged }
func (MouseMoved) Kind() Kind       { return KindMouseMoved }
func (MouseDown) Kind() Kind        { return KindMouseDown }
func (MouseUp) Kind() Kind          { return KindMouseUp }
func (MouseEntered) Kind() Kind     { return KindMouseEntered }
func (MouseExited) Kind() Kind      { return KindMouseExited }
func (ScrollWheel) Kind() Kind      { return KindScrollWheel }

func (KeyDown) isEvent()          {}
func (KeyUp) isEvent()            {}
func (ModifiersChanged) isEvent() {}
func (MouseMoved) isEvent()       {}
func (MouseDown) isEvent()        {}
func (MouseUp) isEvent()          {}
func (MouseEntered) isEvent()     {}
func (MouseExited) isEvent()      {}
func (ScrollWheel) isEvent()      {}
