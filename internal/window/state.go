package window

import (
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
)

// Phase represents where a window is in its lifecycle.
type Phase int

const (
	// PhaseCreated means the id is allocated but no configure has arrived yet.
	PhaseCreated Phase = iota
	// PhaseInactive means the window is configured and not active.
	PhaseInactive
	// PhaseActive means the window is configured and active.
	PhaseActive
	// PhaseClosing means a close was approved and the native window is going away.
	PhaseClosing
	// PhaseClosed is terminal.
	PhaseClosed
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseInactive:
		return "inactive"
	case PhaseActive:
		return "active"
	case PhaseClosing:
		return "closing"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Configured reports whether at least one configure has been applied.
func (p Phase) Configured() bool {
	return p == PhaseInactive || p == PhaseActive
}

// Decoration says who draws the window frame.
type Decoration int

const (
	DecorationServer Decoration = iota
	DecorationClient
)

func (d Decoration) String() string {
	if d == DecorationClient {
		return "client"
	}
	return "server"
}

// MarshalText renders the mode for JSON.
func (d Decoration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Capabilities are advertised by the window manager. They are advisory only.
type Capabilities struct {
	WindowMenu bool `json:"window_menu"`
	Maximize   bool `json:"maximize"`
	Fullscreen bool `json:"fullscreen"`
	Minimize   bool `json:"minimize"`
}

// AllCapabilities is what backends report when the compositor says nothing.
var AllCapabilities = Capabilities{WindowMenu: true, Maximize: true, Fullscreen: true, Minimize: true}

// Params are supplied by the host when creating a window.
type Params struct {
	Title       string    `json:"title"`
	Size        geom.Size `json:"size"`
	MinSize     geom.Size `json:"min_size"`
	Decorations bool      `json:"decorations"`
	AppID       string    `json:"app_id"`
}

// PointerDown records the press that may start a drag.
type PointerDown struct {
	Button   int
	Location geom.Point
	Serial   uint32
}

// State is the per-window record owned by the registry. It is only touched
// on the event-loop thread.
type State struct {
	ID           ids.WindowID
	Phase        Phase
	Params       Params
	Title        string
	Size         geom.Size
	Scale        float64
	Maximized    bool
	Fullscreen   bool
	Minimized    bool
	Decoration   Decoration
	Capabilities Capabilities

	DragSource bool
	DragTarget bool

	TextInputAvailable bool

	Pointer *PointerDown

	// LastReceivedPaths holds the file paths from the most recent drop or
	// paste of a uri list onto this window.
	LastReceivedPaths []string
}

// Active reports whether the window currently has the active flag.
func (s *State) Active() bool {
	return s.Phase == PhaseActive
}

// Snapshot is a copy of State safe to hand to other goroutines.
type Snapshot struct {
	ID                 ids.WindowID `json:"id"`
	Phase              string       `json:"phase"`
	Title              string       `json:"title"`
	Size               geom.Size    `json:"size"`
	Scale              float64      `json:"scale"`
	Maximized          bool         `json:"maximized"`
	Fullscreen         bool         `json:"fullscreen"`
	Decoration         string       `json:"decoration"`
	Capabilities       Capabilities `json:"capabilities"`
	DragSource         bool         `json:"drag_source"`
	DragTarget         bool         `json:"drag_target"`
	TextInputAvailable bool         `json:"text_input_available"`
	LastReceivedPaths  []string     `json:"last_received_paths,omitempty"`
}

// Snapshot copies the state.
func (s *State) Snapshot() Snapshot {
	var paths []string
	if len(s.LastReceivedPaths) > 0 {
		paths = append([]string(nil), s.LastReceivedPaths...)
	}
	return Snapshot{
		ID:                 s.ID,
		Phase:              s.Phase.String(),
		Title:              s.Title,
		Size:               s.Size,
		Scale:              s.Scale,
		Maximized:          s.Maximized,
		Fullscreen:         s.Fullscreen,
		Decoration:         s.Decoration.String(),
		Capabilities:       s.Capabilities,
		DragSource:         s.DragSource,
		DragTarget:         s.DragTarget,
		TextInputAvailable: s.TextInputAvailable,
		LastReceivedPaths:  paths,
	}
}
