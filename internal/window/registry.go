package window

import (
	"errors"
	"fmt"
	"sort"

	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
)

var (
	// ErrUnknownWindow is returned for ids the registry does not hold.
	ErrUnknownWindow = errors.New("unknown window")
	// ErrEmptyConfigure is returned for zero-area configurations.
	ErrEmptyConfigure = errors.New("zero-area configure")
	// ErrExhausted is returned when no more window ids can be allocated.
	ErrExhausted = errors.New("window ids exhausted")
)

// Configure is what a backend reports when the window manager (re)configures
// a window. Scale travels with it but is delivered separately.
type Configure struct {
	Size         geom.Size
	Scale        float64
	Active       bool
	Maximized    bool
	Fullscreen   bool
	Decoration   Decoration
	Capabilities Capabilities
}

// ConfigureResult tells the caller which events a configure produced.
type ConfigureResult struct {
	First        bool
	ScaleChanged bool
	Scale        float64
}

// Registry owns every live window. Arena-style: windows are looked up by
// id, nothing holds pointers across event-loop iterations.
type Registry struct {
	alloc   ids.WindowAllocator
	windows map[ids.WindowID]*State
	focused ids.WindowID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{windows: make(map[ids.WindowID]*State)}
}

// Create allocates an id and inserts a window in PhaseCreated.
func (r *Registry) Create(params Params) (*State, error) {
	id := r.alloc.Next()
	if id == 0 {
		return nil, ErrExhausted
	}
	st := &State{
		ID:     id,
		Phase:  PhaseCreated,
		Params: params,
		Title:  params.Title,
		Size:   params.Size,
		Scale:  1,
	}
	r.windows[id] = st
	return st, nil
}

// Get returns the window for id.
func (r *Registry) Get(id ids.WindowID) (*State, error) {
	st, ok := r.windows[id]
	if !ok {
		return nil, fmt.Errorf("window %d: %w", id, ErrUnknownWindow)
	}
	return st, nil
}

// Remove deletes the window and returns its final state.
func (r *Registry) Remove(id ids.WindowID) (*State, bool) {
	st, ok := r.windows[id]
	if !ok {
		return nil, false
	}
	delete(r.windows, id)
	st.Phase = PhaseClosed
	if r.focused == id {
		r.focused = 0
	}
	return st, true
}

// Len returns the number of live windows.
func (r *Registry) Len() int {
	return len(r.windows)
}

// IDs returns live window ids in ascending order.
func (r *Registry) IDs() []ids.WindowID {
	out := make([]ids.WindowID, 0, len(r.windows))
	for id := range r.windows {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Each calls fn for every live window in ascending id order.
func (r *Registry) Each(fn func(*State)) {
	for _, id := range r.IDs() {
		fn(r.windows[id])
	}
}

// ApplyConfigure updates a window from a native configure.
func (r *Registry) ApplyConfigure(id ids.WindowID, c Configure) (ConfigureResult, error) {
	st, err := r.Get(id)
	if err != nil {
		return ConfigureResult{}, err
	}
	if c.Size.Empty() {
		return ConfigureResult{}, fmt.Errorf("window %d %dx%d: %w", id, c.Size.Width, c.Size.Height, ErrEmptyConfigure)
	}

	res := ConfigureResult{First: st.Phase == PhaseCreated}
	if c.Scale > 0 && c.Scale != st.Scale {
		res.ScaleChanged = true
		st.Scale = c.Scale
	}
	res.Scale = st.Scale

	st.Size = c.Size
	st.Maximized = c.Maximized
	st.Fullscreen = c.Fullscreen
	st.Decoration = c.Decoration
	st.Capabilities = c.Capabilities

	if st.Phase != PhaseClosing {
		if c.Active {
			st.Phase = PhaseActive
		} else {
			st.Phase = PhaseInactive
		}
	}
	return res, nil
}

// Focused returns the window holding keyboard focus, or 0.
func (r *Registry) Focused() ids.WindowID {
	return r.focused
}

// SetFocused records keyboard focus and returns the window that lost it
// (0 if none or if focus did not move).
func (r *Registry) SetFocused(id ids.WindowID) ids.WindowID {
	prev := r.focused
	if prev == id {
		return 0
	}
	r.focused = id
	return prev
}

// ClearFocused drops focus if id holds it. Returns true when it did.
func (r *Registry) ClearFocused(id ids.WindowID) bool {
	if r.focused != id || id == 0 {
		return false
	}
	r.focused = 0
	return true
}

// BeginClose moves a window into PhaseClosing. Configures no longer change
// its phase.
func (r *Registry) BeginClose(id ids.WindowID) error {
	st, err := r.Get(id)
	if err != nil {
		return err
	}
	st.Phase = PhaseClosing
	return nil
}

// ClearDragSource resets the drag-source flag on every window and returns
// the windows that had it set.
func (r *Registry) ClearDragSource() []ids.WindowID {
	var cleared []ids.WindowID
	r.Each(func(st *State) {
		if st.DragSource {
			st.DragSource = false
			cleared = append(cleared, st.ID)
		}
	})
	return cleared
}
