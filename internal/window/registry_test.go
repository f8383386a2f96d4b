package window

import (
	"errors"
	"reflect"
	"testing"

	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
)

func TestRegistry_LenTracksCreatesMinusCloses(t *testing.T) {
	r := NewRegistry()
	var live []ids.WindowID
	for i := 0; i < 5; i++ {
		st, err := r.Create(Params{Title: "w"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		live = append(live, st.ID)
		if r.Len() != len(live) {
			t.Fatalf("after %d creates Len() = %d", i+1, r.Len())
		}
	}
	for i, id := range live {
		if _, ok := r.Remove(id); !ok {
			t.Fatalf("remove %d failed", id)
		}
		if want := len(live) - i - 1; r.Len() != want {
			t.Fatalf("Len() = %d, want %d", r.Len(), want)
		}
	}
	if _, ok := r.Remove(live[0]); ok {
		t.Fatalf("double remove must fail")
	}
}

func TestRegistry_ApplyConfigure(t *testing.T) {
	r := NewRegistry()
	st, _ := r.Create(Params{Size: geom.Size{Width: 10, Height: 10}})

	_, err := r.ApplyConfigure(st.ID, Configure{Size: geom.Size{Width: 0, Height: 300}})
	if !errors.Is(err, ErrEmptyConfigure) {
		t.Fatalf("expected ErrEmptyConfigure, got %v", err)
	}
	if st.Phase != PhaseCreated {
		t.Fatalf("rejected configure must not change phase, got %s", st.Phase)
	}

	res, err := r.ApplyConfigure(st.ID, Configure{Size: geom.Size{Width: 200, Height: 300}, Scale: 1})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if !res.First || res.ScaleChanged {
		t.Fatalf("unexpected result %+v", res)
	}
	if st.Phase != PhaseInactive {
		t.Fatalf("expected inactive, got %s", st.Phase)
	}

	res, err = r.ApplyConfigure(st.ID, Configure{Size: geom.Size{Width: 200, Height: 300}, Scale: 2, Active: true})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if res.First || !res.ScaleChanged || res.Scale != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !st.Active() {
		t.Fatalf("expected active window")
	}

	if _, err := r.ApplyConfigure(999, Configure{Size: geom.Size{Width: 1, Height: 1}}); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("expected ErrUnknownWindow, got %v", err)
	}
}

func TestRegistry_FocusIsExclusive(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Create(Params{})
	b, _ := r.Create(Params{})

	if prev := r.SetFocused(a.ID); prev != 0 {
		t.Fatalf("first focus should have no previous, got %d", prev)
	}
	if prev := r.SetFocused(b.ID); prev != a.ID {
		t.Fatalf("moving focus should report %d, got %d", a.ID, prev)
	}
	if prev := r.SetFocused(b.ID); prev != 0 {
		t.Fatalf("refocusing same window should report 0, got %d", prev)
	}
	r.Remove(b.ID)
	if r.Focused() != 0 {
		t.Fatalf("removing focused window must clear focus")
	}
}

func TestRegistry_BeginCloseHoldsPhase(t *testing.T) {
	r := NewRegistry()
	st, _ := r.Create(Params{})
	r.ApplyConfigure(st.ID, Configure{Size: geom.Size{Width: 5, Height: 5}, Active: true})

	if err := r.BeginClose(st.ID); err != nil {
		t.Fatalf("begin close: %v", err)
	}
	if st.Phase != PhaseClosing {
		t.Fatalf("expected closing, got %s", st.Phase)
	}
	r.ApplyConfigure(st.ID, Configure{Size: geom.Size{Width: 9, Height: 9}, Active: true})
	if st.Phase != PhaseClosing {
		t.Fatalf("configure moved a closing window to %s", st.Phase)
	}
	if err := r.BeginClose(0); err == nil {
		t.Fatal("unknown window accepted")
	}
}

func TestRegistry_ClearDragSourceResetsAll(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Create(Params{})
	b, _ := r.Create(Params{})
	c, _ := r.Create(Params{})
	a.DragSource = true
	c.DragSource = true

	got := r.ClearDragSource()
	if !reflect.DeepEqual(got, []ids.WindowID{a.ID, c.ID}) {
		t.Fatalf("ClearDragSource() = %v", got)
	}
	for _, st := range []*State{a, b, c} {
		if st.DragSource {
			t.Fatalf("window %d still marked as drag source", st.ID)
		}
	}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseCreated, "created"},
		{PhaseInactive, "inactive"},
		{PhaseActive, "active"},
		{PhaseClosing, "closing"},
		{PhaseClosed, "closed"},
		{Phase(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
