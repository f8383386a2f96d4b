package app

import (
	"errors"
	"reflect"
	"testing"

	"github.com/1broseidon/windowkit/internal/dnd"
	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/headless"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/mime"
)

func acceptOnly(types ...string) harnessOption {
	return func(o *Options, _ *headless.Options) {
		o.Callbacks.QueryDropTarget = func(_ ids.WindowID, _ geom.Point, _ []string) []dnd.Supported {
			out := make([]dnd.Supported, 0, len(types))
			for _, t := range types {
				out = append(out, dnd.Supported{MimeType: t, Actions: dnd.ActionCopy})
			}
			return out
		}
	}
}

func (h *harness) waitFor(kind event.Kind) {
	h.t.Helper()
	h.pump(func() bool { return h.has(kind) })
}

func TestDrop_SkipsUnacceptedType(t *testing.T) {
	h := newHarness(t, acceptOnly(mime.TextPlain))
	w := h.window(100, 100)
	h.take()

	at := geom.Point{X: 10, Y: 10}
	d := h.backend.SimDragEnter(w, at,
		[]string{mime.TextURIList, mime.TextPlain},
		dnd.ActionCopy|dnd.ActionMove,
		map[string][]byte{
			mime.TextURIList: []byte("file:///tmp/a\r\n"),
			mime.TextPlain:   []byte("plain text"),
		})
	if d.MimeType != mime.TextPlain || d.Action != dnd.ActionCopy {
		t.Fatalf("decision = %+v", d)
	}
	snap, ok := h.app.DropTargetState()
	if !ok || snap.Phase != dnd.TargetAccepted.String() {
		t.Fatalf("target = %+v, %v", snap, ok)
	}

	h.backend.SimDrop(w, at)
	h.waitFor(event.KindDropPerformed)

	drops := only[event.DropPerformed](h.take())
	if len(drops) != 1 {
		t.Fatalf("got %d drops", len(drops))
	}
	if got := string(drops[0].Content); got != "plain text" || drops[0].MimeType != mime.TextPlain {
		t.Fatalf("drop = %+v", drops[0])
	}
	if _, ok := h.app.DropTargetState(); ok {
		t.Fatal("target survived the drop")
	}
}

func TestDrop_NothingAcceptedDeliversNullContent(t *testing.T) {
	h := newHarness(t)
	w := h.window(100, 100)
	h.take()

	d := h.backend.SimDragEnter(w, geom.Point{}, []string{mime.TextPlain}, dnd.ActionCopy, map[string][]byte{mime.TextPlain: []byte("x")})
	if d.Accepted() {
		t.Fatalf("decision = %+v, want rejected", d)
	}
	h.backend.SimDrop(w, geom.Point{})

	evs := h.take()
	assertKinds(t, evs, event.KindDropPerformed)
	if drop := evs[0].(event.DropPerformed); drop.Content != nil || drop.Err != nil {
		t.Fatalf("drop = %+v", drop)
	}
}

func TestDrop_URIListRecordsPaths(t *testing.T) {
	h := newHarness(t, acceptOnly(mime.TextURIList))
	w := h.window(100, 100)

	h.backend.SimDragEnter(w, geom.Point{}, []string{mime.TextURIList}, dnd.ActionCopy, map[string][]byte{
		mime.TextURIList: []byte("# comment\r\nfile:///tmp/a%20b\r\nfile:///tmp/c\r\n"),
	})
	h.backend.SimDrop(w, geom.Point{})
	h.waitFor(event.KindDropPerformed)

	want := []string{"/tmp/a b", "/tmp/c"}
	drop := only[event.DropPerformed](h.take())[0]
	if !reflect.DeepEqual(drop.Paths, want) {
		t.Fatalf("paths = %v, want %v", drop.Paths, want)
	}
	st, _ := h.app.WindowState(w)
	if !reflect.DeepEqual(st.LastReceivedPaths, want) {
		t.Fatalf("last received = %v", st.LastReceivedPaths)
	}
}

func TestDragEnter_OtherWindowLeavesPrevious(t *testing.T) {
	h := newHarness(t, acceptOnly(mime.TextPlain))
	w1 := h.window(10, 10)
	w2 := h.window(10, 10)
	h.take()

	h.backend.SimDragEnter(w1, geom.Point{}, []string{mime.TextPlain}, dnd.ActionCopy, nil)
	h.backend.SimDragEnter(w2, geom.Point{}, []string{mime.TextPlain}, dnd.ActionCopy, nil)

	evs := h.take()
	assertKinds(t, evs, event.KindDragAndDropLeave)
	if evs[0].(event.DragAndDropLeave).Window != w1 {
		t.Fatalf("leave = %+v", evs[0])
	}
	st, _ := h.app.WindowState(w1)
	if st.DragTarget {
		t.Fatal("w1 still a drag target")
	}
}

func TestStartDrag_RequiresPointerPress(t *testing.T) {
	h := newHarness(t)
	w := h.window(10, 10)
	params := dnd.SourceParams{MimeTypes: []string{mime.TextPlain}, Actions: dnd.ActionCopy}

	if err := h.app.StartDrag(w, params); !errors.Is(err, dnd.ErrNoPointerDown) {
		t.Fatalf("StartDrag() without press = %v", err)
	}

	h.backend.SimPointerDown(w, geom.Point{X: 1, Y: 1}, event.ButtonLeft)
	if err := h.app.StartDrag(w, params); err != nil {
		t.Fatalf("StartDrag() = %v", err)
	}
	if err := h.app.StartDrag(w, params); !errors.Is(err, dnd.ErrAlreadyDragging) {
		t.Fatalf("second StartDrag() = %v", err)
	}
	if _, ok := h.backend.Drag(); !ok {
		t.Fatal("backend has no drag")
	}
}

func TestDragSource_FinishResetsFlag(t *testing.T) {
	h := newHarness(t)
	h.content[mime.TextPlain] = []byte("dragged")
	w := h.window(10, 10)
	h.backend.SimPointerDown(w, geom.Point{}, event.ButtonLeft)
	if err := h.app.StartDrag(w, dnd.SourceParams{MimeTypes: []string{mime.TextPlain}, Actions: dnd.ActionCopy | dnd.ActionMove}); err != nil {
		t.Fatal(err)
	}
	h.take()

	data, err := h.backend.SimDragSourceRead(mime.TextPlain)
	if err != nil || string(data) != "dragged" {
		t.Fatalf("read = %q, %v", data, err)
	}
	if _, err := h.backend.SimDragSourceRead(mime.TextHTML); !errors.Is(err, dnd.ErrNotOffered) {
		t.Fatalf("read of unoffered type = %v", err)
	}

	h.backend.SimDragSourceAction(dnd.ActionMove)
	h.backend.SimDragSourceFinish(dnd.ActionMove)

	evs := h.take()
	assertKinds(t, evs, event.KindDragAndDropFeedback, event.KindDragAndDropFinished)
	if fin := evs[1].(event.DragAndDropFinished); fin.Window != w || fin.Action != dnd.ActionMove {
		t.Fatalf("finished = %+v", fin)
	}
	if st, _ := h.app.WindowState(w); st.DragSource {
		t.Fatal("drag-source flag still set")
	}
	if h.app.Status().Dragging {
		t.Fatal("status still dragging")
	}
}

func TestDragSource_CancelResetsEveryWindow(t *testing.T) {
	h := newHarness(t)
	w1 := h.window(10, 10)
	w2 := h.window(10, 10)
	h.backend.SimPointerDown(w1, geom.Point{}, event.ButtonLeft)
	if err := h.app.StartDrag(w1, dnd.SourceParams{MimeTypes: []string{mime.TextPlain}, Actions: dnd.ActionCopy}); err != nil {
		t.Fatal(err)
	}
	stale, _ := h.app.windows.Get(w2)
	stale.DragSource = true
	h.take()

	h.backend.SimDragSourceCancel()

	evs := h.take()
	assertKinds(t, evs, event.KindDataTransferCancelled)
	if c := evs[0].(event.DataTransferCancelled); c.Window != w1 {
		t.Fatalf("cancelled = %+v", c)
	}
	for _, id := range []ids.WindowID{w1, w2} {
		if st, _ := h.app.WindowState(id); st.DragSource {
			t.Fatalf("window %d still a drag source", id)
		}
	}
}

func TestStartDrag_IconDrawn(t *testing.T) {
	h := newHarness(t)
	w := h.window(10, 10)
	h.backend.SimPointerDown(w, geom.Point{}, event.ButtonLeft)
	h.take()
	icon := &dnd.Icon{Size: geom.Size{Width: 32, Height: 32}}
	if err := h.app.StartDrag(w, dnd.SourceParams{MimeTypes: []string{mime.TextPlain}, Actions: dnd.ActionCopy, Icon: icon}); err != nil {
		t.Fatal(err)
	}
	h.loop.Drain()

	evs := h.take()
	assertKinds(t, evs, event.KindDragIconDraw)
	if got := evs[0].(event.DragIconDraw).Size; got != icon.Size {
		t.Fatalf("icon size = %+v", got)
	}
}
