package headless

import (
	"github.com/1broseidon/windowkit/internal/dnd"
	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/mime"
	"github.com/1broseidon/windowkit/internal/selection"
	"github.com/1broseidon/windowkit/internal/textinput"
	"github.com/1broseidon/windowkit/internal/window"
)

// The Sim methods play the part of the user and of other clients. They
// call the sink directly and must run on the event-loop thread.

// SimConfigure delivers an arbitrary configure.
func (b *Backend) SimConfigure(id ids.WindowID, c window.Configure) {
	if w, ok := b.windows[id]; ok && !c.Size.Empty() {
		w.Size = c.Size
		w.Active = c.Active
	}
	b.sink.Configure(id, c)
}

// SimResize changes the size and reports it as the compositor would.
func (b *Backend) SimResize(id ids.WindowID, size geom.Size, scale float64) {
	w, ok := b.windows[id]
	if !ok {
		return
	}
	w.Size = size
	c := b.configureFor(w)
	if scale > 0 {
		c.Scale = scale
	}
	b.sink.Configure(id, c)
}

// SimFocus gives the window keyboard focus.
func (b *Backend) SimFocus(id ids.WindowID) {
	for wid, w := range b.windows {
		w.Active = wid == id
	}
	b.sink.KeyboardEnter(id)
}

// SimBlur takes keyboard focus away.
func (b *Backend) SimBlur(id ids.WindowID) {
	if w, ok := b.windows[id]; ok {
		w.Active = false
	}
	b.sink.KeyboardLeave(id)
}

// SimKey presses and releases one key. While the window has an input
// method bound, text is routed through it as a commit.
func (b *Backend) SimKey(id ids.WindowID, key event.Key, text string) {
	w, ok := b.windows[id]
	if !ok {
		return
	}
	down := event.KeyDown{Window: id, Key: key, Text: text}
	if w.TextInput != nil && text != "" {
		down.Text = ""
		b.sink.Input(down)
		b.sink.TextInput(id, textinput.Commit(text))
	} else {
		b.sink.Input(down)
	}
	b.sink.Input(event.KeyUp{Window: id, Key: key})
}

// SimType types text one codepoint at a time.
func (b *Backend) SimType(id ids.WindowID, text string) {
	for _, r := range text {
		s := string(r)
		b.SimKey(id, event.Key(s), s)
	}
}

// SimIME delivers a raw input-method update.
func (b *Backend) SimIME(id ids.WindowID, u textinput.Update) {
	b.sink.TextInput(id, u)
}

// SimPointerDown presses a button and returns the serial.
func (b *Backend) SimPointerDown(id ids.WindowID, at geom.Point, button event.MouseButton) uint32 {
	b.serial++
	b.sink.Input(event.MouseDown{Window: id, Button: button, Location: at, Serial: b.serial})
	return b.serial
}

// SimPointerUp releases a button.
func (b *Backend) SimPointerUp(id ids.WindowID, at geom.Point, button event.MouseButton) {
	b.sink.Input(event.MouseUp{Window: id, Button: button, Location: at})
}

// SimPointerMove moves the pointer over the window.
func (b *Backend) SimPointerMove(id ids.WindowID, at geom.Point) {
	b.sink.Input(event.MouseMoved{Window: id, Location: at})
}

// SimCloseButton is the user clicking the window's close button.
func (b *Backend) SimCloseButton(id ids.WindowID) {
	b.sink.CloseRequested(id)
}

// SimDraw ticks the window's frame clock.
func (b *Backend) SimDraw(id ids.WindowID) {
	b.sink.Draw(id)
}

// SimDisplays reports a new display layout.
func (b *Backend) SimDisplays(displays []event.Display) {
	b.sink.DisplaysChanged(displays)
}

// SimDragEnter starts a foreign drag over the window. content maps each
// offered type to its bytes.
func (b *Backend) SimDragEnter(id ids.WindowID, at geom.Point, types []string, actions dnd.Action, content map[string][]byte) dnd.Decision {
	data := make(map[string][]byte, len(content))
	for t, c := range content {
		data[t] = append([]byte(nil), c...)
	}
	offer := dnd.Offer{
		MimeTypes: mime.Copy(types),
		Actions:   actions,
		Read: func(mimeType string) ([]byte, error) {
			for t, c := range data {
				if mime.Equal(t, mimeType) {
					return c, nil
				}
			}
			return nil, dnd.ErrNotOffered
		},
	}
	return b.sink.DragEnter(id, at, offer)
}

// SimDragMotion moves a foreign drag.
func (b *Backend) SimDragMotion(id ids.WindowID, at geom.Point) dnd.Decision {
	return b.sink.DragMotion(id, at)
}

// SimDragLeave moves a foreign drag off the window.
func (b *Backend) SimDragLeave(id ids.WindowID) {
	b.sink.DragLeave(id)
}

// SimDrop releases a foreign drag over the window.
func (b *Backend) SimDrop(id ids.WindowID, at geom.Point) {
	b.sink.Drop(id, at)
}

// SimDragSourceRead is a drop target reading our drag.
func (b *Backend) SimDragSourceRead(mimeType string) ([]byte, error) {
	return b.sink.DragSourceData(mimeType)
}

// SimDragSourceAction is the target changing its selected action.
func (b *Backend) SimDragSourceAction(action dnd.Action) {
	b.sink.DragSourceAction(action)
}

// SimDragSourceFinish completes our drag.
func (b *Backend) SimDragSourceFinish(action dnd.Action) {
	b.drag = nil
	b.sink.DragSourceFinished(action)
}

// SimDragSourceCancel aborts our drag.
func (b *Backend) SimDragSourceCancel() {
	b.drag = nil
	b.sink.DragSourceCancelled()
}

// SimExternalSelection makes another client own kind with the given
// content, in order. A nil types list means the owner went away.
func (b *Backend) SimExternalSelection(kind selection.Kind, types []string, content map[string][]byte) {
	b.mu.Lock()
	delete(b.owned, kind)
	if len(types) == 0 {
		delete(b.external, kind)
		delete(b.order, kind)
	} else {
		data := make(map[string][]byte, len(content))
		for t, c := range content {
			data[t] = append([]byte(nil), c...)
		}
		b.external[kind] = data
		b.order[kind] = mime.Copy(types)
	}
	b.mu.Unlock()
	b.sink.SelectionOffer(kind, mime.Copy(types))
}

// SimPeerRequestSelection is another client pasting from a selection we own.
func (b *Backend) SimPeerRequestSelection(kind selection.Kind, mimeType string) ([]byte, error) {
	return b.sink.SelectionData(kind, mimeType)
}
