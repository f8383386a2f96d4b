package app

import (
	"github.com/1broseidon/windowkit/internal/dnd"
	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/platform"
	"github.com/1broseidon/windowkit/internal/selection"
	"github.com/1broseidon/windowkit/internal/textinput"
	"github.com/1broseidon/windowkit/internal/window"
)

// sink is the backend-facing side of App.
type sink struct {
	a *App
}

var _ platform.Sink = (*sink)(nil)

func (s *sink) Configure(id ids.WindowID, c window.Configure) {
	s.a.loop.AssertLoopThread("Configure")
	s.a.configure(id, c)
}

func (s *sink) KeyboardEnter(id ids.WindowID) {
	s.a.loop.AssertLoopThread("KeyboardEnter")
	s.a.keyboardEnter(id)
}

func (s *sink) KeyboardLeave(id ids.WindowID) {
	s.a.loop.AssertLoopThread("KeyboardLeave")
	s.a.keyboardLeave(id)
}

func (s *sink) CloseRequested(id ids.WindowID) {
	s.a.loop.AssertLoopThread("CloseRequested")
	s.a.closeRequested(id)
}

func (s *sink) Closed(id ids.WindowID) {
	s.a.loop.AssertLoopThread("Closed")
	s.a.windowClosed(id)
}

func (s *sink) Draw(id ids.WindowID) {
	s.a.loop.AssertLoopThread("Draw")
	s.a.draw(id)
}

func (s *sink) DragIconDraw(size geom.Size) {
	s.a.loop.AssertLoopThread("DragIconDraw")
	s.a.dragIconDraw(size)
}

func (s *sink) DisplaysChanged(displays []event.Display) {
	s.a.loop.AssertLoopThread("DisplaysChanged")
	s.a.displaysChanged(displays)
}

func (s *sink) Input(e event.Event) {
	s.a.loop.AssertLoopThread("Input")
	s.a.input(e)
}

func (s *sink) TextInput(id ids.WindowID, u textinput.Update) {
	s.a.loop.AssertLoopThread("TextInput")
	s.a.textInput(id, u)
}

func (s *sink) DragEnter(id ids.WindowID, at geom.Point, offer dnd.Offer) dnd.Decision {
	s.a.loop.AssertLoopThread("DragEnter")
	return s.a.dragEnter(id, at, offer)
}

func (s *sink) DragMotion(id ids.WindowID, at geom.Point) dnd.Decision {
	s.a.loop.AssertLoopThread("DragMotion")
	return s.a.dragMotion(id, at)
}

func (s *sink) DragLeave(id ids.WindowID) {
	s.a.loop.AssertLoopThread("DragLeave")
	s.a.dragLeave(id)
}

func (s *sink) Drop(id ids.WindowID, at geom.Point) {
	s.a.loop.AssertLoopThread("Drop")
	s.a.drop(id, at)
}

func (s *sink) DragSourceData(mimeType string) ([]byte, error) {
	s.a.loop.AssertLoopThread("DragSourceData")
	return s.a.dragSourceData(mimeType)
}

func (s *sink) DragSourceAction(action dnd.Action) {
	s.a.loop.AssertLoopThread("DragSourceAction")
	s.a.dragSourceAction(action)
}

func (s *sink) DragSourceFinished(action dnd.Action) {
	s.a.loop.AssertLoopThread("DragSourceFinished")
	s.a.dragSourceFinished(action)
}

func (s *sink) DragSourceCancelled() {
	s.a.loop.AssertLoopThread("DragSourceCancelled")
	s.a.dragSourceCancelled()
}

func (s *sink) SelectionData(kind selection.Kind, mimeType string) ([]byte, error) {
	s.a.loop.AssertLoopThread("SelectionData")
	return s.a.selectionData(kind, mimeType)
}

func (s *sink) SelectionOffer(kind selection.Kind, mimeTypes []string) {
	s.a.loop.AssertLoopThread("SelectionOffer")
	s.a.selectionOffer(kind, mimeTypes)
}
