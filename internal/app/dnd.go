package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/1broseidon/windowkit/internal/bridge"
	"github.com/1broseidon/windowkit/internal/dnd"
	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/mime"
)

// ErrQueueFull is reported when blocking work could not be enqueued.
var ErrQueueFull = errors.New("request queue full")

// StartDrag begins a drag from a window. The window must have a pointer
// press on record.
func (a *App) StartDrag(id ids.WindowID, params dnd.SourceParams) error {
	a.loop.AssertLoopThread("StartDrag")
	st, err := a.windows.Get(id)
	if err != nil {
		a.logger.Warn("start drag", "error", err)
		return err
	}
	if st.Pointer == nil {
		a.logger.Warn("start drag without pointer press", "window", id)
		return fmt.Errorf("window %d: %w", id, dnd.ErrNoPointerDown)
	}
	if a.source != nil {
		return fmt.Errorf("window %d: %w", a.source.Window, dnd.ErrAlreadyDragging)
	}
	src, err := dnd.NewSource(id, params)
	if err != nil {
		return err
	}
	if err := a.backend.StartDrag(id, params, *st.Pointer); err != nil {
		a.logger.Warn("native drag start failed", "window", id, "error", err)
		return err
	}
	a.source = src
	st.DragSource = true
	return nil
}

// DropTargetState reports the incoming drag, if any.
func (a *App) DropTargetState() (dnd.TargetSnapshot, bool) {
	a.loop.AssertLoopThread("DropTargetState")
	if a.target == nil {
		return dnd.TargetSnapshot{}, false
	}
	return a.target.Snapshot(), true
}

func (a *App) dragEnter(id ids.WindowID, at geom.Point, offer dnd.Offer) dnd.Decision {
	st, err := a.windows.Get(id)
	if err != nil {
		a.logger.Warn("drag enter", "error", err)
		return dnd.Decision{}
	}
	if err := mime.ValidateList(offer.MimeTypes); err != nil {
		a.violation("drag offer", id, err)
	}
	if a.target != nil && a.target.Window != id {
		a.dragLeave(a.target.Window)
	}
	a.target = dnd.NewTarget(id, at, offer)
	st.DragTarget = true
	return a.queryTarget(at)
}

func (a *App) dragMotion(id ids.WindowID, at geom.Point) dnd.Decision {
	if a.target == nil || a.target.Window != id {
		a.logger.Debug("drag motion without enter", "window", id)
		return dnd.Decision{}
	}
	return a.queryTarget(at)
}

func (a *App) queryTarget(at geom.Point) dnd.Decision {
	t := a.target
	t.Phase = dnd.TargetQuerying
	t.Location = at

	var answer []dnd.Supported
	if a.cb.QueryDropTarget != nil {
		offered := mime.Copy(t.Offer.MimeTypes)
		a.callHost("QueryDropTarget", func() { answer = a.cb.QueryDropTarget(t.Window, at, offered) })
	}
	d := dnd.Negotiate(t.Offer.MimeTypes, t.Offer.Actions, answer, a.tieBreak)
	t.Decide(d)
	return d
}

func (a *App) dragLeave(id ids.WindowID) {
	if a.target == nil || a.target.Window != id {
		return
	}
	a.target.Phase = dnd.TargetLeft
	a.target = nil
	if st, err := a.windows.Get(id); err == nil {
		st.DragTarget = false
	}
	a.emit(event.DragAndDropLeave{Window: id})
}

// drop always ends in exactly one DropPerformed.
func (a *App) drop(id ids.WindowID, at geom.Point) {
	t := a.target
	if t == nil || t.Window != id {
		a.logger.Warn("drop without drag session", "window", id, "error", dnd.ErrNoSession)
		a.emit(event.DropPerformed{Window: id, Location: at})
		return
	}
	a.target = nil
	t.Phase = dnd.TargetDropped
	if st, err := a.windows.Get(id); err == nil {
		st.DragTarget = false
	}

	d := t.Decision
	if !d.Accepted() || t.Offer.Read == nil {
		a.emit(event.DropPerformed{Window: id, Location: at})
		return
	}

	read := t.Offer.Read
	req := a.bridge.Submit(id, func(ctx context.Context) bridge.Completion {
		data, err := read(d.MimeType)
		return func(_ ids.RequestID, owner ids.WindowID) {
			a.finishDrop(owner, at, d, data, err)
		}
	})
	if req == 0 {
		a.emit(event.DropPerformed{Window: id, Location: at, MimeType: d.MimeType, Action: d.Action, Err: ErrQueueFull})
	}
}

func (a *App) finishDrop(id ids.WindowID, at geom.Point, d dnd.Decision, data []byte, err error) {
	ev := event.DropPerformed{Window: id, Location: at, MimeType: d.MimeType, Action: d.Action, Content: data, Err: err}
	if err == nil && mime.Equal(d.MimeType, mime.TextURIList) {
		paths, perr := mime.ParseURIList(data)
		if perr != nil {
			a.violation("drop uri list", id, perr)
			ev.Err = perr
		}
		if st, gerr := a.windows.Get(id); gerr == nil {
			st.LastReceivedPaths = paths
		}
		ev.Paths = paths
	}
	a.emit(ev)
}

func (a *App) dragSourceData(mimeType string) ([]byte, error) {
	if a.source == nil {
		return nil, dnd.ErrNoSession
	}
	if err := a.source.Offers(mimeType); err != nil {
		return nil, err
	}
	return a.provide(SourceDrag, mimeType)
}

func (a *App) dragSourceAction(action dnd.Action) {
	if a.source == nil {
		return
	}
	a.source.Action = action
	a.emit(event.DragAndDropFeedback{Window: a.source.Window, Action: action})
}

func (a *App) dragSourceFinished(action dnd.Action) {
	src := a.source
	if src == nil {
		return
	}
	a.source = nil
	src.Phase = dnd.SourceFinished
	src.Action = action
	if st, err := a.windows.Get(src.Window); err == nil {
		st.DragSource = false
		st.Pointer = nil
	}
	a.emit(event.DragAndDropFinished{Window: src.Window, Action: action})
}

// dragSourceCancelled clears the drag-source flag on every window, not
// only the one the drag started from.
func (a *App) dragSourceCancelled() {
	src := a.source
	a.source = nil
	cleared := a.windows.ClearDragSource()
	if src == nil {
		if len(cleared) > 0 {
			a.logger.Debug("cleared stale drag-source flags", "windows", cleared)
		}
		return
	}
	src.Phase = dnd.SourceCancelled
	if st, err := a.windows.Get(src.Window); err == nil {
		st.Pointer = nil
	}
	a.emit(event.DataTransferCancelled{Window: src.Window})
}
