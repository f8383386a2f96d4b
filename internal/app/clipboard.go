package app

import (
	"context"

	"github.com/1broseidon/windowkit/internal/bridge"
	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/mime"
	"github.com/1broseidon/windowkit/internal/selection"
)

// Put takes ownership of a selection with the given types, in preference
// order. Content is pulled from DataTransferData when a peer asks. An empty
// list relinquishes ownership.
func (a *App) Put(kind selection.Kind, mimeTypes []string) bool {
	a.loop.AssertLoopThread("Put")
	if !a.backend.SelectionAvailable(kind) {
		a.logger.Warn("put on unavailable selection", "selection", kind.String())
		return false
	}
	sel := a.selections[kind]

	if len(mimeTypes) == 0 {
		// The backend may hand content to a clipboard manager, which reads
		// it from us, so ownership is dropped only afterwards.
		if sel.Ownership() == selection.OwnedByUs {
			if err := a.backend.ClearSelection(kind, a.handoverWait); err != nil {
				a.logger.Warn("clear selection failed", "selection", kind.String(), "error", err)
			}
		}
		_, _ = sel.Put(nil)
		return true
	}

	if err := mime.ValidateList(mimeTypes); err != nil {
		a.violation("put", 0, err)
		return false
	}
	if err := a.backend.OwnSelection(kind, mimeTypes); err != nil {
		a.logger.Warn("take selection failed", "selection", kind.String(), "error", err)
		return false
	}
	_, _ = sel.Put(mimeTypes)
	return true
}

// Paste starts reading a selection. supported is the caller's CSV list of
// types. The result arrives as DataTransfer carrying serial. Paste reports
// whether a read was started, not whether it will succeed.
func (a *App) Paste(kind selection.Kind, serial uint64, supported string) bool {
	a.loop.AssertLoopThread("Paste")
	types, err := mime.ParseCSV(supported)
	if err != nil {
		a.violation("paste", 0, err)
		return false
	}
	if len(types) == 0 {
		a.logger.Warn("paste without supported types", "serial", serial)
		return false
	}
	if !a.backend.SelectionAvailable(kind) {
		a.logger.Info("paste from unavailable selection", "selection", kind.String())
		return false
	}
	sel := a.selections[kind]
	chosen, err := sel.Negotiate(types, a.tieBreak)
	if err != nil {
		a.logger.Debug("paste negotiation failed", "selection", kind.String(), "error", err)
		return false
	}

	if sel.Ownership() == selection.OwnedByUs {
		a.loop.Defer(func() {
			data, err := a.selectionData(kind, chosen)
			a.emit(event.DataTransfer{Serial: serial, Selection: kind, MimeType: chosen, Content: data, Err: err})
		})
		return true
	}

	backend := a.backend
	req := a.bridge.Submit(0, func(ctx context.Context) bridge.Completion {
		data, err := backend.ReadSelection(ctx, kind, chosen)
		return func(ids.RequestID, ids.WindowID) {
			a.emit(event.DataTransfer{Serial: serial, Selection: kind, MimeType: chosen, Content: data, Err: err})
		}
	})
	return req != 0
}

// SelectionState snapshots one selection.
func (a *App) SelectionState(kind selection.Kind) selection.Snapshot {
	a.loop.AssertLoopThread("SelectionState")
	return a.selections[kind].Snapshot()
}

func (a *App) selectionData(kind selection.Kind, mimeType string) ([]byte, error) {
	if err := a.selections[kind].Provide(mimeType); err != nil {
		return nil, err
	}
	return a.provide(sourceOf(kind), mimeType)
}

// selectionOffer records a foreign owner and tells the host, including the
// case where we lost ownership to it.
func (a *App) selectionOffer(kind selection.Kind, mimeTypes []string) {
	sel := a.selections[kind]
	before := sel.Ownership()
	if len(mimeTypes) > 0 {
		if err := mime.ValidateList(mimeTypes); err != nil {
			a.violation("selection offer", 0, err)
		}
	}
	lost := sel.SetExternal(mimeTypes)
	if before == selection.NotOwned && len(mimeTypes) == 0 {
		return
	}
	if lost {
		a.logger.Info("selection ownership lost", "selection", kind.String())
	}
	a.emit(event.DataTransferAvailable{Selection: kind, MimeTypes: mime.Copy(mimeTypes), OwnershipLost: lost})
}
