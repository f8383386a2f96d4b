package event

import (
	"github.com/1broseidon/windowkit/internal/dnd"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/selection"
	"github.com/1broseidon/windowkit/internal/textinput"
)

type DragAndDropLeave struct {
	Window ids.WindowID `json:"window"`
}

// DropPerformed is the single terminal event of a drop attempt. Content is
// nil when nothing was accepted or the read failed.
type DropPerformed struct {
	Window   ids.WindowID `json:"window"`
	Location geom.Point   `json:"location"`
	MimeType string       `json:"mime_type,omitempty"`
	Action   dnd.Action   `json:"action"`
	Content  []byte       `json:"content"`
	Paths    []string     `json:"paths,omitempty"`
	Err      error        `json:"-"`
}

// DragAndDropFeedback reports the action the target currently selects for
// a drag we are sourcing.
type DragAndDropFeedback struct {
	Window ids.WindowID `json:"window"`
	Action dnd.Action   `json:"action"`
}

// DragAndDropFinished reports the end of a drag we sourced. Action is
// ActionNone when the drag was cancelled.
type DragAndDropFinished struct {
	Window ids.WindowID `json:"window"`
	Action dnd.Action   `json:"action"`
}

// DragIconDraw ticks the drag icon surface. It has no window of its own.
type DragIconDraw struct {
	Size geom.Size `json:"size"`
}

// DataTransfer completes a paste. Serial is the one the caller supplied.
type DataTransfer struct {
	Serial    uint64         `json:"serial"`
	Selection selection.Kind `json:"selection"`
	MimeType  string         `json:"mime_type"`
	Content   []byte         `json:"content"`
	Err       error          `json:"-"`
}

// DataTransferAvailable announces a change of selection owner. MimeTypes
// is empty when nobody owns it any more. OwnershipLost is set when we were
// the previous owner.
type DataTransferAvailable struct {
	Selection     selection.Kind `json:"selection"`
	MimeTypes     []string       `json:"mime_types"`
	OwnershipLost bool           `json:"ownership_lost,omitempty"`
}

// DataTransferCancelled reports that a drag we sourced was cancelled. Every
// window's drag-source flag has been reset when it is delivered.
type DataTransferCancelled struct {
	Window ids.WindowID `json:"window"`
}

type TextInputAvailability struct {
	Window    ids.WindowID `json:"window"`
	Available bool         `json:"available"`
}

// TextInput is one input-method update, applied in the fixed order of
// textinput.Session.Apply before delivery.
type TextInput struct {
	Window ids.WindowID     `json:"window"`
	Update textinput.Update `json:"update"`
}

func (DragAndDropLeave) Kind() Kind      { return KindDragAndDropLeave }
func (DropPerformed) Kind() Kind         { return KindDropPerformed }
func (DragAndDropFeedback) Kind() Kind   { return KindDragAndDropFeedback }
func (DragAndDropFinished) Kind() Kind   { return KindDragAndDropFinished }
func (DragIconDraw) Kind() Kind          { return KindDragIconDraw }
func (DataTransfer) Kind() Kind          { return KindDataTransfer }
func (DataTransferAvailable) Kind() Kind { return KindDataTransferAvailable }
func (DataTransferCancelled) Kind() Kind { return KindDataTransferCancelled }
func (TextInputAvailability) Kind() Kind { return KindTextInputAvailability }
func (TextInput) Kind() Kind             { return KindTextInput }

func (DragAndDropLeave) isEvent()      {}
func (DropPerformed) isEvent()         {}
func (DragAndDropFeedback) isEvent()   {}
func (DragAndDropFinished) isEvent()   {}
func (DragIconDraw) isEvent()          {}
func (DataTransfer) isEvent()          {}
func (DataTransferAvailable) isEvent() {}
func (DataTransferCancelled) isEvent() {}
func (TextInputAvailability) isEvent() {}
func (TextInput) isEvent()             {}
