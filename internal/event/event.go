// Package event defines the closed set of events delivered to the host.
//
// Byte and string payloads are owned by the core and are only valid for the
// duration of the handler call. Handlers that keep them must copy.
package event

import (
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
)

// Handler receives every event on the event-loop thread. The return value
// reports whether the host handled it.
type Handler func(Event) bool

// Event is implemented only by the types in this package.
type Event interface {
	Kind() Kind
	isEvent()
}

// Kind tags an Event variant.
type Kind int

const (
	KindApplicationStarted Kind = iota + 1
	KindApplicationWillTerminate
	KindDisplayConfigurationChanged
	KindWindowConfigure
	KindWindowScaleChanged
	KindWindowDraw
	KindWindowKeyboardEnter
	KindWindowKeyboardLeave
	KindWindowCloseRequested
	KindWindowClosed
	KindKeyDown
	KindKeyUp
	KindModifiersChanged
	KindMouseMoved
	KindMouseDown
	KindMouseUp
	KindMouseEntered
	KindMouseExited
	KindScrollWheel
	KindDragAndDropLeave
	KindDropPerformed
	KindDragAndDropFeedback
	KindDragAndDropFinished
	KindDragIconDraw
	KindDataTransfer
	KindDataTransferAvailable
	KindDataTransferCancelled
	KindTextInputAvailability
	KindTextInput
	KindNotificationShown
	KindNotificationClosed
	KindOpenURLResponse
	KindOpenFileManagerResponse
	KindFileDialogResponse
	KindActivationTokenResponse
)

var kindNames = map[Kind]string{
	KindApplicationStarted:          "ApplicationStarted",
	KindApplicationWillTerminate:    "ApplicationWillTerminate",
	KindDisplayConfigurationChanged: "DisplayConfigurationChanged",
	KindWindowConfigure:             "WindowConfigure",
	KindWindowScaleChanged:          "WindowScaleChanged",
	KindWindowDraw:                  "WindowDraw",
	KindWindowKeyboardEnter:         "WindowKeyboardEnter",
	KindWindowKeyboardLeave:         "WindowKeyboardLeave",
	KindWindowCloseRequested:        "WindowCloseRequested",
	KindWindowClosed:                "WindowClosed",
	KindKeyDown:                     "KeyDown",
	KindKeyUp:                       "KeyUp",
	KindModifiersChanged:            "ModifiersChanged",
	KindMouseMoved:                  "MouseMoved",
	KindMouseDown:                   "MouseDown",
	KindMouseUp:                     "MouseUp",
	KindMouseEntered:                "MouseEntered",
	KindMouseExited:                 "MouseExited",
	KindScrollWheel:                 "ScrollWheel",
	KindDragAndDropLeave:            "DragAndDropLeave",
	KindDropPerformed:               "DropPerformed",
	KindDragAndDropFeedback:         "DragAndDropFeedback",
	KindDragAndDropFinished:         "DragAndDropFinished",
	KindDragIconDraw:                "DragIconDraw",
	KindDataTransfer:                "DataTransfer",
	KindDataTransferAvailable:       "DataTransferAvailable",
	KindDataTransferCancelled:       "DataTransferCancelled",
	KindTextInputAvailability:       "TextInputAvailability",
	KindTextInput:                   "TextInput",
	KindNotificationShown:           "NotificationShown",
	KindNotificationClosed:          "NotificationClosed",
	KindOpenURLResponse:             "OpenURLResponse",
	KindOpenFileManagerResponse:     "OpenFileManagerResponse",
	KindFileDialogResponse:          "FileDialogResponse",
	KindActivationTokenResponse:     "ActivationTokenResponse",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText renders the kind name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Display is one output as reported by the backend.
type Display struct {
	ID     int       `json:"id"`
	Name   string    `json:"name"`
	Bounds geom.Rect `json:"bounds"`
	Usable geom.Rect `json:"usable"`
	Scale  float64   `json:"scale"`
}

type ApplicationStarted struct{}

type ApplicationWillTerminate struct{}

// DisplayConfigurationChanged carries the full display list after a change.
type DisplayConfigurationChanged struct {
	Displays []Display `json:"displays"`
}

func (ApplicationStarted) Kind() Kind          { return KindApplicationStarted }
func (ApplicationWillTerminate) Kind() Kind    { return KindApplicationWillTerminate }
func (DisplayConfigurationChanged) Kind() Kind { return KindDisplayConfigurationChanged }

func (ApplicationStarted) isEvent()          {}
func (ApplicationWillTerminate) isEvent()    {}
func (DisplayConfigurationChanged) isEvent() {}

// WindowOf returns the window an event belongs to, or 0 for application
// and selection events.
func WindowOf(e Event) ids.WindowID {
	switch ev := e.(type) {
	case WindowConfigure:
		return ev.Window
	case WindowScaleChanged:
		return ev.Window
	case WindowDraw:
		return ev.Window
	case WindowKeyboardEnter:
		return ev.Window
	case WindowKeyboardLeave:
		return ev.Window
	case WindowCloseRequested:
		return ev.Window
	case WindowClosed:
		return ev.Window
	case KeyDown:
		return ev.Window
	case KeyUp:
		return ev.Window
	case ModifiersChanged:
		return ev.Window
	case MouseMoved:
		return ev.Window
	case MouseDown:
		return ev.Window
	case MouseUp:
		return ev.Window
	case MouseEntered:
		return ev.Window
	case MouseExited:
		return ev.Window
	case ScrollWheel:
		return ev.Window
	case DragAndDropLeave:
		return ev.Window
	case DropPerformed:
		return ev.Window
	case DragAndDropFeedback:
		return ev.Window
	case DragAndDropFinished:
		return ev.Window
	case DragIconDraw:
		return ids.DragIconWindowID
	case DataTransferCancelled:
		return ev.Window
	case TextInputAvailability:
		return ev.Window
	case TextInput:
		return ev.Window
	case NotificationShown:
		return ev.Window
	case NotificationClosed:
		return ev.Window
	case OpenURLResponse:
		return ev.Window
	case OpenFileManagerResponse:
		return ev.Window
	case FileDialogResponse:
		return ev.Window
	case ActivationTokenResponse:
		return ev.Window
	default:
		return 0
	}
}
