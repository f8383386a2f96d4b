package event

import "github.com/1broseidon/windowkit/internal/ids"

// NotificationShown answers ShowNotification. NotificationID is the
// desktop's handle, empty on failure.
type NotificationShown struct {
	Window         ids.WindowID  `json:"window"`
	Request        ids.RequestID `json:"request"`
	NotificationID string        `json:"notification_id,omitempty"`
	Err            error         `json:"-"`
}

// NotificationClosed reports a notification going away, by the user or by
// CloseNotification. Request is the show request; CloseRequest is set when
// the event answers CloseNotification.
type NotificationClosed struct {
	Window       ids.WindowID  `json:"window"`
	Request      ids.RequestID `json:"request"`
	CloseRequest ids.RequestID `json:"close_request,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	Err          error         `json:"-"`
}

type OpenURLResponse struct {
	Window  ids.WindowID  `json:"window"`
	Request ids.RequestID `json:"request"`
	Err     error         `json:"-"`
}

type OpenFileManagerResponse struct {
	Window  ids.WindowID  `json:"window"`
	Request ids.RequestID `json:"request"`
	Err     error         `json:"-"`
}

// FileDialogResponse carries the selected paths. Cancelled is set when the
// user dismissed the dialog; that is not an error.
type FileDialogResponse struct {
	Window    ids.WindowID  `json:"window"`
	Request   ids.RequestID `json:"request"`
	Paths     []string      `json:"paths,omitempty"`
	Cancelled bool          `json:"cancelled,omitempty"`
	Err       error         `json:"-"`
}

type ActivationTokenResponse struct {
	Window  ids.WindowID  `json:"window"`
	Request ids.RequestID `json:"request"`
	Token   string        `json:"token,omitempty"`
	Err     error         `json:"-"`
}

func (NotificationShown) Kind() Kind       { return KindNotificationShown }
func (NotificationClosed) Kind() Kind      { return KindNotificationClosed }
func (OpenURLResponse) Kind() Kind         { return KindOpenURLResponse }
func (OpenFileManagerResponse) Kind() Kind { return KindOpenFileManagerResponse }
func (FileDialogResponse) Kind() Kind      { return KindFileDialogResponse }
func (ActivationTokenResponse) Kind() Kind { return KindActivationTokenResponse }

func (NotificationShown) isEvent()       {}
func (NotificationClosed) isEvent()      {}
func (OpenURLResponse) isEvent()         {}
func (OpenFileManagerResponse) isEvent() {}
func (FileDialogResponse) isEvent()      {}
func (ActivationTokenResponse) isEvent() {}

// RequestOf returns the request an async response answers, or 0. A
// NotificationClosed answers its close request when it has one.
func RequestOf(e Event) ids.RequestID {
	switch ev := e.(type) {
	case NotificationShown:
		return ev.Request
	case NotificationClosed:
		if ev.CloseRequest != 0 {
			return ev.CloseRequest
		}
		return ev.Request
	case OpenURLResponse:
		return ev.Request
	case OpenFileManagerResponse:
		return ev.Request
	case FileDialogResponse:
		return ev.Request
	case ActivationTokenResponse:
		return ev.Request
	default:
		return 0
	}
}

// ErrOf returns the error folded into an event, if any.
func ErrOf(e Event) error {
	switch ev := e.(type) {
	case DropPerformed:
		return ev.Err
	case DataTransfer:
		return ev.Err
	case NotificationShown:
		return ev.Err
	case NotificationClosed:
		return ev.Err
	case OpenURLResponse:
		return ev.Err
	case OpenFileManagerResponse:
		return ev.Err
	case FileDialogResponse:
		return ev.Err
	case ActivationTokenResponse:
		return ev.Err
	default:
		return nil
	}
}
