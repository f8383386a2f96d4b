package mcp

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// WindowInfo describes a single live window.
type WindowInfo struct {
	ID                 uint32   `json:"id"`
	Title              string   `json:"title"`
	Phase              string   `json:"phase"`
	Width              int      `json:"width"`
	Height             int      `json:"height"`
	Scale              float64  `json:"scale"`
	Maximized          bool     `json:"maximized"`
	Fullscreen         bool     `json:"fullscreen"`
	Decoration         string   `json:"decoration"`
	Focused            bool     `json:"focused"`
	TextInputAvailable bool     `json:"text_input_available"`
	LastReceivedPaths  []string `json:"last_received_paths"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// SelectionInfo describes one of the two global selections.
type SelectionInfo struct {
	Kind      string   `json:"kind"`
	Ownership string   `json:"ownership"`
	MimeTypes []string `json:"mime_types"`
}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	Backend         string          `json:"backend"`
	Windows         int             `json:"windows"`
	Focused         uint32          `json:"focused"`
	PendingRequests int             `json:"pending_requests"`
	Notifications   int             `json:"notifications"`
	Dragging        bool            `json:"dragging"`
	DropTarget      bool            `json:"drop_target"`
	Selections      []SelectionInfo `json:"selections"`
}

// CloseWindowInput is the input for the close_window tool.
type CloseWindowInput struct {
	Window uint32 `json:"window" jsonschema:"Id of the window to close, as reported by list_windows"`
}

// CloseWindowOutput is the output for the close_window tool.
type CloseWindowOutput struct {
	Closed bool `json:"closed"`
}

// OpenURLInput is the input for the open_url tool.
type OpenURLInput struct {
	URL    string `json:"url" jsonschema:"URL to open with the desktop handler"`
	Window uint32 `json:"window,omitempty" jsonschema:"Requesting window (default: focused window, else the first window)"`
}

// OpenURLOutput is the output for the open_url tool. The result arrives
// later as an OpenURLResponse event carrying the same request id.
type OpenURLOutput struct {
	Request uint64 `json:"request"`
}

// SetClipboardTextInput is the input for the set_clipboard_text tool.
type SetClipboardTextInput struct {
	Text string `json:"text" jsonschema:"Text to place on the clipboard; empty clears it"`
}

// SetClipboardTextOutput is the output for the set_clipboard_text tool.
type SetClipboardTextOutput struct {
	Owned bool `json:"owned"`
}
