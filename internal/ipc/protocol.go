package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/windowkit/internal/app"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/window"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus        CommandType = "GET_STATUS"
	CommandListWindows      CommandType = "LIST_WINDOWS"
	CommandCloseWindow      CommandType = "CLOSE_WINDOW"
	CommandOpenURL          CommandType = "OPEN_URL"
	CommandSetClipboardText CommandType = "SET_CLIPBOARD_TEXT"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	app.Status
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []window.Snapshot `json:"windows"`
}

type CloseWindowPayload struct {
	Window ids.WindowID `json:"window"`
}

// OpenURLPayload names the requesting window. Zero picks the focused
// window, or the first one.
type OpenURLPayload struct {
	Window ids.WindowID `json:"window,omitempty"`
	URL    string       `json:"url"`
}

type OpenURLData struct {
	Request ids.RequestID `json:"request"`
}

type SetClipboardTextPayload struct {
	Text string `json:"text"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
