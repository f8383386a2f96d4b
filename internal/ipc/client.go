package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/runtimepath"
	"github.com/1broseidon/windowkit/internal/window"
)

// Client handles IPC communication with a running windowkit
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for socketPath, or for the runtime-dir socket
// when empty.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		path, err := runtimepath.SocketPath()
		if err != nil {
			// Keep constructor non-failing; sendRequest surfaces connection errors.
			path = ""
		}
		socketPath = path
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	// Connect to socket
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to windowkit: %w (is `windowkit run` running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("windowkit error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) sendPayload(cmd CommandType, payload any) (*Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
	}
	return c.sendRequest(&Request{Command: cmd, Payload: data})
}

// GetStatus retrieves application status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// ListWindows retrieves a snapshot of every live window.
func (c *Client) ListWindows() ([]window.Snapshot, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListWindows})
	if err != nil {
		return nil, err
	}

	var data WindowsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse windows data: %w", err)
	}

	return data.Windows, nil
}

// CloseWindow closes a window as if the user did.
func (c *Client) CloseWindow(id ids.WindowID) error {
	_, err := c.sendPayload(CommandCloseWindow, CloseWindowPayload{Window: id})
	return err
}

// OpenURL asks the desktop to open url on behalf of w.
func (c *Client) OpenURL(w ids.WindowID, url string) (ids.RequestID, error) {
	resp, err := c.sendPayload(CommandOpenURL, OpenURLPayload{Window: w, URL: url})
	if err != nil {
		return 0, err
	}

	var data OpenURLData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, fmt.Errorf("failed to parse open data: %w", err)
	}
	return data.Request, nil
}

// SetClipboardText takes clipboard ownership with text.
func (c *Client) SetClipboardText(text string) error {
	_, err := c.sendPayload(CommandSetClipboardText, SetClipboardTextPayload{Text: text})
	return err
}

// Ping checks if windowkit is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
