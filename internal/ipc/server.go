package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/1broseidon/windowkit/internal/app"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/runtimepath"
	"github.com/1broseidon/windowkit/internal/window"
)

// Controller is the application surface the server drives. Every method is
// invoked on the event loop.
type Controller interface {
	Status() app.Status
	Windows() []window.Snapshot
	CloseWindow(id ids.WindowID) bool
	// OpenURL returns the request id, or 0 when nothing was enqueued.
	OpenURL(w ids.WindowID, url string) ids.RequestID
	SetClipboardText(text string) bool
}

// Caller runs fn on the event loop and waits for it.
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

const callTimeout = 5 * time.Second

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	loop         Caller
	ctl          Controller
	logger       *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
	conns        sync.WaitGroup
}

// NewServer creates a server on socketPath, or on the runtime-dir socket
// when empty.
func NewServer(socketPath string, loop Caller, ctl Controller, logger *slog.Logger) (*Server, error) {
	if socketPath == "" {
		path, err := runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
		socketPath = path
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		loop:       loop,
		ctl:        ctl,
		logger:     logger,
		startTime:  time.Now(),
	}, nil
}

// SocketPath returns the listening path.
func (s *Server) SocketPath() string { return s.socketPath }

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	// Accept connections
	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.conns.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	// Parse request
	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	// Handle command
	resp := s.handleCommand(req)

	// Send response
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal IPC response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC command", "command", req.Command)
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListWindows:
		return s.handleListWindows()
	case CommandCloseWindow:
		return s.handleCloseWindow(req.Payload)
	case CommandOpenURL:
		return s.handleOpenURL(req.Payload)
	case CommandSetClipboardText:
		return s.handleSetClipboardText(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// onLoop runs fn on the event loop, bounded by callTimeout.
func (s *Server) onLoop(fn func()) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := s.loop.Call(ctx, fn); err != nil {
		return fmt.Errorf("event loop unavailable: %w", err)
	}
	return nil
}

func (s *Server) handleGetStatus() *Response {
	var status app.Status
	if err := s.onLoop(func() { status = s.ctl.Status() }); err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewOKResponse(StatusData{
		Status:        status,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
	return resp
}

func (s *Server) handleListWindows() *Response {
	var windows []window.Snapshot
	if err := s.onLoop(func() { windows = s.ctl.Windows() }); err != nil {
		return NewErrorResponse(err.Error())
	}
	if windows == nil {
		windows = []window.Snapshot{}
	}
	resp, _ := NewOKResponse(WindowsData{Windows: windows})
	return resp
}

func (s *Server) handleCloseWindow(payload json.RawMessage) *Response {
	var req CloseWindowPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid close payload: %v", err))
	}
	if req.Window == 0 {
		return NewErrorResponse("window is required")
	}

	var ok bool
	if err := s.onLoop(func() { ok = s.ctl.CloseWindow(req.Window) }); err != nil {
		return NewErrorResponse(err.Error())
	}
	if !ok {
		return NewErrorResponse(fmt.Sprintf("Unknown window: %d", req.Window))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleOpenURL(payload json.RawMessage) *Response {
	var req OpenURLPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid open payload: %v", err))
	}
	if strings.TrimSpace(req.URL) == "" {
		return NewErrorResponse("url is required")
	}

	var id ids.RequestID
	if err := s.onLoop(func() { id = s.ctl.OpenURL(req.Window, req.URL) }); err != nil {
		return NewErrorResponse(err.Error())
	}
	if id == 0 {
		return NewErrorResponse("request not accepted (no window, no desktop or queue full)")
	}
	resp, _ := NewOKResponse(OpenURLData{Request: id})
	return resp
}

func (s *Server) handleSetClipboardText(payload json.RawMessage) *Response {
	var req SetClipboardTextPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid clipboard payload: %v", err))
	}

	var ok bool
	if err := s.onLoop(func() { ok = s.ctl.SetClipboardText(req.Text) }); err != nil {
		return NewErrorResponse(err.Error())
	}
	if !ok {
		return NewErrorResponse("clipboard not available")
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.conns.Wait()
	os.Remove(s.socketPath)
}
