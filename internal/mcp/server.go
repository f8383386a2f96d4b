// Package mcp exposes the running application to MCP clients over stdio.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/windowkit/internal/ipc"
)

const (
	ServerName    = "windowkit"
	ServerVersion = "0.1.0"
)

// Server is the MCP server for windowkit automation. Tools share the
// controller surface of the IPC socket.
type Server struct {
	mcpServer *mcpsdk.Server
	loop      ipc.Caller
	ctl       ipc.Controller
	logger    *slog.Logger
}

// NewServer creates an MCP server driving ctl on loop.
func NewServer(loop ipc.Caller, ctl ipc.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		loop:   loop,
		ctl:    ctl,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List every live window with its id, title, lifecycle phase, logical size, scale and state flags.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Summarize the application: backend, window count, focused window, pending async requests, shown notifications, drag state and both selections (clipboard, primary).",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Destroy a window. The close predicate is not consulted; a WindowClosed event follows.",
	}, s.handleCloseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_url",
		Description: "Ask the desktop to open a URL on behalf of a window. Returns the request id; the outcome is delivered later as an OpenURLResponse event.",
	}, s.handleOpenURL)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_clipboard_text",
		Description: "Take clipboard ownership and offer text as text/plain;charset=utf-8 and text/plain. Empty text gives up ownership.",
	}, s.handleSetClipboardText)
}
