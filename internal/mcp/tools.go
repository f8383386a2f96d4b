package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/windowkit/internal/app"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/window"
)

const callTimeout = 5 * time.Second

var errRefused = errors.New("request not accepted (no window, no desktop or queue full)")

// onLoop runs fn on the event loop, bounded by callTimeout or ctx.
func (s *Server) onLoop(ctx context.Context, fn func()) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := s.loop.Call(ctx, fn); err != nil {
		return fmt.Errorf("event loop unavailable: %w", err)
	}
	return nil
}

func (s *Server) handleListWindows(ctx context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	var (
		snapshots []window.Snapshot
		focused   ids.WindowID
	)
	err := s.onLoop(ctx, func() {
		snapshots = s.ctl.Windows()
		focused = s.ctl.Status().Focused
	})
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	return nil, ListWindowsOutput{Windows: windowInfos(snapshots, focused)}, nil
}

func (s *Server) handleGetStatus(ctx context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	var st app.Status
	if err := s.onLoop(ctx, func() { st = s.ctl.Status() }); err != nil {
		return nil, GetStatusOutput{}, err
	}
	return nil, statusOutput(st), nil
}

func (s *Server) handleCloseWindow(ctx context.Context, _ *mcpsdk.CallToolRequest, args CloseWindowInput) (*mcpsdk.CallToolResult, CloseWindowOutput, error) {
	if args.Window == 0 {
		return nil, CloseWindowOutput{}, fmt.Errorf("window is required")
	}
	var ok bool
	if err := s.onLoop(ctx, func() { ok = s.ctl.CloseWindow(ids.WindowID(args.Window)) }); err != nil {
		return nil, CloseWindowOutput{}, err
	}
	if !ok {
		return nil, CloseWindowOutput{}, fmt.Errorf("unknown window %d", args.Window)
	}
	s.logger.Info("mcp closed window", "window", args.Window)
	return nil, CloseWindowOutput{Closed: true}, nil
}

func (s *Server) handleOpenURL(ctx context.Context, _ *mcpsdk.CallToolRequest, args OpenURLInput) (*mcpsdk.CallToolResult, OpenURLOutput, error) {
	if strings.TrimSpace(args.URL) == "" {
		return nil, OpenURLOutput{}, fmt.Errorf("url is required")
	}
	var id ids.RequestID
	if err := s.onLoop(ctx, func() { id = s.ctl.OpenURL(ids.WindowID(args.Window), args.URL) }); err != nil {
		return nil, OpenURLOutput{}, err
	}
	if id == 0 {
		return nil, OpenURLOutput{}, errRefused
	}
	return nil, OpenURLOutput{Request: uint64(id)}, nil
}

func (s *Server) handleSetClipboardText(ctx context.Context, _ *mcpsdk.CallToolRequest, args SetClipboardTextInput) (*mcpsdk.CallToolResult, SetClipboardTextOutput, error) {
	var ok bool
	if err := s.onLoop(ctx, func() { ok = s.ctl.SetClipboardText(args.Text) }); err != nil {
		return nil, SetClipboardTextOutput{}, err
	}
	if !ok {
		return nil, SetClipboardTextOutput{}, fmt.Errorf("clipboard not available")
	}
	return nil, SetClipboardTextOutput{Owned: args.Text != ""}, nil
}

func windowInfos(snapshots []window.Snapshot, focused ids.WindowID) []WindowInfo {
	infos := make([]WindowInfo, 0, len(snapshots))
	for _, w := range snapshots {
		paths := w.LastReceivedPaths
		if paths == nil {
			paths = []string{}
		}
		infos = append(infos, WindowInfo{
			ID:                 uint32(w.ID),
			Title:              w.Title,
			Phase:              w.Phase,
			Width:              w.Size.Width,
			Height:             w.Size.Height,
			Scale:              w.Scale,
			Maximized:          w.Maximized,
			Fullscreen:         w.Fullscreen,
			Decoration:         w.Decoration,
			Focused:            w.ID == focused,
			TextInputAvailable: w.TextInputAvailable,
			LastReceivedPaths:  paths,
		})
	}
	return infos
}

func statusOutput(st app.Status) GetStatusOutput {
	out := GetStatusOutput{
		Backend:         st.Backend,
		Windows:         st.Windows,
		Focused:         uint32(st.Focused),
		PendingRequests: st.Pending,
		Notifications:   st.Notifications,
		Dragging:        st.Dragging,
		DropTarget:      st.DropTarget,
		Selections:      make([]SelectionInfo, 0, len(st.Selections)),
	}
	for _, sel := range st.Selections {
		types := sel.MimeTypes
		if types == nil {
			types = []string{}
		}
		out.Selections = append(out.Selections, SelectionInfo{
			Kind:      sel.Kind.String(),
			Ownership: sel.Ownership,
			MimeTypes: types,
		})
	}
	return out
}
