package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/windowkit/internal/app"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/selection"
	"github.com/1broseidon/windowkit/internal/window"
)

type directCaller struct{ err error }

func (c directCaller) Call(_ context.Context, fn func()) error {
	if c.err != nil {
		return c.err
	}
	fn()
	return nil
}

type fakeController struct {
	windows   []window.Snapshot
	closed    []ids.WindowID
	opened    []string
	clipboard *string
	refuse    bool
}

func (f *fakeController) Status() app.Status {
	return app.Status{
		Backend: "headless",
		Windows: len(f.windows),
		Focused: 2,
		Selections: []selection.Snapshot{
			{Kind: selection.Clipboard, Ownership: "owned", MimeTypes: []string{"text/plain"}},
			{Kind: selection.Primary, Ownership: "not_owned"},
		},
	}
}

func (f *fakeController) Windows() []window.Snapshot { return f.windows }

func (f *fakeController) CloseWindow(id ids.WindowID) bool {
	for _, w := range f.windows {
		if w.ID == id {
			f.closed = append(f.closed, id)
			return true
		}
	}
	return false
}

func (f *fakeController) OpenURL(_ ids.WindowID, url string) ids.RequestID {
	if f.refuse {
		return 0
	}
	f.opened = append(f.opened, url)
	return ids.RequestID(10 + len(f.opened))
}

func (f *fakeController) SetClipboardText(text string) bool {
	f.clipboard = &text
	return true
}

func newTestServer(ctl *fakeController) *Server {
	return NewServer(directCaller{}, ctl, nil)
}

func TestListWindows_MarksFocused(t *testing.T) {
	ctl := &fakeController{windows: []window.Snapshot{
		{ID: 1, Title: "a", Phase: "inactive", Size: geom.Size{Width: 640, Height: 480}, Scale: 1},
		{ID: 2, Title: "b", Phase: "active", LastReceivedPaths: []string{"/tmp/x"}},
	}}
	s := newTestServer(ctl)

	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("list_windows: %v", err)
	}
	if len(out.Windows) != 2 {
		t.Fatalf("windows = %+v", out.Windows)
	}
	first, second := out.Windows[0], out.Windows[1]
	if first.Focused || !second.Focused {
		t.Fatalf("focus flags wrong: %+v", out.Windows)
	}
	if first.Width != 640 || first.Height != 480 || first.LastReceivedPaths == nil {
		t.Fatalf("first = %+v", first)
	}
	if len(second.LastReceivedPaths) != 1 || second.LastReceivedPaths[0] != "/tmp/x" {
		t.Fatalf("paths = %v", second.LastReceivedPaths)
	}
}

func TestGetStatus_FlattensSelections(t *testing.T) {
	s := newTestServer(&fakeController{})

	_, out, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{})
	if err != nil {
		t.Fatalf("get_status: %v", err)
	}
	if out.Backend != "headless" || out.Focused != 2 || len(out.Selections) != 2 {
		t.Fatalf("status = %+v", out)
	}
	if out.Selections[0].Kind != selection.Clipboard.String() || out.Selections[1].MimeTypes == nil {
		t.Fatalf("selections = %+v", out.Selections)
	}
}

func TestCloseWindow(t *testing.T) {
	ctl := &fakeController{windows: []window.Snapshot{{ID: 4}}}
	s := newTestServer(ctl)

	if _, out, err := s.handleCloseWindow(context.Background(), nil, CloseWindowInput{Window: 4}); err != nil || !out.Closed {
		t.Fatalf("close = %+v, %v", out, err)
	}
	if len(ctl.closed) != 1 || ctl.closed[0] != 4 {
		t.Fatalf("closed = %v", ctl.closed)
	}
	if _, _, err := s.handleCloseWindow(context.Background(), nil, CloseWindowInput{Window: 5}); err == nil {
		t.Fatal("unknown window accepted")
	}
	if _, _, err := s.handleCloseWindow(context.Background(), nil, CloseWindowInput{}); err == nil {
		t.Fatal("missing window accepted")
	}
}

func TestOpenURL(t *testing.T) {
	ctl := &fakeController{}
	s := newTestServer(ctl)

	_, out, err := s.handleOpenURL(context.Background(), nil, OpenURLInput{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("open_url: %v", err)
	}
	if out.Request != 11 || ctl.opened[0] != "https://example.com" {
		t.Fatalf("out = %+v opened = %v", out, ctl.opened)
	}
	if _, _, err := s.handleOpenURL(context.Background(), nil, OpenURLInput{URL: " "}); err == nil {
		t.Fatal("empty url accepted")
	}
	ctl.refuse = true
	if _, _, err := s.handleOpenURL(context.Background(), nil, OpenURLInput{URL: "https://example.com"}); !errors.Is(err, errRefused) {
		t.Fatalf("refused err = %v", err)
	}
}

func TestSetClipboardText(t *testing.T) {
	ctl := &fakeController{}
	s := newTestServer(ctl)

	_, out, err := s.handleSetClipboardText(context.Background(), nil, SetClipboardTextInput{Text: "hi"})
	if err != nil || !out.Owned {
		t.Fatalf("set = %+v, %v", out, err)
	}
	if ctl.clipboard == nil || *ctl.clipboard != "hi" {
		t.Fatalf("clipboard = %v", ctl.clipboard)
	}
	if _, out, _ := s.handleSetClipboardText(context.Background(), nil, SetClipboardTextInput{}); out.Owned {
		t.Fatal("empty text reported as owned")
	}
}

func TestHandlers_LoopUnavailable(t *testing.T) {
	s := NewServer(directCaller{err: errors.New("stopped")}, &fakeController{}, nil)
	if _, _, err := s.handleGetStatus(context.Background(), nil, GetStatusInput{}); err == nil || !strings.Contains(err.Error(), "event loop unavailable") {
		t.Fatalf("err = %v", err)
	}
}

func TestServer_ToolsOverTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestServer(&fakeController{})
	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	want := []string{"close_window", "get_status", "list_windows", "open_url", "set_clipboard_text"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("tools = %v", names)
	}

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: "get_status", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("call get_status: %v", err)
	}
	if res.IsError {
		t.Fatalf("get_status failed: %+v", res.Content)
	}
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	if !strings.Contains(string(data), `"backend":"headless"`) {
		t.Fatalf("structured content = %s", data)
	}
}
