package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/windowkit/internal/app"
	"github.com/1broseidon/windowkit/internal/headless"
	"github.com/1broseidon/windowkit/internal/loop"
	"github.com/1broseidon/windowkit/internal/mime"
	"github.com/1broseidon/windowkit/internal/selection"
	"github.com/1broseidon/windowkit/internal/window"
)

type testHost struct {
	*host
	loop    *loop.Loop
	backend *headless.Backend
	desktop *headless.Desktop
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	return newTestHostWith(t, headless.Options{})
}

func newTestHostWith(t *testing.T, opts headless.Options) *testHost {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := loop.New(loop.Options{})
	l.Bind()

	th := &testHost{
		host:    newHost("windowkit-test", logger),
		loop:    l,
		backend: headless.New(opts),
		desktop: headless.NewDesktop(),
	}
	a, err := app.New(app.Options{
		Backend:   th.backend,
		Desktop:   th.desktop,
		Loop:      l,
		Logger:    logger,
		Callbacks: th.host.callbacks(),
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	th.app = a
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(a.Shutdown)
	l.Drain()
	return th
}

func TestHost_OpensWindowOnStart(t *testing.T) {
	h := newTestHost(t)

	windows := h.Windows()
	if len(windows) != 1 {
		t.Fatalf("windows = %+v", windows)
	}
	if windows[0].Title != "windowkit-test" || windows[0].Phase == window.PhaseCreated.String() {
		t.Fatalf("window = %+v", windows[0])
	}
}

func TestHost_ClipboardText(t *testing.T) {
	h := newTestHost(t)

	if !h.SetClipboardText("hello") {
		t.Fatal("SetClipboardText failed")
	}
	if got := h.backend.Owned(selection.Clipboard); strings.Join(got, ",") != strings.Join(clipboardTypes, ",") {
		t.Fatalf("owned types = %v", got)
	}
	data, err := h.backend.SimPeerRequestSelection(selection.Clipboard, mime.TextPlain)
	if err != nil {
		t.Fatalf("peer read: %v", err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Fatalf("peer got %q", data)
	}

	if !h.SetClipboardText("") {
		t.Fatal("clearing clipboard failed")
	}
	h.loop.Drain()
	if got := h.backend.Owned(selection.Clipboard); len(got) != 0 {
		t.Fatalf("still owned: %v", got)
	}
	if _, err := h.dataTransferData(app.SourceClipboard, mime.TextPlain); err == nil {
		t.Fatal("cleared clipboard still served")
	}
}

func TestHost_ClearClipboardHandsOverText(t *testing.T) {
	h := newTestHostWith(t, headless.Options{ClipboardManager: true})

	if !h.SetClipboardText("kept") {
		t.Fatal("SetClipboardText failed")
	}
	if !h.SetClipboardText("") {
		t.Fatal("clearing clipboard failed")
	}
	h.loop.Drain()
	if len(h.backend.Handovers()) != 1 {
		t.Fatalf("handovers = %v", h.backend.Handovers())
	}
	data, err := h.backend.ReadSelection(context.Background(), selection.Clipboard, mime.TextPlain)
	if err != nil {
		t.Fatalf("manager read: %v", err)
	}
	if string(data) != "kept" {
		t.Fatalf("manager holds %q", data)
	}
	if h.clipboard != nil {
		t.Fatalf("host still holds %q", h.clipboard)
	}
}

func TestHost_DataTransferDataRejectsOtherSources(t *testing.T) {
	h := newTestHost(t)
	h.clipboard = []byte("x")

	if _, err := h.dataTransferData(app.SourcePrimary, mime.TextPlain); err == nil {
		t.Fatal("primary served from clipboard text")
	}
	if _, err := h.dataTransferData(app.SourceClipboard, mime.TextHTML); err == nil {
		t.Fatal("html served from plain text")
	}
	if data, err := h.dataTransferData(app.SourceClipboard, "TEXT/PLAIN;charset=utf-8"); err != nil || string(data) != "x" {
		t.Fatalf("utf-8 text = %q, %v", data, err)
	}
}

func TestHost_OpenURLDefaultsToFirstWindow(t *testing.T) {
	h := newTestHost(t)

	req := h.OpenURL(0, "https://example.com")
	if req == 0 {
		t.Fatal("OpenURL not enqueued")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.loop.Pump(ctx, func() bool { return h.Status().Pending == 0 }); err != nil {
		t.Fatalf("pump: %v", err)
	}
	if urls := h.desktop.URLs(); len(urls) != 1 || urls[0] != "https://example.com" {
		t.Fatalf("opened = %v", urls)
	}
}

func TestHost_TerminatesAfterLastWindow(t *testing.T) {
	h := newTestHost(t)

	id := h.app.WindowIDs()[0]
	if !h.CloseWindow(id) {
		t.Fatal("CloseWindow failed")
	}
	h.loop.Drain()
	if !h.loop.Stopped() {
		t.Fatal("loop still running after last window closed")
	}
}
