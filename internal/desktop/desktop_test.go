package desktop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/1broseidon/windowkit/internal/platform"
)

// script writes an executable shell script into dir.
func script(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestOpenURL_PassesURL(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "args")
	d := New(Options{OpenCommand: script(t, dir, "open", `printf '%s' "$1" > `+record)})

	if err := d.OpenURL(context.Background(), "https://example.com/a b"); err != nil {
		t.Fatalf("OpenURL: %v", err)
	}
	got, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if string(got) != "https://example.com/a b" {
		t.Fatalf("opened %q", got)
	}
}

func TestOpenURL_Errors(t *testing.T) {
	dir := t.TempDir()
	d := New(Options{OpenCommand: script(t, dir, "open", "echo no handler >&2; exit 3")})

	if err := d.OpenURL(context.Background(), " "); !errors.Is(err, ErrEmptyArgument) {
		t.Fatalf("empty url: %v", err)
	}
	err := d.OpenFileManager(context.Background(), "/tmp")
	if err == nil || !strings.Contains(err.Error(), "no handler") {
		t.Fatalf("failing command: %v", err)
	}
}

// fakeBus answers method calls from reply and hands out the signal channel
// registered by the desktop.
type fakeBus struct {
	mu      sync.Mutex
	calls   []fakeCall
	matches int
	signals chan<- *dbus.Signal
	reply   func(method string) *dbus.Call
}

type fakeCall struct {
	dest   string
	method string
	args   []interface{}
}

func (b *fakeBus) Object(dest string, path dbus.ObjectPath) dbus.BusObject {
	return &fakeObject{bus: b, dest: dest}
}

func (b *fakeBus) AddMatchSignal(options ...dbus.MatchOption) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.matches++
	return nil
}

func (b *fakeBus) Signal(ch chan<- *dbus.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = ch
}

func (b *fakeBus) recorded() []fakeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]fakeCall(nil), b.calls...)
}

type fakeObject struct {
	dbus.BusObject
	bus  *fakeBus
	dest string
}

func (o *fakeObject) CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	o.bus.mu.Lock()
	o.bus.calls = append(o.bus.calls, fakeCall{dest: o.dest, method: method, args: args})
	reply := o.bus.reply
	o.bus.mu.Unlock()
	if reply != nil {
		return reply(method)
	}
	return &dbus.Call{}
}

func notifyReply(id uint32) func(string) *dbus.Call {
	return func(method string) *dbus.Call {
		if method == notificationsIface+".Notify" {
			return &dbus.Call{Body: []interface{}{id}}
		}
		return &dbus.Call{}
	}
}

func closedSignal(id, reason uint32) *dbus.Signal {
	return &dbus.Signal{
		Path: notificationsPath,
		Name: notificationsIface + ".NotificationClosed",
		Body: []interface{}{id, reason},
	}
}

func TestShowNotification_DismissedReported(t *testing.T) {
	bus := &fakeBus{reply: notifyReply(42)}
	d := New(Options{AppName: "app", Bus: bus})
	defer d.Close()
	closed := make(chan string, 1)
	d.WatchNotifications(func(id, reason string) { closed <- id + ":" + reason })

	id, err := d.ShowNotification(context.Background(), platform.Notification{
		Title: "hi", Body: "b", Icon: "dialog-information", Urgency: "critical",
	})
	if err != nil {
		t.Fatalf("ShowNotification: %v", err)
	}
	if id != "42" {
		t.Fatalf("id = %q", id)
	}

	calls := bus.recorded()
	if len(calls) != 1 || calls[0].dest != notificationsDest || calls[0].method != notificationsIface+".Notify" {
		t.Fatalf("calls = %+v", calls)
	}
	args := calls[0].args
	if args[0] != "app" || args[2] != "dialog-information" || args[3] != "hi" || args[4] != "b" {
		t.Fatalf("notify args = %v", args)
	}
	hints := args[6].(map[string]dbus.Variant)
	if u, ok := hints["urgency"].Value().(byte); !ok || u != 2 {
		t.Fatalf("urgency hint = %v", hints["urgency"])
	}
	if bus.matches != 1 {
		t.Fatalf("match rules added = %d", bus.matches)
	}

	bus.signals <- closedSignal(99, 2)
	bus.signals <- closedSignal(42, 2)
	select {
	case got := <-closed:
		if got != "42:dismissed" {
			t.Fatalf("closed = %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dismissal not reported")
	}
}

func TestNotificationClosed_Reasons(t *testing.T) {
	for code, want := range map[uint32]string{1: "expired", 2: "dismissed", 3: "closed", 4: "undefined"} {
		bus := &fakeBus{reply: notifyReply(5)}
		d := New(Options{Bus: bus})
		var got string
		d.WatchNotifications(func(id, reason string) { got = reason })
		if _, err := d.ShowNotification(context.Background(), platform.Notification{Title: "x"}); err != nil {
			t.Fatalf("ShowNotification: %v", err)
		}
		d.signal(closedSignal(5, code))
		if got != want {
			t.Fatalf("reason %d = %q, want %q", code, got, want)
		}
		d.Close()
	}
}

func TestCloseNotification_Silent(t *testing.T) {
	bus := &fakeBus{reply: notifyReply(7)}
	d := New(Options{Bus: bus})
	defer d.Close()
	closed := make(chan string, 1)
	d.WatchNotifications(func(id, reason string) { closed <- reason })

	id, err := d.ShowNotification(context.Background(), platform.Notification{Title: "hi", Urgency: "low"})
	if err != nil {
		t.Fatalf("ShowNotification: %v", err)
	}
	if err := d.CloseNotification(context.Background(), id); err != nil {
		t.Fatalf("CloseNotification: %v", err)
	}
	calls := bus.recorded()
	last := calls[len(calls)-1]
	if last.method != notificationsIface+".CloseNotification" || !reflect.DeepEqual(last.args, []interface{}{uint32(7)}) {
		t.Fatalf("close call = %+v", last)
	}

	// The server confirms the withdrawal with reason 3.
	d.signal(closedSignal(7, 3))
	select {
	case reason := <-closed:
		t.Fatalf("withdrawn notification reported as %q", reason)
	case <-time.After(100 * time.Millisecond):
	}
	if err := d.CloseNotification(context.Background(), id); err != nil {
		t.Fatalf("second CloseNotification: %v", err)
	}
	if n := len(bus.recorded()); n != len(calls) {
		t.Fatalf("unknown id reached the bus: %d calls", n)
	}
}

func TestShowNotification_Errors(t *testing.T) {
	noID := New(Options{Bus: &fakeBus{reply: notifyReply(0)}})
	if _, err := noID.ShowNotification(context.Background(), platform.Notification{Title: "x"}); !errors.Is(err, ErrNoNotificationID) {
		t.Fatalf("err = %v", err)
	}
	if _, err := noID.ShowNotification(context.Background(), platform.Notification{}); !errors.Is(err, ErrEmptyArgument) {
		t.Fatalf("empty title err = %v", err)
	}
	if _, err := noID.ShowNotification(context.Background(), platform.Notification{Title: "x", Urgency: "urgent"}); err == nil {
		t.Fatal("unknown urgency accepted")
	}

	failing := New(Options{Bus: &fakeBus{reply: func(string) *dbus.Call {
		return &dbus.Call{Err: errors.New("name has no owner")}
	}}})
	if _, err := failing.ShowNotification(context.Background(), platform.Notification{Title: "x"}); err == nil || !strings.Contains(err.Error(), "no owner") {
		t.Fatalf("bus error = %v", err)
	}

	noBus := New(Options{})
	if _, err := noBus.ShowNotification(context.Background(), platform.Notification{Title: "x"}); !errors.Is(err, ErrNoSessionBus) {
		t.Fatalf("no bus err = %v", err)
	}
}

func TestOpenFileManager_ShowItems(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "args")
	bus := &fakeBus{}
	d := New(Options{Bus: bus, OpenCommand: script(t, dir, "open", `printf '%s' "$1" > `+record)})

	if err := d.OpenFileManager(context.Background(), "/tmp/a b.txt"); err != nil {
		t.Fatalf("OpenFileManager: %v", err)
	}
	calls := bus.recorded()
	if len(calls) != 1 || calls[0].dest != fileManagerDest || calls[0].method != showItemsMethod {
		t.Fatalf("calls = %+v", calls)
	}
	if !reflect.DeepEqual(calls[0].args, []interface{}{[]string{"file:///tmp/a%20b.txt"}, ""}) {
		t.Fatalf("ShowItems args = %v", calls[0].args)
	}
	if _, err := os.Stat(record); err == nil {
		t.Fatal("open command ran although the reveal succeeded")
	}
}

func TestOpenFileManager_FallsBackToDirectory(t *testing.T) {
	dir := t.TempDir()
	record := filepath.Join(dir, "args")
	file := filepath.Join(dir, "report.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bus := &fakeBus{reply: func(string) *dbus.Call {
		return &dbus.Call{Err: errors.New("name has no owner")}
	}}
	d := New(Options{Bus: bus, OpenCommand: script(t, dir, "open", `printf '%s' "$1" > `+record)})

	if err := d.OpenFileManager(context.Background(), file); err != nil {
		t.Fatalf("OpenFileManager: %v", err)
	}
	got, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if string(got) != dir {
		t.Fatalf("opened %q, want %q", got, dir)
	}
}

func TestShowFileDialog(t *testing.T) {
	dir := t.TempDir()

	cancel := New(Options{DialogCommand: script(t, dir, "cancel", "exit 1")})
	if _, err := cancel.ShowFileDialog(context.Background(), platform.FileDialog{}); !errors.Is(err, platform.ErrCancelled) {
		t.Fatalf("cancel err = %v", err)
	}

	pick := New(Options{DialogCommand: script(t, dir, "pick", `printf '/tmp/a b\n/tmp/c\n'`)})
	paths, err := pick.ShowFileDialog(context.Background(), platform.FileDialog{Multiple: true})
	if err != nil {
		t.Fatalf("ShowFileDialog: %v", err)
	}
	if !reflect.DeepEqual(paths, []string{"/tmp/a b", "/tmp/c"}) {
		t.Fatalf("paths = %v", paths)
	}

	broken := New(Options{DialogCommand: script(t, dir, "broken", "exit 2")})
	if _, err := broken.ShowFileDialog(context.Background(), platform.FileDialog{}); err == nil || errors.Is(err, platform.ErrCancelled) {
		t.Fatalf("broken dialog err = %v", err)
	}
}

func TestDialogArgs(t *testing.T) {
	args := dialogArgs(platform.FileDialog{
		Title:    "Open",
		Multiple: true,
		Filters:  []platform.FileFilter{{Name: "Images", Patterns: []string{"*.png", "*.jpg"}}, {Name: "none"}},
	})
	want := []string{"--file-selection", "--title=Open", "--multiple", "--separator=\n", "--file-filter=Images | *.png *.jpg"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("args = %q, want %q", args, want)
	}

	save := dialogArgs(platform.FileDialog{Save: true, Multiple: true, StartPath: "/tmp/x"})
	if !reflect.DeepEqual(save, []string{"--file-selection", "--filename=/tmp/x", "--save", "--confirm-overwrite"}) {
		t.Fatalf("save args = %q", save)
	}

	modal := dialogArgs(platform.FileDialog{Modal: true, AcceptLabel: "Export"})
	if !reflect.DeepEqual(modal, []string{"--file-selection", "--modal", "--ok-label=Export"}) {
		t.Fatalf("modal args = %q", modal)
	}
}

func TestActivationToken_Unique(t *testing.T) {
	d := New(Options{})
	a, err := d.ActivationToken(context.Background(), "org.example.App")
	if err != nil {
		t.Fatalf("ActivationToken: %v", err)
	}
	b, _ := d.ActivationToken(context.Background(), "")
	if a == b || !strings.HasPrefix(a, "org.example.App-") || !strings.HasPrefix(b, "windowkit-") {
		t.Fatalf("tokens %q, %q", a, b)
	}
}
