package event

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/1broseidon/windowkit/internal/dnd"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/selection"
)

func TestKindString_AllNamed(t *testing.T) {
	for k := KindApplicationStarted; k <= KindActivationTokenResponse; k++ {
		if k.String() == "Unknown" {
			t.Errorf("kind %d has no name", k)
		}
	}
	if Kind(0).String() != "Unknown" {
		t.Fatalf("zero kind should be Unknown")
	}
}

func TestWindowOf(t *testing.T) {
	tests := []struct {
		ev   Event
		want ids.WindowID
	}{
		{WindowConfigure{Window: 3}, 3},
		{KeyDown{Window: 4}, 4},
		{DropPerformed{Window: 5}, 5},
		{FileDialogResponse{Window: 6}, 6},
		{DragIconDraw{}, ids.DragIconWindowID},
		{DataTransfer{Serial: 1}, 0},
		{ApplicationStarted{}, 0},
	}
	for _, tt := range tests {
		if got := WindowOf(tt.ev); got != tt.want {
			t.Errorf("WindowOf(%s) = %d, want %d", tt.ev.Kind(), got, tt.want)
		}
	}
}

func TestEncode_Envelope(t *testing.T) {
	ev := DataTransfer{
		Serial:    7,
		Selection: selection.Primary,
		MimeType:  "text/plain",
		Content:   []byte("hi"),
		Err:       errors.New("boom"),
	}
	data, err := Encode(ev)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var env struct {
		Kind  string         `json:"kind"`
		Error string         `json:"error"`
		Event map[string]any `json:"event"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Kind != "DataTransfer" {
		t.Fatalf("kind = %q", env.Kind)
	}
	if env.Error != "boom" {
		t.Fatalf("error = %q", env.Error)
	}
	if env.Event["selection"] != "primary" {
		t.Fatalf("selection = %v", env.Event["selection"])
	}
	if env.Event["serial"] != float64(7) {
		t.Fatalf("serial = %v", env.Event["serial"])
	}
}

func TestEncode_CopiesBorrowedContent(t *testing.T) {
	buf := []byte("hello")
	data, err := Encode(DropPerformed{Window: 1, Content: buf, Action: dnd.ActionCopy, Location: geom.Point{X: 1, Y: 2}})
	if err != nil {
		t.Fatal(err)
	}
	copy(buf, "XXXXX")
	if !strings.Contains(string(data), `"action":"copy"`) {
		t.Fatalf("missing action in %s", data)
	}
	var env struct {
		Event struct {
			Content []byte `json:"content"`
		} `json:"event"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatal(err)
	}
	if string(env.Event.Content) != "hello" {
		t.Fatalf("content = %q", env.Event.Content)
	}
}

func TestModifiersString(t *testing.T) {
	if got := (ModShift | ModControl).String(); got != "shift+ctrl" {
		t.Fatalf("got %q", got)
	}
	if got := Modifiers(0).String(); got != "none" {
		t.Fatalf("got %q", got)
	}
}
