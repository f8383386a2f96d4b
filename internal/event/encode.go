package event

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/windowkit/internal/ids"
)

// Envelope is the wire form of an event for observers outside the loop.
type Envelope struct {
	Kind   Kind            `json:"kind"`
	Window ids.WindowID    `json:"window,omitempty"`
	Error  string          `json:"error,omitempty"`
	Event  json.RawMessage `json:"event"`
}

// Encode serializes e. The result shares no memory with e, so it may be
// kept after the handler returns.
func Encode(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("encode: nil event")
	}
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	env := Envelope{Kind: e.Kind(), Window: WindowOf(e), Event: body}
	if err := ErrOf(e); err != nil {
		env.Error = err.Error()
	}
	return json.Marshal(env)
}
