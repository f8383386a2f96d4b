package dnd

import "strings"

// Action is a drag-and-drop operation. Values combine as a bit set.
type Action uint8

const (
	ActionNone Action = 0
	ActionCopy Action = 1 << (iota - 1)
	ActionMove
	ActionLink
	ActionAsk
)

// actionOrder is the fallback preference when the host names no action.
var actionOrder = []Action{ActionCopy, ActionMove, ActionLink, ActionAsk}

// Has reports whether every bit of b is set in a.
func (a Action) Has(b Action) bool {
	return b != 0 && a&b == b
}

// First returns the highest-preference single action in the set.
func (a Action) First() Action {
	for _, act := range actionOrder {
		if a.Has(act) {
			return act
		}
	}
	return ActionNone
}

func (a Action) String() string {
	if a == ActionNone {
		return "none"
	}
	var parts []string
	for _, act := range actionOrder {
		if !a.Has(act) {
			continue
		}
		switch act {
		case ActionCopy:
			parts = append(parts, "copy")
		case ActionMove:
			parts = append(parts, "move")
		case ActionLink:
			parts = append(parts, "link")
		case ActionAsk:
			parts = append(parts, "ask")
		}
	}
	return strings.Join(parts, "|")
}

// MarshalText renders the set for JSON and logs.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
