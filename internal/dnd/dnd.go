package dnd

import (
	"errors"
	"fmt"

	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/mime"
)

var (
	// ErrNoPointerDown is returned when a drag is started without a press.
	ErrNoPointerDown = errors.New("drag requires an active pointer press")
	// ErrAlreadyDragging is returned when the window already sources a drag.
	ErrAlreadyDragging = errors.New("window is already a drag source")
	// ErrNoActions is returned when a drag allows no action.
	ErrNoActions = errors.New("drag allows no actions")
	// ErrNoSession is returned when a target event arrives with no drag in progress.
	ErrNoSession = errors.New("no drag session")
	// ErrNotOffered is returned when a peer asks for a type the source never offered.
	ErrNotOffered = errors.New("mime type not offered")
)

// Icon describes the optional drag icon surface.
type Icon struct {
	Size geom.Size `json:"size"`
}

// SourceParams are supplied by the host to start a drag.
type SourceParams struct {
	MimeTypes []string `json:"mime_types"`
	Actions   Action   `json:"actions"`
	Icon      *Icon    `json:"icon,omitempty"`
}

// Validate checks the params before any native call.
func (p SourceParams) Validate() error {
	if err := mime.ValidateList(p.MimeTypes); err != nil {
		return err
	}
	if len(p.MimeTypes) == 0 {
		return fmt.Errorf("drag offers no mime types: %w", mime.ErrEmptyEntry)
	}
	if p.Actions == ActionNone {
		return ErrNoActions
	}
	return nil
}

// SourcePhase tracks an outgoing drag.
type SourcePhase int

const (
	SourceIdle SourcePhase = iota
	SourceDragging
	SourceFinished
	SourceCancelled
)

func (p SourcePhase) String() string {
	switch p {
	case SourceIdle:
		return "idle"
	case SourceDragging:
		return "dragging"
	case SourceFinished:
		return "finished"
	case SourceCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Source is the outgoing drag of one window.
type Source struct {
	Window    ids.WindowID
	Phase     SourcePhase
	MimeTypes []string
	Allowed   Action
	Icon      *Icon
	// Action is the latest action negotiated by the drop target.
	Action Action
}

// NewSource starts a drag session. Callers check the pointer record.
func NewSource(w ids.WindowID, p SourceParams) (*Source, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var icon *Icon
	if p.Icon != nil {
		ic := *p.Icon
		icon = &ic
	}
	return &Source{
		Window:    w,
		Phase:     SourceDragging,
		MimeTypes: mime.Copy(p.MimeTypes),
		Allowed:   p.Actions,
		Icon:      icon,
	}, nil
}

// Offers reports whether the source advertised t.
func (s *Source) Offers(t string) error {
	if !mime.Contains(s.MimeTypes, t) {
		return fmt.Errorf("%w: %q", ErrNotOffered, t)
	}
	return nil
}

// TargetPhase tracks the incoming drag over our windows.
type TargetPhase int

const (
	TargetIdle TargetPhase = iota
	TargetEntered
	TargetQuerying
	TargetAccepted
	TargetRejected
	TargetDropped
	TargetLeft
)

func (p TargetPhase) String() string {
	switch p {
	case TargetIdle:
		return "idle"
	case TargetEntered:
		return "entered"
	case TargetQuerying:
		return "querying"
	case TargetAccepted:
		return "accepted"
	case TargetRejected:
		return "rejected"
	case TargetDropped:
		return "dropped"
	case TargetLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Supported is one entry of the host's answer to a drop-target query.
// Preferred, when set, is the action the host wants for this type and
// lifts the type above plain first-match ordering.
type Supported struct {
	MimeType  string `json:"mime_type"`
	Actions   Action `json:"actions"`
	Preferred Action `json:"preferred,omitempty"`
}

// Decision is the negotiated outcome for the current pointer location.
type Decision struct {
	MimeType string `json:"mime_type,omitempty"`
	Action   Action `json:"action"`
}

// Accepted reports whether a type was agreed.
func (d Decision) Accepted() bool {
	return d.MimeType != "" && d.Action != ActionNone
}

// Negotiate picks a type and action for an offer. Types the host marks
// with a usable Preferred action win first, in offering order; otherwise
// the first common type wins under policy. The action is the host's
// preference if both sides allow it, else the first common action.
func Negotiate(offered []string, allowed Action, answer []Supported, policy mime.Policy) Decision {
	lookup := func(t string) (Supported, bool) {
		for _, s := range answer {
			if mime.Equal(s.MimeType, t) {
				return s, true
			}
		}
		return Supported{}, false
	}

	for _, t := range offered {
		s, ok := lookup(t)
		if !ok || s.Preferred == ActionNone {
			continue
		}
		common := s.Actions & allowed
		if common.Has(s.Preferred) {
			return Decision{MimeType: t, Action: s.Preferred.First()}
		}
	}

	usable := make([]string, 0, len(answer))
	for _, s := range answer {
		if s.Actions&allowed != ActionNone {
			usable = append(usable, s.MimeType)
		}
	}
	t, ok := mime.Negotiate(offered, usable, policy)
	if !ok {
		return Decision{}
	}
	s, _ := lookup(t)
	return Decision{MimeType: t, Action: (s.Actions & allowed).First()}
}

// Offer is what the peer advertises when its drag enters one of our
// windows. Read fetches the data and may block; it must only be called
// off the event-loop thread.
type Offer struct {
	MimeTypes []string
	Actions   Action
	Read      func(mimeType string) ([]byte, error)
}

// Target is the single incoming drag.
type Target struct {
	Window   ids.WindowID
	Phase    TargetPhase
	Offer    Offer
	Location geom.Point
	Decision Decision
}

// NewTarget records an enter.
func NewTarget(w ids.WindowID, at geom.Point, offer Offer) *Target {
	offer.MimeTypes = mime.Copy(offer.MimeTypes)
	return &Target{Window: w, Phase: TargetEntered, Offer: offer, Location: at}
}

// Decide stores the outcome of a query.
func (t *Target) Decide(d Decision) {
	t.Decision = d
	if d.Accepted() {
		t.Phase = TargetAccepted
	} else {
		t.Phase = TargetRejected
	}
}

// TargetSnapshot is a copy of the target state for inspection.
type TargetSnapshot struct {
	Window    ids.WindowID `json:"window"`
	Phase     string       `json:"phase"`
	MimeTypes []string     `json:"mime_types"`
	Decision  Decision     `json:"decision"`
}

// Snapshot copies the target.
func (t *Target) Snapshot() TargetSnapshot {
	return TargetSnapshot{
		Window:    t.Window,
		Phase:     t.Phase.String(),
		MimeTypes: mime.Copy(t.Offer.MimeTypes),
		Decision:  t.Decision,
	}
}
