package selection

import (
	"errors"
	"fmt"

	"github.com/1broseidon/windowkit/internal/mime"
)

var (
	// ErrNotOwned is returned when content is requested while we do not own
	// the selection.
	ErrNotOwned = errors.New("selection not owned")
	// ErrNoOwner is returned when pasting from a selection nobody owns.
	ErrNoOwner = errors.New("selection has no owner")
	// ErrNoCommonType is returned when paste finds nothing to read.
	ErrNoCommonType = errors.New("no common mime type")
	// ErrUnavailable is returned when the backend has no device for a selection.
	ErrUnavailable = errors.New("selection not available")
)

// Kind names one of the two independent selections.
type Kind int

const (
	Clipboard Kind = iota
	Primary
)

// Kinds lists both selections in a stable order.
var Kinds = []Kind{Clipboard, Primary}

func (k Kind) String() string {
	if k == Primary {
		return "primary"
	}
	return "clipboard"
}

// MarshalText renders the kind for JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind is the inverse of String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "clipboard", "":
		return Clipboard, nil
	case "primary":
		return Primary, nil
	default:
		return Clipboard, fmt.Errorf("unknown selection %q", s)
	}
}

// Ownership describes who holds a selection.
type Ownership int

const (
	NotOwned Ownership = iota
	OwnedByUs
	OwnedExternally
)

func (o Ownership) String() string {
	switch o {
	case OwnedByUs:
		return "owned"
	case OwnedExternally:
		return "external"
	default:
		return "not_owned"
	}
}

// Selection is the ownership record of one selection. Content is never
// stored: when we own it, only the advertised types are kept and bytes are
// pulled from the host per request.
type Selection struct {
	kind      Kind
	ownership Ownership
	mimeTypes []string
}

// New creates a selection nobody owns.
func New(kind Kind) *Selection {
	return &Selection{kind: kind}
}

// Kind returns which selection this is.
func (s *Selection) Kind() Kind {
	return s.kind
}

// Ownership returns the current owner state.
func (s *Selection) Ownership() Ownership {
	return s.ownership
}

// Advertised returns the owner's types in declared order.
func (s *Selection) Advertised() []string {
	return mime.Copy(s.mimeTypes)
}

// Put takes ownership with the given types. An empty list is a clear and
// returns false for owned.
func (s *Selection) Put(mimeTypes []string) (owned bool, err error) {
	if len(mimeTypes) == 0 {
		s.ownership = NotOwned
		s.mimeTypes = nil
		return false, nil
	}
	if err := mime.ValidateList(mimeTypes); err != nil {
		return false, err
	}
	s.ownership = OwnedByUs
	s.mimeTypes = mime.Copy(mimeTypes)
	return true, nil
}

// SetExternal records another client owning the selection. An empty list
// means nobody owns it. Returns true if we held it before.
func (s *Selection) SetExternal(mimeTypes []string) (lost bool) {
	lost = s.ownership == OwnedByUs
	if len(mimeTypes) == 0 {
		s.ownership = NotOwned
		s.mimeTypes = nil
		return lost
	}
	s.ownership = OwnedExternally
	s.mimeTypes = mime.Copy(mimeTypes)
	return lost
}

// Provide checks that a peer may read t from us.
func (s *Selection) Provide(t string) error {
	if s.ownership != OwnedByUs {
		return fmt.Errorf("%s: %w", s.kind, ErrNotOwned)
	}
	if !mime.Contains(s.mimeTypes, t) {
		return fmt.Errorf("%s: %w: %q", s.kind, mime.ErrMalformed, t)
	}
	return nil
}

// Negotiate picks what a paste with the given supported types should read.
func (s *Selection) Negotiate(supported []string, policy mime.Policy) (string, error) {
	if s.ownership == NotOwned {
		return "", fmt.Errorf("%s: %w", s.kind, ErrNoOwner)
	}
	t, ok := mime.Negotiate(s.mimeTypes, supported, policy)
	if !ok {
		return "", fmt.Errorf("%s: %w", s.kind, ErrNoCommonType)
	}
	return t, nil
}

// Snapshot is a copy of the selection for inspection.
type Snapshot struct {
	Kind      Kind     `json:"kind"`
	Ownership string   `json:"ownership"`
	MimeTypes []string `json:"mime_types"`
}

// Snapshot copies the selection.
func (s *Selection) Snapshot() Snapshot {
	return Snapshot{Kind: s.kind, Ownership: s.ownership.String(), MimeTypes: s.Advertised()}
}
