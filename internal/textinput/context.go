package textinput

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/1broseidon/windowkit/internal/geom"
)

var (
	// ErrNilContext is returned when enabling without a context snapshot.
	ErrNilContext = errors.New("text input context is required")
	// ErrInvalidContext is returned for offsets outside the surrounding text
	// or text that is not valid UTF-8.
	ErrInvalidContext = errors.New("invalid text input context")
	// ErrSplitRune reports a peer asking to cut through a UTF-8 sequence.
	ErrSplitRune = errors.New("byte range splits a UTF-8 sequence")
	// ErrRangeOutOfBounds reports a delete or preedit cursor range outside the text.
	ErrRangeOutOfBounds = errors.New("byte range out of bounds")
)

// ContentHint is a bit set of IME behaviour hints.
type ContentHint uint32

const (
	HintCompletion ContentHint = 1 << iota
	HintSpellcheck
	HintAutoCapitalization
	HintSensitiveData
)

// HintNone asks for no special IME behaviour.
const HintNone ContentHint = 0

// Has reports whether every bit in h2 is set.
func (h ContentHint) Has(h2 ContentHint) bool {
	return h&h2 == h2
}

// ContentPurpose tells the IME what kind of text is being edited.
type ContentPurpose int

const (
	PurposeNormal ContentPurpose = iota
	PurposeAlpha
	PurposeDigits
	PurposeNumber
	PurposePhone
	PurposeURL
	PurposeEmail
	PurposeName
	PurposePassword
	PurposeDate
	PurposeTime
	PurposeTerminal
)

var purposeNames = map[ContentPurpose]string{
	PurposeNormal:   "normal",
	PurposeAlpha:    "alpha",
	PurposeDigits:   "digits",
	PurposeNumber:   "number",
	PurposePhone:    "phone",
	PurposeURL:      "url",
	PurposeEmail:    "email",
	PurposeName:     "name",
	PurposePassword: "password",
	PurposeDate:     "date",
	PurposeTime:     "time",
	PurposeTerminal: "terminal",
}

func (p ContentPurpose) String() string {
	if name, ok := purposeNames[p]; ok {
		return name
	}
	return "unknown"
}

// Context is the host's snapshot of the edited text. Offsets count
// codepoints, not bytes.
type Context struct {
	SurroundingText               string         `json:"surrounding_text"`
	CursorCodepointOffset         int            `json:"cursor_codepoint_offset"`
	SelectionStartCodepointOffset int            `json:"selection_start_codepoint_offset"`
	CursorRect                    geom.Rect      `json:"cursor_rect"`
	Hints                         ContentHint    `json:"hints"`
	Purpose                       ContentPurpose `json:"purpose"`
}

// Validate checks offsets against the surrounding text.
func (c *Context) Validate() error {
	if c == nil {
		return ErrNilContext
	}
	if !utf8.ValidString(c.SurroundingText) {
		return fmt.Errorf("%w: surrounding text is not valid UTF-8", ErrInvalidContext)
	}
	n := utf8.RuneCountInString(c.SurroundingText)
	if c.CursorCodepointOffset < 0 || c.CursorCodepointOffset > n {
		return fmt.Errorf("%w: cursor %d outside [0,%d]", ErrInvalidContext, c.CursorCodepointOffset, n)
	}
	if c.SelectionStartCodepointOffset < 0 || c.SelectionStartCodepointOffset > n {
		return fmt.Errorf("%w: selection start %d outside [0,%d]", ErrInvalidContext, c.SelectionStartCodepointOffset, n)
	}
	return nil
}

// Update is the payload of a TextInput event. Each part is optional and
// guarded by its Has flag. Delete lengths and preedit cursor positions are
// byte counts, as IME protocols send them.
type Update struct {
	HasPreedit         bool   `json:"has_preedit"`
	PreeditString      string `json:"preedit_string,omitempty"`
	PreeditCursorBegin int    `json:"preedit_cursor_begin"`
	PreeditCursorEnd   int    `json:"preedit_cursor_end"`

	HasCommit    bool   `json:"has_commit"`
	CommitString string `json:"commit_string,omitempty"`

	HasDeleteSurrounding bool   `json:"has_delete_surrounding"`
	DeleteBeforeLength   uint32 `json:"delete_before_length,omitempty"`
	DeleteAfterLength    uint32 `json:"delete_after_length,omitempty"`
}

// Commit builds an update that only commits text.
func Commit(text string) Update {
	return Update{HasCommit: true, CommitString: text, PreeditCursorBegin: -1, PreeditCursorEnd: -1}
}

// Preedit is the composing text shown inline at the cursor.
type Preedit struct {
	Text        string `json:"text"`
	CursorBegin int    `json:"cursor_begin"`
	CursorEnd   int    `json:"cursor_end"`
}

// CursorHidden reports whether the IME asked to hide the cursor.
func (p Preedit) CursorHidden() bool {
	return p.CursorBegin == -1 && p.CursorEnd == -1
}

// Phase is the per-window IME state.
type Phase int

const (
	PhaseDisabled Phase = iota
	PhaseAvailable
	PhaseEnabled
	PhaseComposing
)

func (p Phase) String() string {
	switch p {
	case PhaseDisabled:
		return "disabled"
	case PhaseAvailable:
		return "available"
	case PhaseEnabled:
		return "enabled"
	case PhaseComposing:
		return "composing"
	default:
		return "unknown"
	}
}
