package textinput

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/1broseidon/windowkit/internal/geom"
)

// Session mirrors the edited text of one window while IME is enabled.
// Cursor and anchor are codepoint offsets into text; the preedit is kept
// apart from text and never counted in the surrounding text.
type Session struct {
	text    string
	cursor  int
	anchor  int
	rect    geom.Rect
	hints   ContentHint
	purpose ContentPurpose
	preedit *Preedit
}

// Result says what Apply changed.
type Result struct {
	// SurroundingChanged is set when the text or cursor moved and the
	// native IME must be told.
	SurroundingChanged bool
	// Violations lists peer protocol errors that were clamped.
	Violations []error
}

// Err joins the violations, or returns nil.
func (r Result) Err() error {
	return errors.Join(r.Violations...)
}

// NewSession starts a session from a host snapshot.
func NewSession(ctx *Context) (*Session, error) {
	s := &Session{}
	if err := s.Set(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Set replaces the host snapshot. The preedit survives; the host does not
// know about it.
func (s *Session) Set(ctx *Context) error {
	if err := ctx.Validate(); err != nil {
		return err
	}
	s.text = ctx.SurroundingText
	s.cursor = ctx.CursorCodepointOffset
	s.anchor = ctx.SelectionStartCodepointOffset
	s.rect = ctx.CursorRect
	s.hints = ctx.Hints
	s.purpose = ctx.Purpose
	return nil
}

// Context returns the current snapshot, as pushed to the native IME.
func (s *Session) Context() Context {
	return Context{
		SurroundingText:               s.text,
		CursorCodepointOffset:         s.cursor,
		SelectionStartCodepointOffset: s.anchor,
		CursorRect:                    s.rect,
		Hints:                         s.hints,
		Purpose:                       s.purpose,
	}
}

// Text returns the surrounding text.
func (s *Session) Text() string {
	return s.text
}

// Cursor returns the cursor codepoint offset.
func (s *Session) Cursor() int {
	return s.cursor
}

// Preedit returns the composing text, if any.
func (s *Session) Preedit() (Preedit, bool) {
	if s.preedit == nil {
		return Preedit{}, false
	}
	return *s.preedit, true
}

// Phase is Composing while a preedit is shown, Enabled otherwise.
func (s *Session) Phase() Phase {
	if s.preedit != nil {
		return PhaseComposing
	}
	return PhaseEnabled
}

// Apply runs a TextInput update through the fixed evaluation order:
//
//  1. drop the current preedit
//  2. delete the surrounding byte range around the cursor
//  3. insert the commit string and put the cursor after it
//  4. flag the surrounding text for the native IME
//  5. install the new preedit
//  6. place the preedit cursor, or hide it on -1/-1
//
// Out-of-range or rune-splitting requests are clamped and reported in
// Result.Violations.
func (s *Session) Apply(u Update) Result {
	var res Result

	// 1
	s.preedit = nil

	// 2
	if u.HasDeleteSurrounding && (u.DeleteBeforeLength > 0 || u.DeleteAfterLength > 0) {
		s.anchor = s.cursor
		cur := byteOffset(s.text, s.cursor)
		start, err := clampStart(s.text, cur-int(u.DeleteBeforeLength))
		if err != nil {
			res.Violations = append(res.Violations, fmt.Errorf("delete before %d: %w", u.DeleteBeforeLength, err))
		}
		end, err := clampEnd(s.text, cur+int(u.DeleteAfterLength))
		if err != nil {
			res.Violations = append(res.Violations, fmt.Errorf("delete after %d: %w", u.DeleteAfterLength, err))
		}
		if start < end {
			s.text = s.text[:start] + s.text[end:]
			s.cursor = utf8.RuneCountInString(s.text[:start])
			s.anchor = s.cursor
			res.SurroundingChanged = true
		}
	}

	// 3
	if u.HasCommit && u.CommitString != "" {
		if !utf8.ValidString(u.CommitString) {
			res.Violations = append(res.Violations, fmt.Errorf("commit string is not valid UTF-8"))
		}
		s.replaceSelection(u.CommitString)
		res.SurroundingChanged = true
	}

	// 4 is the caller's job when SurroundingChanged is set.

	// 5
	if u.HasPreedit && u.PreeditString != "" {
		p := &Preedit{Text: u.PreeditString, CursorBegin: u.PreeditCursorBegin, CursorEnd: u.PreeditCursorEnd}
		// 6
		if !p.CursorHidden() {
			if err := clampPreeditCursor(p); err != nil {
				res.Violations = append(res.Violations, err)
			}
		}
		s.preedit = p
	}

	return res
}

// Insert replaces the selection with text, as typing without an IME does.
func (s *Session) Insert(text string) bool {
	if text == "" {
		return false
	}
	s.replaceSelection(text)
	return true
}

// Backspace removes the selection, or the codepoint before the cursor.
func (s *Session) Backspace() bool {
	lo, hi := s.selection()
	if lo == hi {
		if lo == 0 {
			return false
		}
		lo--
	}
	b0, b1 := byteOffset(s.text, lo), byteOffset(s.text, hi)
	s.text = s.text[:b0] + s.text[b1:]
	s.cursor = lo
	s.anchor = lo
	return true
}

func (s *Session) selection() (int, int) {
	if s.anchor < s.cursor {
		return s.anchor, s.cursor
	}
	return s.cursor, s.anchor
}

func (s *Session) replaceSelection(text string) {
	lo, hi := s.selection()
	b0, b1 := byteOffset(s.text, lo), byteOffset(s.text, hi)
	s.text = s.text[:b0] + text + s.text[b1:]
	s.cursor = lo + utf8.RuneCountInString(text)
	s.anchor = s.cursor
}

// byteOffset converts a codepoint offset into a byte offset.
func byteOffset(s string, runes int) int {
	if runes <= 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == runes {
			return i
		}
		n++
	}
	return len(s)
}

// clampStart rounds a range start into the string and forward onto a rune
// boundary, so a split sequence is kept rather than half deleted.
func clampStart(s string, b int) (int, error) {
	var err error
	if b < 0 {
		b = 0
		err = ErrRangeOutOfBounds
	}
	if b > len(s) {
		b = len(s)
		err = ErrRangeOutOfBounds
	}
	if b < len(s) && !utf8.RuneStart(s[b]) {
		for b < len(s) && !utf8.RuneStart(s[b]) {
			b++
		}
		err = ErrSplitRune
	}
	return b, err
}

// clampEnd rounds a range end into the string and back onto a rune boundary.
func clampEnd(s string, b int) (int, error) {
	var err error
	if b > len(s) {
		b = len(s)
		err = ErrRangeOutOfBounds
	}
	if b < 0 {
		b = 0
		err = ErrRangeOutOfBounds
	}
	if b < len(s) && !utf8.RuneStart(s[b]) {
		for b > 0 && !utf8.RuneStart(s[b]) {
			b--
		}
		err = ErrSplitRune
	}
	return b, err
}

func clampPreeditCursor(p *Preedit) error {
	var errs []error
	var err error
	if p.CursorBegin, err = clampEnd(p.Text, p.CursorBegin); err != nil {
		errs = append(errs, fmt.Errorf("preedit cursor begin: %w", err))
	}
	if p.CursorEnd, err = clampEnd(p.Text, p.CursorEnd); err != nil {
		errs = append(errs, fmt.Errorf("preedit cursor end: %w", err))
	}
	if p.CursorEnd < p.CursorBegin {
		p.CursorBegin, p.CursorEnd = p.CursorEnd, p.CursorBegin
	}
	return errors.Join(errs...)
}
