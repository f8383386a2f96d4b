package textinput

import (
	"errors"
	"testing"
)

func mustSession(t *testing.T, text string, cursor int) *Session {
	t.Helper()
	s, err := NewSession(&Context{SurroundingText: text, CursorCodepointOffset: cursor, SelectionStartCodepointOffset: cursor})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func TestNewSession_RequiresContext(t *testing.T) {
	if _, err := NewSession(nil); !errors.Is(err, ErrNilContext) {
		t.Fatalf("expected ErrNilContext, got %v", err)
	}
	_, err := NewSession(&Context{SurroundingText: "ab", CursorCodepointOffset: 3})
	if !errors.Is(err, ErrInvalidContext) {
		t.Fatalf("expected ErrInvalidContext, got %v", err)
	}
}

func TestApply_DeleteThenCommit(t *testing.T) {
	// Deleting first gives "bye world"; committing first would give "hel world".
	s := mustSession(t, "hello world", 5)
	res := s.Apply(Update{
		HasDeleteSurrounding: true,
		DeleteBeforeLength:   5,
		HasCommit:            true,
		CommitString:         "bye",
		PreeditCursorBegin:   -1,
		PreeditCursorEnd:     -1,
	})
	if err := res.Err(); err != nil {
		t.Fatalf("unexpected violation: %v", err)
	}
	if !res.SurroundingChanged {
		t.Fatalf("expected surrounding text change")
	}
	if s.Text() != "bye world" {
		t.Fatalf("text = %q, want %q", s.Text(), "bye world")
	}
	if s.Cursor() != 3 {
		t.Fatalf("cursor = %d, want 3", s.Cursor())
	}
}

func TestApply_CodepointCursorWithMultibyteText(t *testing.T) {
	// "héllo" with the cursor after "hé" (2 codepoints, 3 bytes).
	s := mustSession(t, "héllo", 2)
	s.Apply(Update{HasDeleteSurrounding: true, DeleteBeforeLength: 2, HasCommit: true, CommitString: "e"})
	if s.Text() != "hello" {
		t.Fatalf("text = %q, want hello", s.Text())
	}
	if s.Cursor() != 2 {
		t.Fatalf("cursor = %d, want 2", s.Cursor())
	}
}

func TestApply_SplitRuneIsReportedAndClamped(t *testing.T) {
	s := mustSession(t, "aé", 2)
	res := s.Apply(Update{HasDeleteSurrounding: true, DeleteBeforeLength: 1})
	if !errors.Is(res.Err(), ErrSplitRune) {
		t.Fatalf("expected ErrSplitRune, got %v", res.Err())
	}
	if s.Text() != "aé" {
		t.Fatalf("split request must not corrupt text, got %q", s.Text())
	}
}

func TestApply_OutOfBoundsIsClamped(t *testing.T) {
	s := mustSession(t, "abc", 1)
	res := s.Apply(Update{HasDeleteSurrounding: true, DeleteBeforeLength: 10, DeleteAfterLength: 1})
	if !errors.Is(res.Err(), ErrRangeOutOfBounds) {
		t.Fatalf("expected ErrRangeOutOfBounds, got %v", res.Err())
	}
	if s.Text() != "c" || s.Cursor() != 0 {
		t.Fatalf("text=%q cursor=%d, want \"c\" 0", s.Text(), s.Cursor())
	}
}

func TestApply_PreeditReplacedEachEvent(t *testing.T) {
	s := mustSession(t, "", 0)

	s.Apply(Update{HasPreedit: true, PreeditString: "ni", PreeditCursorBegin: 2, PreeditCursorEnd: 2})
	p, ok := s.Preedit()
	if !ok || p.Text != "ni" || s.Phase() != PhaseComposing {
		t.Fatalf("expected composing with preedit ni, got %+v ok=%v phase=%s", p, ok, s.Phase())
	}
	if s.Text() != "" {
		t.Fatalf("preedit must not leak into surrounding text, got %q", s.Text())
	}

	res := s.Apply(Update{HasCommit: true, CommitString: "你", PreeditCursorBegin: -1, PreeditCursorEnd: -1})
	if _, ok := s.Preedit(); ok {
		t.Fatalf("preedit must be cleared by an event without preedit")
	}
	if !res.SurroundingChanged || s.Text() != "你" || s.Cursor() != 1 {
		t.Fatalf("text=%q cursor=%d changed=%v", s.Text(), s.Cursor(), res.SurroundingChanged)
	}
	if s.Phase() != PhaseEnabled {
		t.Fatalf("expected enabled after commit, got %s", s.Phase())
	}
}

func TestApply_HiddenPreeditCursor(t *testing.T) {
	s := mustSession(t, "", 0)
	s.Apply(Update{HasPreedit: true, PreeditString: "ka", PreeditCursorBegin: -1, PreeditCursorEnd: -1})
	p, _ := s.Preedit()
	if !p.CursorHidden() {
		t.Fatalf("expected hidden cursor, got %+v", p)
	}
}

func TestApply_PreeditCursorClamped(t *testing.T) {
	s := mustSession(t, "", 0)
	res := s.Apply(Update{HasPreedit: true, PreeditString: "ab", PreeditCursorBegin: 0, PreeditCursorEnd: 9})
	if !errors.Is(res.Err(), ErrRangeOutOfBounds) {
		t.Fatalf("expected ErrRangeOutOfBounds, got %v", res.Err())
	}
	p, _ := s.Preedit()
	if p.CursorEnd != 2 {
		t.Fatalf("cursor end = %d, want 2", p.CursorEnd)
	}
}

func TestInsertAndBackspace(t *testing.T) {
	s := mustSession(t, "", 0)
	s.Insert("h")
	s.Insert("i")
	if s.Text() != "hi" || s.Cursor() != 2 {
		t.Fatalf("text=%q cursor=%d", s.Text(), s.Cursor())
	}
	if !s.Backspace() || s.Text() != "h" {
		t.Fatalf("backspace failed, text=%q", s.Text())
	}
	s.Backspace()
	if s.Backspace() {
		t.Fatalf("backspace at start must report no change")
	}
}

func TestCommitReplacesSelection(t *testing.T) {
	s, _ := NewSession(&Context{SurroundingText: "one two", CursorCodepointOffset: 7, SelectionStartCodepointOffset: 4})
	s.Apply(Commit("2"))
	if s.Text() != "one 2" {
		t.Fatalf("text = %q, want %q", s.Text(), "one 2")
	}
}
