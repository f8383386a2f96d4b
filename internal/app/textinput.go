package app

import (
	"fmt"

	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/ids"
	"github.com/1broseidon/windowkit/internal/textinput"
)

// TextInputEnable binds the input method to a focused window.
func (a *App) TextInputEnable(id ids.WindowID, ctx *textinput.Context) error {
	a.loop.AssertLoopThread("TextInputEnable")
	st, err := a.windows.Get(id)
	if err != nil {
		a.logger.Warn("text input enable", "error", err)
		return err
	}
	if !st.TextInputAvailable {
		a.logger.Warn("text input enable without focus", "window", id)
		return fmt.Errorf("window %d: %w", id, ErrTextInputUnavailable)
	}
	sess, err := textinput.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("window %d: %w", id, err)
	}
	if err := a.backend.EnableTextInput(id, sess.Context()); err != nil {
		a.logger.Warn("native text input enable failed", "window", id, "error", err)
		return err
	}
	a.sessions[id] = sess
	return nil
}

// TextInputUpdate replaces the host's view of the text field.
func (a *App) TextInputUpdate(id ids.WindowID, ctx *textinput.Context) error {
	a.loop.AssertLoopThread("TextInputUpdate")
	sess, ok := a.sessions[id]
	if !ok {
		return fmt.Errorf("window %d: %w", id, ErrTextInputDisabled)
	}
	if err := sess.Set(ctx); err != nil {
		return fmt.Errorf("window %d: %w", id, err)
	}
	return a.pushSurrounding(id, sess)
}

// TextInputDisable detaches the input method. It is a no-op when text
// input was never enabled.
func (a *App) TextInputDisable(id ids.WindowID) {
	a.loop.AssertLoopThread("TextInputDisable")
	a.dropTextInput(id)
}

// TextInputState is a snapshot of a window's composition state.
type TextInputState struct {
	Phase   string             `json:"phase"`
	Text    string             `json:"text"`
	Cursor  int                `json:"cursor"`
	Preedit *textinput.Preedit `json:"preedit,omitempty"`
}

// TextInputSnapshot reports the session of a window.
func (a *App) TextInputSnapshot(id ids.WindowID) TextInputState {
	a.loop.AssertLoopThread("TextInputSnapshot")
	sess, ok := a.sessions[id]
	if !ok {
		phase := textinput.PhaseDisabled
		if st, err := a.windows.Get(id); err == nil && st.TextInputAvailable {
			phase = textinput.PhaseAvailable
		}
		return TextInputState{Phase: phase.String()}
	}
	out := TextInputState{Phase: sess.Phase().String(), Text: sess.Text(), Cursor: sess.Cursor()}
	if p, ok := sess.Preedit(); ok {
		out.Preedit = &p
	}
	return out
}

func (a *App) dropTextInput(id ids.WindowID) {
	if _, ok := a.sessions[id]; !ok {
		return
	}
	delete(a.sessions, id)
	if err := a.backend.DisableTextInput(id); err != nil {
		a.logger.Warn("native text input disable failed", "window", id, "error", err)
	}
}

func (a *App) pushSurrounding(id ids.WindowID, sess *textinput.Session) error {
	if err := a.backend.UpdateTextInput(id, sess.Context()); err != nil {
		a.logger.Warn("surrounding text update failed", "window", id, "error", err)
		return err
	}
	return nil
}

func (a *App) textInput(id ids.WindowID, u textinput.Update) {
	sess, ok := a.sessions[id]
	if !ok {
		a.logger.Debug("text input without session", "window", id)
		return
	}
	res := sess.Apply(u)
	for _, v := range res.Violations {
		a.violation("text input", id, v)
	}
	if res.SurroundingChanged {
		_ = a.pushSurrounding(id, sess)
	}
	a.emit(event.TextInput{Window: id, Update: u})
}

// keyText applies plain typing to the session when no composition is in
// progress.
func (a *App) keyText(ev event.KeyDown) {
	sess, ok := a.sessions[ev.Window]
	if !ok || sess.Phase() == textinput.PhaseComposing {
		return
	}
	changed := false
	switch {
	case ev.Key == event.KeyBackspace:
		changed = sess.Backspace()
	case ev.Text != "":
		changed = sess.Insert(ev.Text)
	}
	if changed {
		_ = a.pushSurrounding(ev.Window, sess)
	}
}
