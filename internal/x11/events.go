package x11

import (
	"unicode"
	"unicode/utf8"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"

	"github.com/1broseidon/windowkit/internal/event"
	"github.com/1broseidon/windowkit/internal/geom"
	"github.com/1broseidon/windowkit/internal/textinput"
	"github.com/1broseidon/windowkit/internal/window"
)

// handle runs on the event loop.
func (b *Backend) handle(ev xgb.Event) {
	switch e := ev.(type) {
	case xproto.MapNotifyEvent:
		if w, ok := b.lookup(e.Window); ok {
			w.mapped = true
			b.configure(w)
		}

	case xproto.ConfigureNotifyEvent:
		w, ok := b.lookup(e.Window)
		if !ok {
			return
		}
		size := geom.Size{Width: int(e.Width), Height: int(e.Height)}
		// Moves also produce ConfigureNotify.
		if size == w.size && w.mapped {
			return
		}
		w.size = size
		b.configure(w)

	case xproto.PropertyNotifyEvent:
		w, ok := b.lookup(e.Window)
		if !ok || !w.mapped {
			return
		}
		name, err := b.conn.AtomName(e.Atom)
		if err != nil {
			return
		}
		if name == "_NET_WM_STATE" || name == "_NET_WM_ALLOWED_ACTIONS" {
			b.configure(w)
		}

	case xproto.ExposeEvent:
		if e.Count != 0 {
			return
		}
		if w, ok := b.lookup(e.Window); ok {
			b.sink.Draw(w.id)
		}

	case xproto.FocusInEvent:
		if !focusChange(e.Mode, e.Detail) {
			return
		}
		if w, ok := b.lookup(e.Event); ok && !w.active {
			w.active = true
			b.sink.KeyboardEnter(w.id)
			b.configure(w)
		}

	case xproto.FocusOutEvent:
		if !focusChange(e.Mode, e.Detail) {
			return
		}
		if w, ok := b.lookup(e.Event); ok && w.active {
			w.active = false
			b.sink.KeyboardLeave(w.id)
			b.configure(w)
		}

	case xproto.KeyPressEvent:
		if w, ok := b.lookup(e.Event); ok {
			b.key(w, e.Detail, e.State, true)
		}

	case xproto.KeyReleaseEvent:
		if w, ok := b.lookup(e.Event); ok {
			b.key(w, e.Detail, e.State, false)
		}

	case xproto.ButtonPressEvent:
		w, ok := b.lookup(e.Event)
		if !ok {
			return
		}
		at := pointerAt(e.EventX, e.EventY)
		if delta, wheel := wheelDelta(e.Detail); wheel {
			b.sink.Input(event.ScrollWheel{Window: w.id, Delta: delta, Location: at})
			return
		}
		b.sink.Input(event.MouseDown{
			Window:   w.id,
			Button:   event.MouseButton(e.Detail),
			Location: at,
			Serial:   uint32(e.Time),
		})

	case xproto.ButtonReleaseEvent:
		w, ok := b.lookup(e.Event)
		if !ok {
			return
		}
		if _, wheel := wheelDelta(e.Detail); wheel {
			return
		}
		b.sink.Input(event.MouseUp{
			Window:   w.id,
			Button:   event.MouseButton(e.Detail),
			Location: pointerAt(e.EventX, e.EventY),
		})

	case xproto.MotionNotifyEvent:
		if w, ok := b.lookup(e.Event); ok {
			b.sink.Input(event.MouseMoved{Window: w.id, Location: pointerAt(e.EventX, e.EventY)})
		}

	case xproto.EnterNotifyEvent:
		if w, ok := b.lookup(e.Event); ok {
			b.sink.Input(event.MouseEntered{Window: w.id, Location: pointerAt(e.EventX, e.EventY)})
		}

	case xproto.LeaveNotifyEvent:
		if w, ok := b.lookup(e.Event); ok {
			b.sink.Input(event.MouseExited{Window: w.id})
		}

	case xproto.ClientMessageEvent:
		w, ok := b.lookup(e.Window)
		if !ok || e.Format != 32 {
			return
		}
		protocols, err1 := b.conn.Atom("WM_PROTOCOLS")
		deleteWindow, err2 := b.conn.Atom("WM_DELETE_WINDOW")
		if err1 != nil || err2 != nil {
			return
		}
		if e.Type == protocols && xproto.Atom(e.Data.Data32[0]) == deleteWindow {
			b.sink.CloseRequested(w.id)
		}

	case xproto.DestroyNotifyEvent:
		w, ok := b.lookup(e.Window)
		if !ok {
			return
		}
		delete(b.windows, w.id)
		delete(b.byXID, e.Window)
		b.sink.Closed(w.id)

	case xproto.SelectionRequestEvent:
		b.sel.serve(e, b.sink)

	case xproto.SelectionClearEvent:
		b.sel.cleared(e, b.sink)

	case xproto.SelectionNotifyEvent:
		b.sel.handoverDone(e)

	case xfixes.SelectionNotifyEvent:
		b.sel.ownerChanged(e, b.sink)

	case randr.ScreenChangeNotifyEvent:
		b.reportDisplays()
	}
}

// configure reports the window's current state. Nothing is reported before
// the first map.
func (b *Backend) configure(w *nativeWindow) {
	if !w.mapped {
		return
	}
	maximized, fullscreen := b.conn.wmState(w.win.Id)
	b.sink.Configure(w.id, window.Configure{
		Size:         w.size,
		Scale:        b.opts.Scale,
		Active:       w.active,
		Maximized:    maximized,
		Fullscreen:   fullscreen,
		Decoration:   window.DecorationServer,
		Capabilities: b.conn.capabilities(w.win.Id),
	})
}

// key reports a key press or release. While text input is enabled, the
// produced text goes to the input method path instead of KeyDown.Text.
func (b *Backend) key(w *nativeWindow, code xproto.Keycode, state uint16, down bool) {
	name := keybind.LookupString(b.conn.XUtil, state, code)
	key, text := translateKey(name)
	mods := translateModifiers(state)
	if !down {
		b.sink.Input(event.KeyUp{Window: w.id, Key: key, Code: uint32(code), Modifiers: mods})
		return
	}
	if mods&(event.ModControl|event.ModAlt|event.ModSuper) != 0 {
		text = ""
	}
	if w.textInput && text != "" {
		b.sink.Input(event.KeyDown{Window: w.id, Key: key, Code: uint32(code), Modifiers: mods})
		b.sink.TextInput(w.id, textinput.Commit(text))
		return
	}
	b.sink.Input(event.KeyDown{Window: w.id, Key: key, Code: uint32(code), Text: text, Modifiers: mods})
}

// focusChange filters out focus events caused by grabs and pointer moves.
func focusChange(mode, detail byte) bool {
	if mode == xproto.NotifyModeGrab || mode == xproto.NotifyModeUngrab {
		return false
	}
	return detail != xproto.NotifyDetailPointer
}

// wheelDelta maps the core protocol's scroll buttons to a delta.
func wheelDelta(button xproto.Button) (geom.Point, bool) {
	switch button {
	case 4:
		return geom.Point{Y: -1}, true
	case 5:
		return geom.Point{Y: 1}, true
	case 6:
		return geom.Point{X: -1}, true
	case 7:
		return geom.Point{X: 1}, true
	}
	return geom.Point{}, false
}

// pointerAt converts window-relative event coordinates.
func pointerAt(x, y int16) geom.Point {
	return geom.Point{X: float64(x), Y: float64(y)}
}

var namedKeys = map[string]event.Key{
	"BackSpace":    event.KeyBackspace,
	"Delete":       event.KeyDelete,
	"KP_Delete":    event.KeyDelete,
	"Return":       event.KeyEnter,
	"KP_Enter":     event.KeyEnter,
	"Escape":       event.KeyEscape,
	"Tab":          event.KeyTab,
	"ISO_Left_Tab": event.KeyTab,
	"Left":         event.KeyArrowLeft,
	"Right":        event.KeyArrowRight,
	"Up":           event.KeyArrowUp,
	"Down":         event.KeyArrowDown,
	"Home":         event.KeyHome,
	"End":          event.KeyEnd,
	"space":        event.KeySpace,
	"Shift_L":      event.KeyShift,
	"Shift_R":      event.KeyShift,
	"Control_L":    event.KeyControl,
	"Control_R":    event.KeyControl,
	"Alt_L":        event.KeyAlt,
	"Alt_R":        event.KeyAlt,
	"Meta_L":       event.KeyAlt,
	"Meta_R":       event.KeyAlt,
	"Super_L":      event.KeySuper,
	"Super_R":      event.KeySuper,
}

// keysymText resolves keysym names of printable punctuation.
var keysymText = map[string]string{
	"space":        " ",
	"exclam":       "!",
	"quotedbl":     `"`,
	"numbersign":   "#",
	"dollar":       "$",
	"percent":      "%",
	"ampersand":    "&",
	"apostrophe":   "'",
	"parenleft":    "(",
	"parenright":   ")",
	"asterisk":     "*",
	"plus":         "+",
	"comma":        ",",
	"minus":        "-",
	"period":       ".",
	"slash":        "/",
	"colon":        ":",
	"semicolon":    ";",
	"less":         "<",
	"equal":        "=",
	"greater":      ">",
	"question":     "?",
	"at":           "@",
	"bracketleft":  "[",
	"backslash":    `\`,
	"bracketright": "]",
	"asciicircum":  "^",
	"underscore":   "_",
	"grave":        "`",
	"braceleft":    "{",
	"bar":          "|",
	"braceright":   "}",
	"asciitilde":   "~",
}

// translateKey maps a keysym name from keybind to a key and the text it
// types, if any.
func translateKey(name string) (event.Key, string) {
	if k, ok := namedKeys[name]; ok {
		return k, keysymText[name]
	}
	if s, ok := keysymText[name]; ok {
		return event.Key(s), s
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		if r >= 0x20 && r != 0x7f {
			return event.Key(string(unicode.ToLower(r))), name
		}
	}
	return event.KeyUnknown, ""
}

func translateModifiers(state uint16) event.Modifiers {
	var m event.Modifiers
	if state&xproto.ModMaskShift != 0 {
		m |= event.ModShift
	}
	if state&xproto.ModMaskControl != 0 {
		m |= event.ModControl
	}
	if state&xproto.ModMask1 != 0 {
		m |= event.ModAlt
	}
	if state&xproto.ModMask4 != 0 {
		m |= event.ModSuper
	}
	if state&xproto.ModMaskLock != 0 {
		m |= event.ModCapsLock
	}
	if state&xproto.ModMask2 != 0 {
		m |= event.ModNumLock
	}
	return m
}
